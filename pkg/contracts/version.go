package contracts

import (
	"fmt"
	"runtime"
)

const (
	// DataFormatVersion versions the exported table layout
	DataFormatVersion = "v1"

	// APIVersion is the version of the HTTP API
	APIVersion = "v1"
)

// VersionInfo contains detailed version information
type VersionInfo struct {
	Version      string `json:"version"`
	BuildTime    string `json:"build_time,omitempty"`
	GitCommit    string `json:"git_commit,omitempty"`
	GoVersion    string `json:"go_version"`
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
	DataFormat   string `json:"data_format"`
	APIVersion   string `json:"api_version"`
}

// NewVersionInfo fills in the runtime fields for an application version
func NewVersionInfo(version, buildTime, commit string) VersionInfo {
	return VersionInfo{
		Version:      version,
		BuildTime:    buildTime,
		GitCommit:    commit,
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		DataFormat:   DataFormatVersion,
		APIVersion:   APIVersion,
	}
}

// String returns a one-line description such as
// "seriesframe v1.0.0 (go1.22.1 linux/amd64, data v1)"
func (v VersionInfo) String() string {
	s := fmt.Sprintf("seriesframe v%s (%s %s/%s, data %s", v.Version, v.GoVersion, v.OS, v.Architecture, v.DataFormat)
	if v.GitCommit != "" {
		s += ", commit " + v.GitCommit
	}
	return s + ")"
}
