package api

import "time"

// ExportResponse describes a finished export run. The encoded table itself
// is the response body of the download endpoint.
type ExportResponse struct {
	ID          string            `json:"id"`
	Format      string            `json:"format"`
	Policy      string            `json:"policy"`
	Symbols     []string          `json:"symbols"`
	Rows        int               `json:"rows"`
	Columns     []string          `json:"columns"`
	LabelRows   int               `json:"label_rows,omitempty"`
	Files       map[string]string `json:"files,omitempty"`
	Summaries   any               `json:"summaries,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
	DurationMS  int64             `json:"duration_ms"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}
