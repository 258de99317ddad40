package dataprocessing

import (
	"seriesframe/internal/frame"
)

// Processor modifies a container in place
type Processor interface {
	Process(c *frame.Container) error
}

// ProcessingOptions configures processing behavior
type ProcessingOptions struct {
	// EnableForwardFill enables forward-fill for missing data
	EnableForwardFill bool

	// Columns restricts filling to these data columns; empty means all
	Columns []string

	// MaxFill limits consecutive filled cells; 0 means no limit
	MaxFill int
}

// DefaultOptions returns default processing options
func DefaultOptions() ProcessingOptions {
	return ProcessingOptions{
		EnableForwardFill: true,
	}
}
