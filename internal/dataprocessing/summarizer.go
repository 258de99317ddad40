package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"seriesframe/internal/frame"
)

// Summarizer condenses each member of a collection into one row of
// statistics over a numeric column.
type Summarizer struct {
	logger     *slog.Logger
	column     string
	lastN      int
	timeFormat string
}

// SummarizerConfig holds configuration options for the Summarizer.
type SummarizerConfig struct {
	Column     string // numeric data column to summarize, e.g. Close
	LastN      int    // number of trailing observations kept
	TimeFormat string
}

// CategorySummary is the summary of one collection member.
type CategorySummary struct {
	Category      string    `json:"category"`
	Observations  int       `json:"observations"`
	FirstTime     string    `json:"first_time,omitempty"`
	LastTime      string    `json:"last_time,omitempty"`
	Last          float64   `json:"last"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Mean          float64   `json:"mean"`
	LastValues    []float64 `json:"last_values"`
}

// DefaultSummarizerConfig summarizes Close with ten trailing values.
func DefaultSummarizerConfig() SummarizerConfig {
	return SummarizerConfig{
		Column:     "Close",
		LastN:      10,
		TimeFormat: "2006-01-02",
	}
}

// NewSummarizer creates a new summarizer with the given configuration.
func NewSummarizer(logger *slog.Logger, config SummarizerConfig) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultSummarizerConfig()
	if config.Column == "" {
		config.Column = defaults.Column
	}
	if config.LastN <= 0 {
		config.LastN = defaults.LastN
	}
	if config.TimeFormat == "" {
		config.TimeFormat = defaults.TimeFormat
	}
	return &Summarizer{
		logger:     logger,
		column:     config.Column,
		lastN:      config.LastN,
		timeFormat: config.TimeFormat,
	}
}

// Summarize returns one summary per member in the collection's key order.
// Missing cells are skipped. Members are not modified.
func (s *Summarizer) Summarize(ctx context.Context, coll *frame.Collection) ([]CategorySummary, error) {
	keys := coll.Keys()
	summaries := make([]CategorySummary, 0, len(keys))
	for i, member := range coll.Members() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		summary, err := s.summarize(keys[i].String(), member)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", keys[i], err)
		}
		summaries = append(summaries, summary)
	}

	s.logger.InfoContext(ctx, "generated category summaries",
		slog.String("column", s.column),
		slog.Int("categories", len(summaries)))
	return summaries, nil
}

func (s *Summarizer) summarize(category string, c *frame.Container) (CategorySummary, error) {
	col, err := c.Column(s.column)
	if err != nil {
		return CategorySummary{}, err
	}
	var times []frame.Value
	if c.HasTimeIndex() {
		times = c.TimeIndex()
	}

	summary := CategorySummary{
		Category:   category,
		High:       math.NaN(),
		Low:        math.NaN(),
		Last:       math.NaN(),
		Mean:       math.NaN(),
		LastValues: []float64{},
	}
	var observed []float64
	sum := 0.0
	for i, v := range col {
		x, ok := v.Float()
		if !ok || math.IsNaN(x) {
			continue
		}
		if len(observed) == 0 && times != nil {
			summary.FirstTime = s.formatTime(times[i])
		}
		if times != nil {
			summary.LastTime = s.formatTime(times[i])
		}
		observed = append(observed, x)
		sum += x
		if math.IsNaN(summary.High) || x > summary.High {
			summary.High = x
		}
		if math.IsNaN(summary.Low) || x < summary.Low {
			summary.Low = x
		}
	}

	summary.Observations = len(observed)
	if len(observed) == 0 {
		return summary, nil
	}
	summary.Last = observed[len(observed)-1]
	summary.Mean = sum / float64(len(observed))
	if len(observed) >= 2 {
		prev := observed[len(observed)-2]
		summary.Change = summary.Last - prev
		if prev != 0 {
			summary.ChangePercent = summary.Change / prev * 100
		}
	}
	start := len(observed) - s.lastN
	if start < 0 {
		start = 0
	}
	summary.LastValues = append(summary.LastValues, observed[start:]...)
	return summary, nil
}

func (s *Summarizer) formatTime(v frame.Value) string {
	if t, ok := v.TimeValue(); ok {
		return t.Format(s.timeFormat)
	}
	return v.String()
}

// SummaryTable lays summaries out as a table for the exporters.
func SummaryTable(summaries []CategorySummary) *frame.Table {
	t := &frame.Table{Columns: []string{
		"Category", "Observations", "FirstTime", "LastTime",
		"Last", "Change", "ChangePercent", "High", "Low", "Mean",
	}}
	for _, s := range summaries {
		t.Rows = append(t.Rows, []frame.Value{
			frame.Text(s.Category),
			frame.Number(float64(s.Observations)),
			frame.Text(s.FirstTime),
			frame.Text(s.LastTime),
			frame.Number(s.Last),
			frame.Number(s.Change),
			frame.Number(s.ChangePercent),
			frame.Number(s.High),
			frame.Number(s.Low),
			frame.Number(s.Mean),
		})
	}
	return t
}
