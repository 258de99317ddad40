// Package api contains API contract definitions for the seriesframe HTTP API.
// Version v1 represents the current stable API version.
package api

// DateRangeRequest represents a date range in requests
type DateRangeRequest struct {
	From string `json:"from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	To   string `json:"to,omitempty" validate:"omitempty,datetime=2006-01-02,required_with=From"`
}

// IndicatorRequest applies one column transform to every member. The
// stochastic, williams_r and spread indicators read a comma separated
// column list from Input, e.g. "High,Low,Close".
type IndicatorRequest struct {
	Name   string `json:"name" validate:"required,oneof=sma ema macd rsi stochastic williams_r spread forward_fill"`
	Input  string `json:"input" validate:"required"`
	Output string `json:"output" validate:"required"`
	Args   []int  `json:"args,omitempty" validate:"omitempty,dive,min=0"`
}

// ExportRequest asks the server to fetch bars for symbols, derive
// indicators and flatten the result into a table.
type ExportRequest struct {
	Symbols []string `json:"symbols" validate:"required,min=1,max=100,dive,required,symbol"`
	// Period is ignored when Range is set.
	Period     string             `json:"period,omitempty" validate:"omitempty,oneof=1d 5d 1mo 3mo 6mo 1y 2y 5y 10y ytd max"`
	Range      *DateRangeRequest  `json:"range,omitempty"`
	Indicators []IndicatorRequest `json:"indicators,omitempty" validate:"omitempty,max=20,dive"`

	Format         string `json:"format,omitempty" validate:"omitempty,oneof=csv xlsx arrow json"`
	Policy         string `json:"policy,omitempty" validate:"omitempty,oneof=ignore pad remove"`
	ExpandCategory *bool  `json:"expand_category,omitempty"`
	ExpandTime     *bool  `json:"expand_time,omitempty"`
	SeparateLabels *bool  `json:"separate_labels,omitempty"`
	// Labels lists data columns exported as labels, e.g. a target column.
	Labels      []string `json:"labels,omitempty" validate:"omitempty,dive,required"`
	ForwardFill bool     `json:"forward_fill,omitempty"`
	Summary     bool     `json:"summary,omitempty"`
}
