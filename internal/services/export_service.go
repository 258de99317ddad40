package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"seriesframe/internal/config"
	"seriesframe/internal/dataprocessing"
	apperrors "seriesframe/internal/errors"
	"seriesframe/internal/exporter"
	"seriesframe/internal/frame"
	"seriesframe/internal/indicators"
	"seriesframe/internal/infrastructure"
	"seriesframe/internal/marketdata"
	api "seriesframe/pkg/contracts/api/v1"
)

// File kinds of one export run
const (
	FileData    = "data"
	FileLabels  = "labels"
	FileSummary = "summary"
)

const exportBaseName = "export"

// ExportResult is the outcome of one run. Paths maps file kinds to the
// files written.
type ExportResult struct {
	Response api.ExportResponse
	Export   *frame.Export
	Paths    map[string]string
}

// ExportService fetches bars, derives indicator columns, aligns and
// flattens the collection and writes it in the requested format.
type ExportService struct {
	provider   marketdata.Provider
	export     config.ExportConfig
	market     config.MarketDataConfig
	timeout    time.Duration
	summarizer *dataprocessing.Summarizer
	metrics    *infrastructure.ExportMetrics
	tracer     trace.Tracer
	logger     *slog.Logger
	now        func() time.Time
}

// NewExportService creates the service. provider may be nil for callers
// that only use Encode; metrics may be nil and tracer defaults to the
// global provider.
func NewExportService(provider marketdata.Provider, cfg *config.Config, metrics *infrastructure.ExportMetrics, tracer trace.Tracer, logger *slog.Logger) *ExportService {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = otel.Tracer(infrastructure.InstrumentationName)
	}
	if cfg == nil {
		cfg = config.Default()
	}
	logger = infrastructure.WithComponent(logger, "export_service")
	if provider != nil {
		provider = newInstrumentedProvider(provider, metrics, tracer)
	}

	logger.Info("ExportService initialized",
		slog.String("format", cfg.Export.Format),
		slog.String("policy", cfg.Export.Policy),
		slog.String("output_dir", cfg.Export.OutputDir))

	return &ExportService{
		provider:   provider,
		export:     cfg.Export,
		market:     cfg.MarketData,
		timeout:    cfg.Server.ExportTimeout,
		summarizer: dataprocessing.NewSummarizer(logger, dataprocessing.DefaultSummarizerConfig()),
		metrics:    metrics,
		tracer:     tracer,
		logger:     logger,
		now:        time.Now,
	}
}

// exportPlan is a request with every default resolved
type exportPlan struct {
	symbols []string
	fetch   marketdata.Request
	format  string
	opts    frame.ExportOptions
}

func (s *ExportService) plan(req api.ExportRequest) (exportPlan, error) {
	p := exportPlan{
		symbols: req.Symbols,
		format:  s.export.Format,
		opts: frame.ExportOptions{
			ExpandCategory: boolOr(req.ExpandCategory, s.export.ExpandCategory),
			ExpandTime:     boolOr(req.ExpandTime, s.export.ExpandTime),
			SeparateLabels: boolOr(req.SeparateLabels, s.export.SeparateLabels),
		},
	}
	if req.Format != "" {
		p.format = req.Format
	}

	policy := s.export.Policy
	if req.Policy != "" {
		policy = req.Policy
	}
	parsed, err := frame.ParsePolicy(policy)
	if err != nil {
		return p, err
	}
	p.opts.Policy = parsed

	if req.Range != nil && req.Range.From != "" {
		from, err := time.Parse(time.DateOnly, req.Range.From)
		if err != nil {
			return p, apperrors.NewInvalidInputError(fmt.Sprintf("invalid range start %q", req.Range.From))
		}
		p.fetch.Start = from
		if req.Range.To != "" {
			to, err := time.Parse(time.DateOnly, req.Range.To)
			if err != nil {
				return p, apperrors.NewInvalidInputError(fmt.Sprintf("invalid range end %q", req.Range.To))
			}
			// the end date is inclusive
			p.fetch.End = to.AddDate(0, 0, 1)
		}
	} else {
		p.fetch.Period = req.Period
		if p.fetch.Period == "" {
			p.fetch.Period = s.market.Period
		}
	}
	return p, p.fetch.Validate()
}

// Run executes one export request end to end
func (s *ExportService) Run(ctx context.Context, req api.ExportRequest) (*ExportResult, error) {
	if s.provider == nil {
		return nil, apperrors.NewConfigError("no market data provider configured", nil)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	id := uuid.New().String()
	started := s.now()
	ctx = infrastructure.EnsureTraceID(ctx)
	ctx, span := s.tracer.Start(ctx, "export.run", trace.WithAttributes(
		attribute.String("export.id", id),
		attribute.StringSlice("export.symbols", req.Symbols),
	))
	defer span.End()

	logger := s.logger.With(slog.String("export_id", id))
	p, err := s.plan(req)
	if err != nil {
		return nil, s.fail(ctx, span, p, started, err)
	}
	span.SetAttributes(
		attribute.String("export.format", p.format),
		attribute.String("export.policy", string(p.opts.Policy)))

	logger.InfoContext(ctx, "export started",
		slog.Any("symbols", p.symbols),
		slog.String("format", p.format),
		slog.String("policy", string(p.opts.Policy)))

	coll, err := marketdata.FetchCollection(ctx, s.provider, p.symbols, p.fetch, s.market.Workers)
	if err != nil {
		return nil, s.fail(ctx, span, p, started, err)
	}
	if coll, err = s.derive(ctx, coll, req, p); err != nil {
		return nil, s.fail(ctx, span, p, started, err)
	}

	var summaries []dataprocessing.CategorySummary
	if req.Summary {
		if summaries, err = s.summarizer.Summarize(ctx, coll); err != nil {
			return nil, s.fail(ctx, span, p, started, err)
		}
	}

	dir := filepath.Join(s.export.OutputDir, id)
	files, exp, err := s.encode(ctx, coll, p.opts, p.format, dir, exportBaseName)
	if err != nil {
		return nil, s.fail(ctx, span, p, started, err)
	}
	paths := map[string]string{FileData: files[0]}
	if len(files) > 1 {
		paths[FileLabels] = files[1]
	}
	if req.Summary {
		path, err := s.writeSummary(dir, p.format, summaries)
		if err != nil {
			return nil, s.fail(ctx, span, p, started, err)
		}
		paths[FileSummary] = path
	}

	completed := s.now()
	s.metrics.RecordExport(ctx, p.format, string(p.opts.Policy), exp.Data.Len(), completed.Sub(started), nil)
	span.SetAttributes(attribute.Int("export.rows", exp.Data.Len()))

	resp := api.ExportResponse{
		ID:          id,
		Format:      p.format,
		Policy:      string(p.opts.Policy),
		Symbols:     keyStrings(coll),
		Rows:        exp.Data.Len(),
		Columns:     exp.Data.Columns,
		StartedAt:   started,
		CompletedAt: completed,
		DurationMS:  completed.Sub(started).Milliseconds(),
	}
	if exp.Labels != nil {
		resp.LabelRows = exp.Labels.Len()
	}
	if req.Summary {
		resp.Summaries = observedSummaries(summaries)
	}

	logger.InfoContext(ctx, "export completed",
		slog.Int("rows", resp.Rows),
		slog.Int("columns", len(resp.Columns)),
		slog.Int64("duration_ms", resp.DurationMS))
	return &ExportResult{Response: resp, Export: exp, Paths: paths}, nil
}

// derive applies indicators, alignment padding, forward fill and label
// promotion, in that order. Indicators run before padding so padded rows
// do not enter their windows.
func (s *ExportService) derive(ctx context.Context, coll *frame.Collection, req api.ExportRequest, p exportPlan) (*frame.Collection, error) {
	workers := s.export.Concurrency
	for _, ind := range req.Indicators {
		if bar, ok := indicators.LookupBar(ind.Name); ok {
			inputs := indicators.SplitInputs(ind.Input)
			err := coll.Apply(ctx, func(m *frame.Container) error {
				return bar(m, inputs, ind.Output, ind.Args...)
			}, workers)
			if err != nil {
				return nil, err
			}
			continue
		}
		fn, err := transformFor(ind.Name)
		if err != nil {
			return nil, err
		}
		args := make([]any, len(ind.Args))
		for i, a := range ind.Args {
			args[i] = a
		}
		if err := coll.Transform(ctx, ind.Input, ind.Output, fn, workers, args...); err != nil {
			return nil, err
		}
	}

	if req.ForwardFill {
		if p.opts.Policy == frame.PolicyPad {
			coll = coll.PadTimeIndex(frame.NaN())
		}
		members := coll.Members()
		if len(members) > 0 {
			for _, name := range members[0].DataNames() {
				if err := coll.Transform(ctx, name, name, dataprocessing.ForwardFill, workers); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, name := range req.Labels {
		if err := coll.PromoteLabel(name); err != nil {
			return nil, err
		}
	}
	return coll, nil
}

func transformFor(name string) (frame.TransformFunc, error) {
	if name == "forward_fill" {
		return dataprocessing.ForwardFill, nil
	}
	return indicators.Lookup(name)
}

// Encode flattens src and writes it to dir. It returns the files written,
// data first.
func (s *ExportService) Encode(ctx context.Context, src frame.Exportable, opts frame.ExportOptions, format, dir, base string) ([]string, *frame.Export, error) {
	started := s.now()
	ctx, span := s.tracer.Start(ctx, "export.encode", trace.WithAttributes(
		attribute.String("export.format", format),
		attribute.String("export.policy", string(opts.Policy))))
	defer span.End()

	files, exp, err := s.encode(ctx, src, opts, format, dir, base)
	rows := 0
	if exp != nil {
		rows = exp.Data.Len()
	}
	s.metrics.RecordExport(ctx, format, string(opts.Policy), rows, s.now().Sub(started), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return files, exp, err
}

func (s *ExportService) encode(ctx context.Context, src frame.Exportable, opts frame.ExportOptions, format, dir, base string) ([]string, *frame.Export, error) {
	w, err := s.writer(format)
	if err != nil {
		return nil, nil, err
	}
	exp, err := src.MakeTable(opts)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	files, err := exporter.ExportFiles(dir, base, exp, w)
	if err != nil {
		return nil, nil, err
	}
	return files, exp, nil
}

func (s *ExportService) writer(format string) (exporter.Writer, error) {
	return exporter.NewWriter(format, exporter.OptionsFrom(s.export))
}

func (s *ExportService) writeSummary(dir, format string, summaries []dataprocessing.CategorySummary) (string, error) {
	w, err := s.writer(format)
	if err != nil {
		return "", err
	}
	files, err := exporter.ExportFiles(dir, FileSummary, &frame.Export{Data: dataprocessing.SummaryTable(summaries)}, w)
	if err != nil {
		return "", err
	}
	return files[0], nil
}

// ResolveFile returns the path of one file of a finished export
func (s *ExportService) ResolveFile(id, kind string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", apperrors.NewInvalidInputError(fmt.Sprintf("invalid export id %q", id))
	}
	base := exportBaseName
	switch kind {
	case FileData:
	case FileLabels:
		base += exporter.LabelsSuffix
	case FileSummary:
		base = FileSummary
	default:
		return "", apperrors.NewKeyNotFoundError("export file", kind)
	}

	matches, err := filepath.Glob(filepath.Join(s.export.OutputDir, id, base+".*"))
	if err != nil {
		return "", apperrors.NewStorageError("failed to list export files", err)
	}
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && !info.IsDir() && filepath.Ext(m) != ".tmp" {
			return m, nil
		}
	}
	return "", apperrors.NewKeyNotFoundError("export file", id+"/"+kind)
}

func (s *ExportService) fail(ctx context.Context, span trace.Span, p exportPlan, started time.Time, err error) error {
	s.metrics.RecordExport(ctx, p.format, string(p.opts.Policy), 0, s.now().Sub(started), err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.logger.ErrorContext(ctx, "export failed",
		slog.String("error", err.Error()),
		slog.String("error_type", string(apperrors.TypeOf(err))))
	return err
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func keyStrings(coll *frame.Collection) []string {
	keys := coll.Keys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

// observedSummaries drops members without observations; their statistics
// are NaN and have no JSON form. They remain in the summary file.
func observedSummaries(summaries []dataprocessing.CategorySummary) []dataprocessing.CategorySummary {
	out := make([]dataprocessing.CategorySummary, 0, len(summaries))
	for _, s := range summaries {
		if s.Observations > 0 {
			out = append(out, s)
		}
	}
	return out
}
