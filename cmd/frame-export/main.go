package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"seriesframe/internal/config"
	"seriesframe/internal/dataprocessing"
	apperrors "seriesframe/internal/errors"
	"seriesframe/internal/frame"
	"seriesframe/internal/indicators"
	"seriesframe/internal/infrastructure"
	"seriesframe/internal/marketdata"
	"seriesframe/internal/services"
	"seriesframe/internal/validation"
	"seriesframe/pkg/contracts"
	api "seriesframe/pkg/contracts/api/v1"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "frame-export:", err)
		}
		os.Exit(1)
	}
}

// indicatorFlags collects repeated -indicator name:input:output[:arg,...]
type indicatorFlags []api.IndicatorRequest

func (f *indicatorFlags) String() string {
	parts := make([]string, len(*f))
	for i, ind := range *f {
		parts[i] = ind.Name + ":" + ind.Input + ":" + ind.Output
	}
	return strings.Join(parts, " ")
}

func (f *indicatorFlags) Set(s string) error {
	parts := strings.Split(s, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return fmt.Errorf("indicator %q: want name:input:output[:args]", s)
	}
	ind := api.IndicatorRequest{Name: parts[0], Input: parts[1], Output: parts[2]}
	if len(parts) == 4 && parts[3] != "" {
		for _, a := range strings.Split(parts[3], ",") {
			n, err := strconv.Atoi(a)
			if err != nil {
				return fmt.Errorf("indicator %q: argument %q is not an integer", s, a)
			}
			ind.Args = append(ind.Args, n)
		}
	}
	*f = append(*f, ind)
	return nil
}

type options struct {
	in             string
	symbols        string
	period         string
	timeColumn     string
	category       string
	labels         string
	indicators     indicatorFlags
	format         string
	policy         string
	expandCategory bool
	expandTime     bool
	separateLabels bool
	forwardFill    bool
	summary        bool
	out            string
	name           string
	logLevel       string
	version        bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("frame-export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.in, "in", "", "source CSV or XLSX file")
	fs.StringVar(&o.symbols, "symbols", "", "comma-separated symbols to fetch instead of reading -in")
	fs.StringVar(&o.period, "period", "", "history period when fetching (default from config)")
	fs.StringVar(&o.timeColumn, "time", marketdata.TimeColumn, "time index column of the source file; empty for none")
	fs.StringVar(&o.category, "category", "", "category column that partitions the source file")
	fs.StringVar(&o.labels, "labels", "", "comma-separated columns exported as labels")
	fs.Var(&o.indicators, "indicator", "column transform name:input:output[:arg,...]; repeatable")
	fs.StringVar(&o.format, "format", "", "output format: "+strings.Join(config.ExportFormats, ", "))
	fs.StringVar(&o.policy, "policy", "", "alignment policy: ignore, pad or remove")
	fs.BoolVar(&o.expandCategory, "expand-category", false, "lay categories side by side")
	fs.BoolVar(&o.expandTime, "expand-time", false, "pivot each unit into one row")
	fs.BoolVar(&o.separateLabels, "separate-labels", false, "write labels to their own file")
	fs.BoolVar(&o.forwardFill, "forward-fill", false, "carry the last observation into gaps")
	fs.BoolVar(&o.summary, "summary", false, "also write per-symbol statistics when fetching")
	fs.StringVar(&o.out, "out", "", "output directory (default from config)")
	fs.StringVar(&o.name, "name", "export", "output file name without extension")
	fs.StringVar(&o.logLevel, "log-level", "", "log level (default from config)")
	fs.BoolVar(&o.version, "version", false, "print version information and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.version {
		return o, nil
	}
	if (o.in == "") == (o.symbols == "") {
		return nil, errors.New("exactly one of -in and -symbols is required")
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if o.version {
		fmt.Fprintln(stdout, contracts.NewVersionInfo(config.AppVersion, "", "").String())
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if o.format != "" {
		cfg.Export.Format = o.format
	}
	if o.policy != "" {
		cfg.Export.Policy = o.policy
	}
	if o.out != "" {
		cfg.Export.OutputDir = o.out
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := infrastructure.NewLogger(stderr, &slog.HandlerOptions{Level: levelOf(cfg.Logging.Level)})
	ctx = infrastructure.EnsureTraceID(ctx)

	if o.symbols != "" {
		return runFetch(ctx, o, cfg, logger, stdout)
	}
	return runFile(ctx, o, cfg, logger, stdout)
}

// runFetch exports bars from the configured provider
func runFetch(ctx context.Context, o *options, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	provider, err := marketdata.NewProvider(cfg.MarketData, logger)
	if err != nil {
		return err
	}
	if c, ok := provider.(interface{ Close() }); ok {
		defer c.Close()
	}
	svc := services.NewExportService(provider, cfg, nil, nil, logger)

	req := api.ExportRequest{
		Symbols:        strings.Split(o.symbols, ","),
		Period:         o.period,
		Indicators:     o.indicators,
		ExpandCategory: &o.expandCategory,
		ExpandTime:     &o.expandTime,
		SeparateLabels: &o.separateLabels,
		ForwardFill:    o.forwardFill,
		Summary:        o.summary,
	}
	if o.labels != "" {
		req.Labels = strings.Split(o.labels, ",")
	}

	result, err := svc.Run(ctx, req)
	if err != nil {
		return err
	}
	result.Response.Files = result.Paths
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result.Response)
}

// runFile exports a CSV or XLSX table
func runFile(ctx context.Context, o *options, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	validator := validation.NewFileValidator(logger)
	kind, err := validator.ValidateSourceFile(o.in)
	if err != nil {
		return apperrors.NewInvalidInputError(err.Error())
	}

	var table *frame.Table
	switch kind {
	case validation.KindCSV:
		f, err := os.Open(o.in)
		if err != nil {
			return err
		}
		defer f.Close()
		table, err = dataprocessing.LoadCSV(f, dataprocessing.LoadOptions{
			TextColumns: nonEmpty(o.category),
			Logger:      logger,
		})
		if err != nil {
			return err
		}
	case validation.KindXLSX:
		table, err = dataprocessing.LoadXLSXWithOptions(o.in, "", dataprocessing.LoadOptions{
			TextColumns: nonEmpty(o.category),
			Logger:      logger,
		})
		if err != nil {
			return err
		}
	}

	var labels []string
	if o.labels != "" {
		labels = strings.Split(o.labels, ",")
	}
	src, err := frame.Build(table, o.timeColumn, o.category, labels...)
	if err != nil {
		return err
	}
	if err := applyIndicators(ctx, src, o, cfg.Export.Concurrency); err != nil {
		return err
	}

	policy, err := frame.ParsePolicy(cfg.Export.Policy)
	if err != nil {
		return err
	}
	opts := frame.ExportOptions{
		ExpandCategory: o.expandCategory,
		ExpandTime:     o.expandTime,
		Policy:         policy,
		SeparateLabels: o.separateLabels,
	}
	if err := validator.ValidateOutputDirectory(cfg.Export.OutputDir); err != nil {
		return apperrors.NewStorageError("invalid output directory", err)
	}

	svc := services.NewExportService(nil, cfg, nil, nil, logger)
	files, exp, err := svc.Encode(ctx, src, opts, cfg.Export.Format, cfg.Export.OutputDir, o.name)
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Fprintln(stdout, f)
	}
	logger.InfoContext(ctx, "export written",
		slog.Int("rows", exp.Data.Len()),
		slog.Int("columns", len(exp.Data.Columns)))
	return nil
}

func applyIndicators(ctx context.Context, src frame.Exportable, o *options, workers int) error {
	for _, ind := range o.indicators {
		if bar, ok := indicators.LookupBar(ind.Name); ok {
			apply := func(m *frame.Container) error {
				return bar(m, indicators.SplitInputs(ind.Input), ind.Output, ind.Args...)
			}
			var err error
			switch s := src.(type) {
			case *frame.Container:
				err = apply(s)
			case *frame.Collection:
				err = s.Apply(ctx, apply, workers)
			}
			if err != nil {
				return err
			}
			continue
		}
		fn, err := transformFor(ind.Name)
		if err != nil {
			return err
		}
		args := make([]any, len(ind.Args))
		for i, a := range ind.Args {
			args[i] = a
		}
		switch s := src.(type) {
		case *frame.Container:
			err = s.Transform(ind.Input, ind.Output, fn, args...)
		case *frame.Collection:
			err = s.Transform(ctx, ind.Input, ind.Output, fn, workers, args...)
		}
		if err != nil {
			return err
		}
	}

	if !o.forwardFill {
		return nil
	}
	switch s := src.(type) {
	case *frame.Container:
		return dataprocessing.NewForwardFillProcessor(dataprocessing.DefaultOptions()).Process(s)
	case *frame.Collection:
		for _, m := range s.Members() {
			if err := dataprocessing.NewForwardFillProcessor(dataprocessing.DefaultOptions()).Process(m); err != nil {
				return err
			}
		}
	}
	return nil
}

func transformFor(name string) (frame.TransformFunc, error) {
	if name == "forward_fill" {
		return dataprocessing.ForwardFill, nil
	}
	return indicators.Lookup(name)
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

func levelOf(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
