package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"gpsummary/internal/config"
	"gpsummary/internal/infrastructure"
	"gpsummary/internal/loader"
	"gpsummary/internal/transform"
	"gpsummary/pkg/contracts/domain"
)

var noopTracer = noop.NewTracerProvider().Tracer(infrastructure.InstrumentationName)

// Result is the outcome of a successful run. Release frees the table.
type Result struct {
	RunID    string
	Table    arrow.RecordBatch
	Load     loader.Stats
	Summary  []ColumnSummary
	Duration time.Duration
}

// Release releases the result table.
func (r *Result) Release() {
	if r != nil && r.Table != nil {
		r.Table.Release()
		r.Table = nil
	}
}

// Runner loads the practice dataset and applies the transformation steps.
type Runner struct {
	location  loader.Location
	loader    *loader.Loader
	steps     []transform.Step
	telemetry *infrastructure.Telemetry
	logger    *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLoader replaces the default loader.
func WithLoader(l *loader.Loader) Option {
	return func(r *Runner) { r.loader = l }
}

// WithSteps replaces the transformation steps.
func WithSteps(steps ...transform.Step) Option {
	return func(r *Runner) { r.steps = steps }
}

// WithTelemetry records spans and metrics through tel.
func WithTelemetry(tel *infrastructure.Telemetry) Option {
	return func(r *Runner) { r.telemetry = tel }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a runner for the dataset at loc.
func NewRunner(loc loader.Location, opts ...Option) *Runner {
	r := newRunner(loc, opts)
	if r.loader == nil {
		r.loader = loader.New(loader.WithLogger(r.logger))
	}
	return r
}

func newRunner(loc loader.Location, opts []Option) *Runner {
	r := &Runner{
		location: loc,
		steps:    transform.Steps(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewRunnerFromConfig creates a runner for the configured dataset. A loader
// given with WithLoader takes precedence over the configured format, sheet
// and CSV chunk size.
func NewRunnerFromConfig(cfg *config.Config, opts ...Option) (*Runner, error) {
	format, err := loader.ParseFormat(cfg.Data.Format)
	if err != nil {
		return nil, err
	}

	r := newRunner(loader.Location{Dir: cfg.Data.Dir, File: cfg.Data.File}, opts)
	if r.loader == nil {
		r.loader = loader.New(
			loader.WithLogger(r.logger),
			loader.WithFormat(format),
			loader.WithSheet(cfg.Data.Sheet),
			loader.WithCSVChunk(cfg.Data.CSVChunk),
		)
	}
	return r, nil
}

// Run loads the dataset, applies every step in order and summarizes the
// derived columns. A run id is taken from ctx or generated. The caller
// releases the result.
func (r *Runner) Run(ctx context.Context) (result *Result, err error) {
	start := time.Now()
	runID := infrastructure.RunID(ctx)
	if runID == "" {
		runID = infrastructure.NewRunID()
		ctx = infrastructure.WithRunID(ctx, runID)
	}

	ctx, span := r.tracer().Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("run.id", runID)))
	defer func() {
		if err != nil {
			infrastructure.RecordError(ctx, err)
			r.logger.ErrorContext(ctx, "Pipeline failed",
				slog.String("error", err.Error()),
				slog.Duration("duration", time.Since(start)))
		}
		if m := r.metrics(); m != nil {
			m.Runs.Add(ctx, 1, metric.WithAttributes(infrastructure.StatusAttr(err)))
		}
		span.End()
	}()

	r.logger.InfoContext(ctx, "Pipeline started",
		slog.String("data_dir", r.location.Dir),
		slog.String("data_file", r.location.File),
		slog.Int("steps", len(r.steps)))

	table, stats, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	for _, step := range r.steps {
		if err := ctx.Err(); err != nil {
			table.Release()
			return nil, err
		}
		out, err := r.runStep(ctx, step, table)
		table.Release()
		if err != nil {
			return nil, err
		}
		table = out
	}

	result = &Result{
		RunID:    runID,
		Table:    table,
		Load:     stats,
		Summary:  Summarize(ctx, table, domain.DerivedColumns),
		Duration: time.Since(start),
	}

	for _, s := range result.Summary {
		r.logger.InfoContext(ctx, "Derived column", slog.String("column", s.Column), slog.Any("summary", s))
	}
	r.logger.InfoContext(ctx, "Pipeline finished",
		slog.Int64("rows", table.NumRows()),
		slog.Int64("columns", table.NumCols()),
		slog.Duration("duration", result.Duration))
	return result, nil
}

func (r *Runner) load(ctx context.Context) (arrow.RecordBatch, loader.Stats, error) {
	ctx, span := r.tracer().Start(ctx, "pipeline.load")
	defer span.End()

	table, stats, err := r.loader.LoadWithStats(ctx, r.location)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, stats, fmt.Errorf("load: %w", err)
	}

	span.SetAttributes(
		attribute.Int("rows.read", stats.RowsRead),
		attribute.Int("rows.kept", stats.RowsKept))
	if m := r.metrics(); m != nil {
		m.RowsLoaded.Add(ctx, int64(stats.RowsKept))
		m.RowsDropped.Add(ctx, int64(stats.DroppedNull), metric.WithAttributes(attribute.String("reason", "null")))
		m.RowsDropped.Add(ctx, int64(stats.DroppedZero), metric.WithAttributes(attribute.String("reason", "zero")))
	}
	return table, stats, nil
}

// runStep applies step to in. in stays owned by the caller.
func (r *Runner) runStep(ctx context.Context, step transform.Step, in arrow.RecordBatch) (arrow.RecordBatch, error) {
	ctx, span := r.tracer().Start(ctx, "pipeline.step."+step.Name)
	defer span.End()

	start := time.Now()
	out, err := step.Fn(ctx, in)
	elapsed := time.Since(start)

	if m := r.metrics(); m != nil {
		attrs := metric.WithAttributes(attribute.String("step", step.Name), infrastructure.StatusAttr(err))
		m.StepDuration.Record(ctx, elapsed.Seconds(), attrs)
		if err != nil {
			m.StepErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("step", step.Name)))
		}
	}
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, fmt.Errorf("step %s: %w", step.Name, err)
	}

	r.logger.DebugContext(ctx, "Step completed",
		slog.String("step", step.Name),
		slog.Int64("columns_added", out.NumCols()-in.NumCols()),
		slog.Duration("duration", elapsed))
	return out, nil
}

func (r *Runner) tracer() trace.Tracer {
	if r.telemetry == nil || r.telemetry.Tracer == nil {
		return noopTracer
	}
	return r.telemetry.Tracer
}

func (r *Runner) metrics() *infrastructure.PipelineMetrics {
	if r.telemetry == nil {
		return nil
	}
	return r.telemetry.Metrics
}
