package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/basket/textlens/internal/bus"
	"github.com/basket/textlens/internal/otel"
	"github.com/basket/textlens/internal/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ErrNothingToAnalyze is returned when the text is empty or no method is selected.
var ErrNothingToAnalyze = errors.New("nothing to analyze")

// Config configures an Analyzer. Zero values select defaults.
type Config struct {
	TopN        int
	EntropyStep int
	// Delay is waited before computing, to mimic a slow backend.
	Delay   time.Duration
	Random  RandomSource
	Bus     *bus.Bus
	Tracer  trace.Tracer
	Metrics *otel.Metrics
	Logger  *slog.Logger
}

// Analyzer runs analysis methods and reports each run on the bus and in telemetry.
type Analyzer struct {
	topN        int
	entropyStep int
	delay       time.Duration
	placeholder Placeholder
	bus         *bus.Bus
	tracer      trace.Tracer
	metrics     *otel.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

// New creates an Analyzer.
func New(cfg Config) *Analyzer {
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	if cfg.EntropyStep <= 0 {
		cfg.EntropyStep = DefaultEntropyStep
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Noop().Tracer
	}
	if cfg.Metrics == nil {
		cfg.Metrics = otel.NoopMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Analyzer{
		topN:        cfg.TopN,
		entropyStep: cfg.EntropyStep,
		delay:       cfg.Delay,
		placeholder: NewPlaceholder(cfg.Random),
		bus:         cfg.Bus,
		tracer:      cfg.Tracer,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		now:         time.Now,
	}
}

// Run analyzes text with the selected methods. The run id is taken from ctx
// when present. Empty text or an empty set returns ErrNothingToAnalyze
// without publishing anything.
func (a *Analyzer) Run(ctx context.Context, text string, methods MethodSet) (*Results, error) {
	if text == "" || methods.Empty() {
		return nil, ErrNothingToAnalyze
	}

	runID := shared.RunID(ctx)
	if runID == "" {
		runID = shared.NewRunID()
		ctx = shared.WithRunID(ctx, runID)
	}
	ctx, span := otel.StartSpan(ctx, a.tracer, "analysis.run",
		otel.AttrRunID.String(runID),
		otel.AttrMethods.StringSlice(methods.IDs()),
	)
	defer span.End()

	started := a.now()
	a.bus.Publish(bus.TopicAnalysisStarted, bus.AnalysisStartedEvent{RunID: runID, Methods: methods.IDs()})
	a.logger.Debug("analysis started", "trace_id", shared.TraceID(ctx), "run_id", runID, "methods", methods.String())

	if err := a.wait(ctx); err != nil {
		a.fail(ctx, span, runID, err)
		return nil, fmt.Errorf("analysis %s: %w", runID, err)
	}

	res := Compute(text, methods, a.topN, a.entropyStep, a.placeholder)
	res.RunID = runID
	res.StartedAt = started.UTC()
	elapsed := a.now().Sub(started)
	res.DurationMS = float64(elapsed.Microseconds()) / 1000

	outcome := attribute.String("outcome", "ok")
	a.metrics.AnalysisRuns.Add(ctx, 1, metric.WithAttributes(outcome))
	a.metrics.AnalysisDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(outcome))
	a.metrics.TokensAnalyzed.Add(ctx, int64(res.TokenCount))
	span.SetAttributes(otel.AttrTokenCount.Int(res.TokenCount), otel.AttrOutcome.String("ok"))

	a.bus.Publish(bus.TopicAnalysisCompleted, bus.AnalysisCompletedEvent{
		RunID:      runID,
		TokenCount: res.TokenCount,
		DurationMS: res.DurationMS,
	})
	a.logger.Info("analysis completed",
		"trace_id", shared.TraceID(ctx),
		"run_id", runID,
		"tokens", res.TokenCount,
		"duration_ms", res.DurationMS,
	)
	return res, nil
}

// TopN is the configured ranking length.
func (a *Analyzer) TopN() int { return a.topN }

// EntropyStep is the configured sample spacing.
func (a *Analyzer) EntropyStep() int { return a.entropyStep }

func (a *Analyzer) wait(ctx context.Context) error {
	if a.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(a.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (a *Analyzer) fail(ctx context.Context, span trace.Span, runID string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(otel.AttrOutcome.String("error"))
	a.metrics.AnalysisRuns.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(attribute.String("outcome", "error")))
	a.bus.Publish(bus.TopicAnalysisFailed, bus.AnalysisFailedEvent{RunID: runID, Error: err.Error()})
	a.logger.Warn("analysis failed", "trace_id", shared.TraceID(ctx), "run_id", runID, "error", err)
}
