package otel

import "go.opentelemetry.io/otel/metric"

// Metrics holds the textlens instruments.
type Metrics struct {
	RequestDuration  metric.Float64Histogram
	AnalysisDuration metric.Float64Histogram
	AnalysisRuns     metric.Int64Counter
	TokensAnalyzed   metric.Int64Counter
	FileRejects      metric.Int64Counter
	ChartRenders     metric.Int64Counter
	RateLimitRejects metric.Int64Counter
	ActiveStreams    metric.Int64UpDownCounter
}

// NewMetrics creates all instruments from the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.RequestDuration, err = meter.Float64Histogram("textlens.request.duration",
		metric.WithDescription("Gateway request duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.AnalysisDuration, err = meter.Float64Histogram("textlens.analysis.duration",
		metric.WithDescription("Analysis run duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.AnalysisRuns, err = meter.Int64Counter("textlens.analysis.runs",
		metric.WithDescription("Analysis runs by outcome"),
	); err != nil {
		return nil, err
	}
	if m.TokensAnalyzed, err = meter.Int64Counter("textlens.analysis.tokens",
		metric.WithDescription("Tokens processed by analysis runs"),
	); err != nil {
		return nil, err
	}
	if m.FileRejects, err = meter.Int64Counter("textlens.session.file_rejects",
		metric.WithDescription("File loads that left the text unchanged"),
	); err != nil {
		return nil, err
	}
	if m.ChartRenders, err = meter.Int64Counter("textlens.render.charts",
		metric.WithDescription("Charts rendered"),
	); err != nil {
		return nil, err
	}
	if m.RateLimitRejects, err = meter.Int64Counter("textlens.ratelimit.rejects",
		metric.WithDescription("Requests rejected by rate limiter"),
	); err != nil {
		return nil, err
	}
	if m.ActiveStreams, err = meter.Int64UpDownCounter("textlens.ws.active",
		metric.WithDescription("Open WebSocket event streams"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// NoopMetrics returns instruments backed by the no-op meter.
func NoopMetrics() *Metrics {
	m, _ := NewMetrics(Noop().Meter)
	return m
}
