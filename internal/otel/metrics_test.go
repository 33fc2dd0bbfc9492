package otel

import (
	"context"
	"testing"
)

func TestNewMetrics_AllInstrumentsCreated(t *testing.T) {
	p, err := Init(context.Background(), Config{Enabled: true, Exporter: "none"})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer p.Shutdown(context.Background())

	m, err := NewMetrics(p.Meter)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	checks := map[string]bool{
		"RequestDuration":  m.RequestDuration != nil,
		"AnalysisDuration": m.AnalysisDuration != nil,
		"AnalysisRuns":     m.AnalysisRuns != nil,
		"TokensAnalyzed":   m.TokensAnalyzed != nil,
		"FileRejects":      m.FileRejects != nil,
		"ChartRenders":     m.ChartRenders != nil,
		"RateLimitRejects": m.RateLimitRejects != nil,
		"ActiveStreams":    m.ActiveStreams != nil,
	}
	for name, ok := range checks {
		if !ok {
			t.Errorf("%s is nil", name)
		}
	}
}

func TestNoopMetrics_Usable(t *testing.T) {
	m := NoopMetrics()
	if m == nil {
		t.Fatal("expected non-nil Metrics")
	}
	m.AnalysisRuns.Add(context.Background(), 1)
	m.AnalysisDuration.Record(context.Background(), 0.01)
}
