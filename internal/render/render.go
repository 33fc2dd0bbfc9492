// Package render draws analysis results as charts with go-chart and as
// plain text gauges for terminals.
package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/basket/textlens/internal/analysis"
	"github.com/basket/textlens/internal/otel"
	"github.com/wcharczuk/go-chart"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ErrNoData is returned when the results hold nothing to draw for a chart.
var ErrNoData = errors.New("no data to render")

// Kind selects a chart.
type Kind string

const (
	KindFrequency Kind = "frequency"
	KindEntropy   Kind = "entropy"
	KindPOS       Kind = "pos"
)

// Kinds lists every chart kind.
var Kinds = []Kind{KindFrequency, KindEntropy, KindPOS}

// ParseKind accepts a chart kind id.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(s))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown chart %q", s)
}

// Format is an output encoding.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ParseFormat accepts "svg" or "png".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatSVG, FormatPNG:
		return f, nil
	}
	return "", fmt.Errorf("unknown chart format %q", s)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/svg+xml"
}

func (f Format) provider() chart.RendererProvider {
	if f == FormatPNG {
		return chart.PNG
	}
	return chart.SVG
}

// Renderer draws charts and records render metrics.
type Renderer struct {
	tracer  trace.Tracer
	metrics *otel.Metrics
}

// NewRenderer creates a Renderer. Nil arguments select no-op telemetry.
func NewRenderer(tracer trace.Tracer, metrics *otel.Metrics) *Renderer {
	if tracer == nil {
		tracer = otel.Noop().Tracer
	}
	if metrics == nil {
		metrics = otel.NoopMetrics()
	}
	return &Renderer{tracer: tracer, metrics: metrics}
}

// Render writes the chart of kind for res to w.
func (r *Renderer) Render(ctx context.Context, w io.Writer, kind Kind, format Format, res *analysis.Results) error {
	_, span := otel.StartSpan(ctx, r.tracer, "render.chart", otel.AttrChartKind.String(string(kind)))
	defer span.End()

	err := Chart(w, kind, format, res)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if errors.Is(err, ErrNoData) {
			outcome = "no_data"
		}
		span.SetStatus(codes.Error, err.Error())
	}
	r.metrics.ChartRenders.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("format", string(format)),
		attribute.String("outcome", outcome),
	))
	return err
}

// WriteAll renders every chart with data into dir as <kind>.<format> and
// returns the written paths. Kinds without data are skipped.
func (r *Renderer) WriteAll(ctx context.Context, dir string, format Format, res *analysis.Results) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chart dir: %w", err)
	}
	var written []string
	for _, kind := range Kinds {
		path := filepath.Join(dir, string(kind)+"."+string(format))
		if err := r.writeFile(ctx, path, kind, format, res); err != nil {
			if errors.Is(err, ErrNoData) {
				continue
			}
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func (r *Renderer) writeFile(ctx context.Context, path string, kind Kind, format Format, res *analysis.Results) error {
	if !HasData(kind, res) {
		return ErrNoData
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := r.Render(ctx, f, kind, format, res); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// HasData reports whether res holds anything to draw for kind.
func HasData(kind Kind, res *analysis.Results) bool {
	if res == nil {
		return false
	}
	switch kind {
	case KindFrequency:
		return len(res.WordFrequency) > 0
	case KindEntropy:
		return len(res.Entropy) > 0
	case KindPOS:
		return res.POS != nil && len(res.POS.Tags) > 0
	}
	return false
}

// Chart writes the chart of kind for res to w without telemetry.
func Chart(w io.Writer, kind Kind, format Format, res *analysis.Results) error {
	if !HasData(kind, res) {
		return fmt.Errorf("%s chart: %w", kind, ErrNoData)
	}
	switch kind {
	case KindFrequency:
		return FrequencyChart(w, format, res.WordFrequency)
	case KindEntropy:
		return EntropyChart(w, format, res.Entropy)
	case KindPOS:
		return POSChart(w, format, res.POS.Tags)
	}
	return fmt.Errorf("unknown chart %q", kind)
}
