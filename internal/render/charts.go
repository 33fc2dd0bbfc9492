package render

import (
	"fmt"
	"io"

	"github.com/basket/textlens/internal/analysis"
	"github.com/wcharczuk/go-chart"
)

const (
	chartHeight  = 400
	barWidth     = 48
	barSpacing   = 24
	minBarsWidth = 480
)

// FrequencyChart draws one bar per ranked word.
func FrequencyChart(w io.Writer, format Format, counts []analysis.WordCount) error {
	if len(counts) == 0 {
		return fmt.Errorf("frequency chart: %w", ErrNoData)
	}
	bars := make([]chart.Value, 0, len(counts))
	maxCount := 1
	for _, c := range counts {
		bars = append(bars, chart.Value{Label: c.Word, Value: float64(c.Count)})
		if c.Count > maxCount {
			maxCount = c.Count
		}
	}
	width := len(bars)*(barWidth+barSpacing) + 2*barSpacing + 160
	if width < minBarsWidth {
		width = minBarsWidth
	}

	graph := chart.BarChart{
		Title:      "Word Frequency",
		TitleStyle: chart.StyleShow(),
		Width:      width,
		Height:     chartHeight,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		XAxis:      chart.StyleShow(),
		YAxis: chart.YAxis{
			Style: chart.StyleShow(),
			Range: &chart.ContinuousRange{Min: 0, Max: float64(maxCount)},
		},
		Bars: bars,
	}
	if err := graph.Render(format.provider(), w); err != nil {
		return fmt.Errorf("frequency chart: %w", err)
	}
	return nil
}

// EntropyChart draws entropy against prefix length with the y axis from 0.
func EntropyChart(w io.Writer, format Format, samples []analysis.EntropySample) error {
	if len(samples) == 0 {
		return fmt.Errorf("entropy chart: %w", ErrNoData)
	}
	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	maxEntropy := 1.0
	for i, s := range samples {
		xs[i] = float64(s.Words)
		ys[i] = s.Entropy
		if s.Entropy > maxEntropy {
			maxEntropy = s.Entropy
		}
	}

	graph := chart.Chart{
		Title:      "Text Entropy Analysis",
		TitleStyle: chart.StyleShow(),
		Height:     chartHeight,
		XAxis: chart.XAxis{
			Name:      "Words",
			NameStyle: chart.StyleShow(),
			Style:     chart.StyleShow(),
			Range:     &chart.ContinuousRange{Min: 0, Max: xs[len(xs)-1]},
		},
		YAxis: chart.YAxis{
			Name:      "Entropy (bits)",
			NameStyle: chart.StyleShow(),
			Style:     chart.StyleShow(),
			Range:     &chart.ContinuousRange{Min: 0, Max: maxEntropy},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Entropy",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					Show:        true,
					StrokeColor: chart.ColorBlue,
					StrokeWidth: 2,
				},
			},
		},
	}
	if err := graph.Render(format.provider(), w); err != nil {
		return fmt.Errorf("entropy chart: %w", err)
	}
	return nil
}

// POSChart draws the part-of-speech mix as a pie.
func POSChart(w io.Writer, format Format, shares []analysis.POSShare) error {
	values := make([]chart.Value, 0, len(shares))
	for _, s := range shares {
		if s.Value <= 0 {
			continue
		}
		values = append(values, chart.Value{Label: s.Tag, Value: s.Value})
	}
	if len(values) == 0 {
		return fmt.Errorf("pos chart: %w", ErrNoData)
	}
	graph := chart.PieChart{
		Title:      "Part of Speech (placeholder)",
		TitleStyle: chart.StyleShow(),
		Width:      chartHeight,
		Height:     chartHeight,
		Values:     values,
	}
	if err := graph.Render(format.provider(), w); err != nil {
		return fmt.Errorf("pos chart: %w", err)
	}
	return nil
}
