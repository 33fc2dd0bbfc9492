package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/basket/textlens/internal/analysis"
	"github.com/basket/textlens/internal/render"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	focusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const previewLines = 3

func (m model) View() string {
	var b strings.Builder
	title := titleStyle.Render("Text Analysis Suite")
	if m.activity.HasActive() {
		title += " " + dimStyle.Render(spinnerFrames[m.spin%len(spinnerFrames)]+" run active")
	}
	b.WriteString(title + "\n")
	b.WriteString(dimStyle.Render("Sentiment and POS values are random placeholders.") + "\n\n")

	b.WriteString(headingStyle.Render("Methods") + "\n")
	for i, meth := range analysis.AllMethods {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		check := "[ ]"
		if m.snap.Methods.Has(meth) {
			check = "[x]"
		}
		line := fmt.Sprintf("%s%s %s", cursor, check, meth.Label())
		if meth.Placeholder() {
			line += dimStyle.Render(" (placeholder)")
		}
		if i == m.cursor {
			line = focusStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")

	b.WriteString(headingStyle.Render("Text") + "\n")
	b.WriteString(boxStyle.Width(m.boxWidth()).Render(m.preview()) + "\n")

	switch {
	case m.busy():
		frame := spinnerFrames[m.spin%len(spinnerFrames)]
		b.WriteString(focusStyle.Render(frame+" Analyzing...") + "\n")
	case m.status != "":
		b.WriteString(warnStyle.Render(m.status) + "\n")
	case m.snap.Warning != "":
		b.WriteString(warnStyle.Render(m.snap.Warning) + "\n")
	}

	if res := m.snap.Results; res != nil {
		b.WriteString("\n" + resultsView(res, m.barWidth()))
	}

	if feed := m.activity.View(); feed != "" {
		b.WriteString("\n" + feed)
	}

	analyzeHint := "[a] Analyze"
	if m.busy() || !m.snap.CanAnalyze {
		analyzeHint = dimStyle.Render(analyzeHint)
	}
	b.WriteString("\n[↑↓] Move  [space] Toggle  " + analyzeHint + "  [o] Load file  [l] Activity  [q] Quit\n")
	return b.String()
}

func (m model) boxWidth() int {
	if m.width > 10 {
		return m.width - 4
	}
	return 76
}

func (m model) barWidth() int {
	w := m.width - 30
	if w < 10 {
		return 10
	}
	if w > 50 {
		return 50
	}
	return w
}

func (m model) preview() string {
	if m.snap.Text == "" {
		return dimStyle.Render("(no text; press o to load the input file)")
	}
	lines := strings.Split(strings.TrimRight(m.snap.Text, "\n"), "\n")
	more := len(lines) > previewLines
	if more {
		lines = lines[:previewLines]
	}
	limit := m.boxWidth() - 4
	for i, l := range lines {
		if r := []rune(l); limit > 1 && len(r) > limit {
			lines[i] = string(r[:limit-1]) + "…"
		}
	}
	out := strings.Join(lines, "\n")
	src := fmt.Sprintf("%d chars", len(m.snap.Text))
	if m.snap.FileName != "" {
		src = m.snap.FileName + ", " + src
	}
	if more {
		out += "\n" + dimStyle.Render("…")
	}
	return out + "\n" + dimStyle.Render(src)
}

func resultsView(res *analysis.Results, width int) string {
	var b strings.Builder
	b.WriteString(dimStyle.Render(fmt.Sprintf("run %s · %d tokens · %.1f ms", shortID(res.RunID), res.TokenCount, res.DurationMS)) + "\n")

	if res.Methods.Has(analysis.MethodFrequency) {
		b.WriteString("\n" + headingStyle.Render(analysis.MethodFrequency.Label()) + "\n")
		b.WriteString(frequencyView(res.WordFrequency, width))
	}
	if res.Methods.Has(analysis.MethodEntropy) {
		b.WriteString("\n" + headingStyle.Render(analysis.MethodEntropy.Label()) + "\n")
		b.WriteString(entropyView(res.Entropy))
	}
	if res.Sentiment != nil {
		b.WriteString("\n" + headingStyle.Render(analysis.MethodSentiment.Label()) + dimStyle.Render(" (placeholder)") + "\n")
		b.WriteString(render.SentimentSummary(res.Sentiment.Score, 21) + "\n")
	}
	if res.POS != nil {
		b.WriteString("\n" + headingStyle.Render(analysis.MethodPOS.Label()) + dimStyle.Render(" (placeholder)") + "\n")
		b.WriteString(posView(res.POS.Tags, width))
	}
	return b.String()
}

func frequencyView(counts []analysis.WordCount, width int) string {
	if len(counts) == 0 {
		return dimStyle.Render("no words") + "\n"
	}
	wordW := 0
	for _, c := range counts {
		if n := len([]rune(c.Word)); n > wordW {
			wordW = n
		}
	}
	if wordW > 16 {
		wordW = 16
	}
	maxCount := float64(counts[0].Count)
	var b strings.Builder
	for _, c := range counts {
		word := c.Word
		if r := []rune(word); len(r) > wordW {
			word = string(r[:wordW-1]) + "…"
		}
		bar := barStyle.Render(render.Bar(float64(c.Count), maxCount, width))
		fmt.Fprintf(&b, "%-*s %s %d\n", wordW, word, bar, c.Count)
	}
	return b.String()
}

func entropyView(samples []analysis.EntropySample) string {
	if len(samples) == 0 {
		return dimStyle.Render("needs at least 100 words") + "\n"
	}
	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Entropy
	}
	var b strings.Builder
	b.WriteString(barStyle.Render(sparkline(values)) + "\n")
	shown := samples
	if len(shown) > 8 {
		shown = shown[len(shown)-8:]
		b.WriteString(dimStyle.Render(fmt.Sprintf("(last 8 of %d samples)", len(samples))) + "\n")
	}
	for _, s := range shown {
		fmt.Fprintf(&b, "%7d words  %.3f bits\n", s.Words, s.Entropy)
	}
	return b.String()
}

func posView(shares []analysis.POSShare, width int) string {
	maxV := 0.0
	for _, s := range shares {
		maxV = math.Max(maxV, s.Value)
	}
	var b strings.Builder
	for _, s := range shares {
		fmt.Fprintf(&b, "%-9s %s %.1f\n", s.Tag, barStyle.Render(render.Bar(s.Value, maxV, width)), s.Value)
	}
	return b.String()
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// sparkline scales values between zero and their maximum.
func sparkline(values []float64) string {
	maxV := 0.0
	for _, v := range values {
		maxV = math.Max(maxV, v)
	}
	out := make([]rune, len(values))
	for i, v := range values {
		idx := 0
		if maxV > 0 {
			idx = int(math.Round(v / maxV * float64(len(sparkRunes)-1)))
		}
		out[i] = sparkRunes[idx]
	}
	return string(out)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
