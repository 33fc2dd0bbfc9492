package tui

import (
	"errors"
	"strings"

	"github.com/basket/textlens/internal/analysis"
	"github.com/basket/textlens/internal/session"
)

// humanError turns an error into a short status line.
// "analysis 1f2e: context canceled" → "Context canceled"
func humanError(err error) string {
	if err == nil {
		return ""
	}
	var warn *session.Warning
	switch {
	case errors.As(err, &warn):
		if warn.FileName != "" {
			return capitalize(warn.Err.Error()) + " (" + warn.FileName + ")"
		}
		return capitalize(warn.Err.Error())
	case errors.Is(err, session.ErrBusy):
		return "Analysis already running"
	case errors.Is(err, analysis.ErrNothingToAnalyze):
		return "Load text and select at least one method"
	}
	msg := err.Error()
	if idx := strings.LastIndex(msg, ": "); idx != -1 && idx+2 < len(msg) {
		return capitalize(msg[idx+2:])
	}
	return capitalize(msg)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
