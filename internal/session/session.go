// Package session holds the interactive state shared by the gateway, the
// terminal UI and the CLI: the current text, the selected methods, the busy
// flag and the last results.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/basket/textlens/internal/analysis"
	"github.com/basket/textlens/internal/bus"
	"github.com/basket/textlens/internal/otel"
	"github.com/google/uuid"
)

// ErrBusy is returned when an action is attempted during an analysis run.
var ErrBusy = errors.New("analysis in progress")

// Runner executes an analysis. *analysis.Analyzer satisfies it.
type Runner interface {
	Run(ctx context.Context, text string, methods analysis.MethodSet) (*analysis.Results, error)
}

// Config configures a Session.
type Config struct {
	Runner         Runner
	Methods        analysis.MethodSet
	MaxUploadBytes int64
	Bus            *bus.Bus
	Metrics        *otel.Metrics
	Logger         *slog.Logger
}

// Snapshot is a copy of the session state for display.
type Snapshot struct {
	ID         string             `json:"id"`
	Text       string             `json:"text"`
	TextSource string             `json:"text_source,omitempty"`
	FileName   string             `json:"file_name,omitempty"`
	Methods    analysis.MethodSet `json:"methods"`
	Busy       bool               `json:"busy"`
	CanAnalyze bool               `json:"can_analyze"`
	Results    *analysis.Results  `json:"results"`
	Warning    string             `json:"warning,omitempty"`
	LastError  string             `json:"last_error,omitempty"`
}

// Session is safe for concurrent use.
type Session struct {
	id       string
	runner   Runner
	maxBytes int64
	bus      *bus.Bus
	metrics  *otel.Metrics
	logger   *slog.Logger

	mu         sync.Mutex
	text       string
	textSource string
	fileName   string
	methods    analysis.MethodSet
	busy       bool
	results    *analysis.Results
	warning    string
	lastErr    string
}

// New creates a Session. A nil Runner uses a default analysis.Analyzer.
func New(cfg Config) *Session {
	if cfg.Runner == nil {
		cfg.Runner = analysis.New(analysis.Config{Bus: cfg.Bus, Metrics: cfg.Metrics, Logger: cfg.Logger})
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxBytes
	}
	if cfg.Metrics == nil {
		cfg.Metrics = otel.NoopMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		id:       uuid.NewString(),
		runner:   cfg.Runner,
		maxBytes: cfg.MaxUploadBytes,
		bus:      cfg.Bus,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		methods:  cfg.Methods,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// MaxUploadBytes returns the largest accepted file size.
func (s *Session) MaxUploadBytes() int64 { return s.maxBytes }

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:         s.id,
		Text:       s.text,
		TextSource: s.textSource,
		FileName:   s.fileName,
		Methods:    s.methods,
		Busy:       s.busy,
		CanAnalyze: s.canAnalyzeLocked(),
		Results:    s.results,
		Warning:    s.warning,
		LastError:  s.lastErr,
	}
}

// CanAnalyze reports whether Analyze would start a run: not busy, non-empty
// text and at least one method.
func (s *Session) CanAnalyze() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canAnalyzeLocked()
}

func (s *Session) canAnalyzeLocked() bool {
	return !s.busy && s.text != "" && !s.methods.Empty()
}

// Busy reports whether an analysis is running.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// SetText replaces the text.
func (s *Session) SetText(text string) error {
	return s.replaceText(text, "input", "")
}

func (s *Session) replaceText(text, source, fileName string) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	s.text = text
	s.textSource = source
	s.fileName = fileName
	s.warning = ""
	s.mu.Unlock()

	s.bus.Publish(bus.TopicSessionTextChanged, bus.TextChangedEvent{
		SessionID: s.id,
		Source:    source,
		FileName:  fileName,
		Length:    len(text),
	})
	return nil
}

// ToggleMethod flips m in the selected set and returns the new set.
func (s *Session) ToggleMethod(m analysis.Method) (analysis.MethodSet, error) {
	if !m.Valid() {
		return 0, fmt.Errorf("%w: %q", analysis.ErrUnknownMethod, m)
	}
	return s.updateMethods(func(cur analysis.MethodSet) analysis.MethodSet { return cur.Toggle(m) })
}

// SetMethods replaces the selected set.
func (s *Session) SetMethods(methods analysis.MethodSet) error {
	_, err := s.updateMethods(func(analysis.MethodSet) analysis.MethodSet { return methods })
	return err
}

func (s *Session) updateMethods(fn func(analysis.MethodSet) analysis.MethodSet) (analysis.MethodSet, error) {
	s.mu.Lock()
	if s.busy {
		cur := s.methods
		s.mu.Unlock()
		return cur, ErrBusy
	}
	s.methods = fn(s.methods)
	next := s.methods
	s.mu.Unlock()

	s.bus.Publish(bus.TopicSessionMethodsChanged, bus.MethodsChangedEvent{SessionID: s.id, Methods: next.IDs()})
	return next, nil
}

// Analyze runs the selected methods over the current text and stores the
// results. It returns ErrBusy if a run is already active and
// analysis.ErrNothingToAnalyze when the text or method set is empty. The
// busy flag is cleared on every exit path, panics included.
func (s *Session) Analyze(ctx context.Context) (*analysis.Results, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if s.text == "" || s.methods.Empty() {
		s.mu.Unlock()
		return nil, analysis.ErrNothingToAnalyze
	}
	text, methods := s.text, s.methods
	s.busy = true
	s.lastErr = ""
	s.mu.Unlock()
	s.bus.Publish(bus.TopicSessionBusyChanged, bus.BusyChangedEvent{SessionID: s.id, Busy: true})

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
		s.bus.Publish(bus.TopicSessionBusyChanged, bus.BusyChangedEvent{SessionID: s.id, Busy: false})
	}()

	res, err := s.runner.Run(ctx, text, methods)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
		s.logger.Warn("session analysis failed", "session_id", s.id, "error", err)
		return nil, err
	}

	s.mu.Lock()
	s.results = res
	s.mu.Unlock()
	return res, nil
}

// Results returns the last successful results, or nil.
func (s *Session) Results() *analysis.Results {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}
