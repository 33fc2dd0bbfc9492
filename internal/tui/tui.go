// Package tui is the interactive terminal front end over a session.
package tui

import (
	"context"
	"log/slog"
	"time"

	"github.com/basket/textlens/internal/analysis"
	"github.com/basket/textlens/internal/bus"
	"github.com/basket/textlens/internal/config"
	"github.com/basket/textlens/internal/session"
	tea "github.com/charmbracelet/bubbletea"
)

// Config configures the terminal UI.
type Config struct {
	Session *session.Session
	Bus     *bus.Bus
	// InputFile is loaded with "o" and reloaded when it changes on disk.
	InputFile string
	Logger    *slog.Logger
}

type model struct {
	ctx       context.Context
	sess      *session.Session
	sub       *bus.Subscription
	fileCh    <-chan config.ChangeEvent
	inputFile string

	snap     session.Snapshot
	cursor   int
	pending  bool
	status   string
	activity *ActivityFeed
	width    int
	spin     int
}

type (
	analysisDoneMsg struct {
		res *analysis.Results
		err error
	}
	loadDoneMsg   struct{ err error }
	busEventMsg   bus.Event
	fileChangeMsg config.ChangeEvent
	tickMsg       time.Time
)

func newModel(ctx context.Context, cfg Config) model {
	m := model{
		ctx:       ctx,
		sess:      cfg.Session,
		inputFile: cfg.InputFile,
		activity:  NewActivityFeed(),
		width:     80,
	}
	m.snap = m.sess.Snapshot()
	if cfg.Bus != nil {
		m.sub = cfg.Bus.Subscribe("")
	}
	return m
}

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitForEvent(sub *bus.Subscription) tea.Cmd {
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-sub.Ch()
		if !ok {
			return nil
		}
		return busEventMsg(ev)
	}
}

func waitForFileChange(ch <-chan config.ChangeEvent) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return fileChangeMsg(ev)
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), waitForEvent(m.sub), waitForFileChange(m.fileCh))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tickMsg:
		m.spin++
		m.activity.CleanupOld(2 * time.Minute)
		m.snap = m.sess.Snapshot()
		return m, tickCmd()
	case busEventMsg:
		m.activity.Observe(bus.Event(msg))
		m.snap = m.sess.Snapshot()
		return m, waitForEvent(m.sub)
	case fileChangeMsg:
		var cmd tea.Cmd
		m, cmd = m.load()
		return m, tea.Batch(cmd, waitForFileChange(m.fileCh))
	case analysisDoneMsg:
		m.pending = false
		m.snap = m.sess.Snapshot()
		if msg.err != nil {
			m.status = humanError(msg.err)
		} else {
			m.status = ""
		}
	case loadDoneMsg:
		m.snap = m.sess.Snapshot()
		if msg.err != nil {
			m.status = humanError(msg.err)
		} else {
			m.status = "Loaded " + m.snap.FileName
		}
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(analysis.AllMethods)-1 {
			m.cursor++
		}
	case " ", "x":
		if _, err := m.sess.ToggleMethod(analysis.AllMethods[m.cursor]); err != nil {
			m.status = humanError(err)
		}
		m.snap = m.sess.Snapshot()
	case "a", "enter":
		return m.analyze()
	case "o":
		return m.load()
	case "l":
		m.activity.Toggle()
	}
	return m, nil
}

// analyze starts a run unless one is in flight or nothing is selected.
func (m model) analyze() (model, tea.Cmd) {
	if m.pending || !m.sess.CanAnalyze() {
		if !m.pending {
			m.status = humanError(analysis.ErrNothingToAnalyze)
		}
		return m, nil
	}
	m.pending = true
	m.status = ""
	sess, ctx := m.sess, m.ctx
	return m, func() tea.Msg {
		res, err := sess.Analyze(ctx)
		return analysisDoneMsg{res: res, err: err}
	}
}

func (m model) load() (model, tea.Cmd) {
	if m.inputFile == "" {
		m.status = "No input file configured (set analysis.input_file or TEXTLENS_INPUT)"
		return m, nil
	}
	sess, ctx, path := m.sess, m.ctx, m.inputFile
	return m, func() tea.Msg {
		return loadDoneMsg{err: sess.LoadPath(ctx, path)}
	}
}

func (m model) busy() bool {
	return m.pending || m.snap.Busy
}

// Run starts the terminal UI and blocks until the user quits or ctx is done.
func Run(ctx context.Context, cfg Config) error {
	defer bestEffortResetTTY()

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	m := newModel(ctx, cfg)
	if m.sub != nil {
		defer cfg.Bus.Unsubscribe(m.sub)
	}
	if cfg.InputFile != "" {
		w := config.NewWatcher(cfg.Logger, cfg.InputFile)
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := w.Start(watchCtx); err != nil {
				cfg.Logger.Warn("input watcher stopped", "error", err)
			}
		}()
		m.fileCh = w.Events()
		if err := cfg.Session.LoadPath(ctx, cfg.InputFile); err != nil {
			m.status = humanError(err)
		}
		m.snap = cfg.Session.Snapshot()
	}

	p := tea.NewProgram(m, tea.WithContext(ctx))

	done := make(chan error, 1)
	go func() {
		_, err := p.Run()
		done <- err
	}()

	select {
	case <-ctx.Done():
		p.Quit()
		return ctx.Err()
	case err := <-done:
		return err
	}
}
