package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/basket/textlens/internal/analysis"
	"github.com/basket/textlens/internal/audit"
	"github.com/basket/textlens/internal/bus"
	"github.com/basket/textlens/internal/config"
	"github.com/basket/textlens/internal/cron"
	"github.com/basket/textlens/internal/gateway"
	otelPkg "github.com/basket/textlens/internal/otel"
	"github.com/basket/textlens/internal/render"
	"github.com/basket/textlens/internal/session"
	"github.com/basket/textlens/internal/telemetry"
	"github.com/basket/textlens/internal/tui"
	"github.com/mattn/go-isatty"
)

// Version is set via ldflags at build time: -ldflags "-X main.Version=..."
var Version = "v0.3-dev"

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage of %[1]s:

INTERACTIVE MODE (default on a terminal):
  %[1]s                          Start the terminal UI and the local gateway

SUBCOMMANDS:
  %[1]s serve                    Run the HTTP gateway only (logs to stdout)
  %[1]s analyze [flags] [file|-] One-shot analysis of a .txt file or stdin
                              Flags: -m list, -json, -chart-dir dir, -format svg|png
  %[1]s watch [-m list] file     Re-run analysis whenever file changes
  %[1]s status                   Show gateway health (/healthz)
  %[1]s methods [-json]          List analysis methods
  %[1]s init                     Write a default config.yaml
  %[1]s doctor [-json]           Run diagnostic checks

ENVIRONMENT VARIABLES:
  TEXTLENS_HOME           Data directory (default: ~/.textlens)
  TEXTLENS_NO_TUI         Set to 1 to serve without the terminal UI
  TEXTLENS_BIND_ADDR      Gateway listen address
  TEXTLENS_AUTH_TOKEN     Bearer token required on /api and /ws
  TEXTLENS_INPUT          Input file for the TUI and gateway session
  TEXTLENS_METHODS        Default methods, comma separated
  TEXTLENS_DELAY_MS       Simulated analysis delay
`, os.Args[0])
}

func main() {
	interactive := isatty.IsTerminal(os.Stdout.Fd()) && os.Getenv("TEXTLENS_NO_TUI") == ""
	flag.Usage = printUsage
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if args := flag.Args(); len(args) > 0 {
		switch strings.ToLower(strings.TrimSpace(args[0])) {
		case "help", "-h", "--help":
			printUsage()
			os.Exit(0)
		case "analyze":
			os.Exit(runAnalyzeCommand(ctx, args[1:], os.Stdin, os.Stdout, os.Stderr))
		case "watch":
			os.Exit(runWatchCommand(ctx, args[1:], os.Stdout, os.Stderr))
		case "status":
			os.Exit(runStatusCommand(ctx, args[1:]))
		case "methods":
			os.Exit(runMethodsCommand(args[1:], os.Stdout, os.Stderr))
		case "init":
			os.Exit(runInitCommand(args[1:], os.Stdout, os.Stderr))
		case "doctor":
			os.Exit(runDoctorCommand(ctx, args[1:], os.Stdout, os.Stderr))
		case "serve":
			if len(args) > 1 {
				fmt.Fprintln(os.Stderr, "usage: textlens serve")
				os.Exit(2)
			}
			interactive = false
		default:
			fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
			printUsage()
			os.Exit(2)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fatalStartup(nil, "E_CONFIG_LOAD", err)
	}

	if err := audit.Init(cfg.HomeDir); err != nil {
		fatalStartup(nil, "E_AUDIT_INIT", err)
	}
	defer func() { _ = audit.Close() }()

	// Quiet logs (file-only) in interactive mode so the TUI stays clean.
	logger, closer, err := telemetry.NewLogger(cfg.HomeDir, cfg.LogLevel, interactive)
	if err != nil {
		fatalStartup(nil, "E_LOGGER_INIT", err)
	}
	defer closer.Close()
	slog.SetDefault(logger)
	logger.Info("startup phase", "phase", "config_loaded", "config_fingerprint", cfg.Fingerprint(), "config_file", cfg.Loaded)
	if host, _, err := net.SplitHostPort(cfg.BindAddr); err == nil {
		h := strings.TrimSpace(strings.ToLower(host))
		loopback := h == "127.0.0.1" || h == "localhost" || h == "::1"
		if !loopback && cfg.AuthToken == "" {
			logger.Warn("gateway bound to a non-loopback address without auth_token", "bind_addr", cfg.BindAddr)
		}
	}

	rt, err := newRuntime(ctx, cfg, logger)
	if err != nil {
		fatalStartup(logger, "E_RUNTIME_INIT", err)
	}
	defer rt.shutdown()
	logger.Info("startup phase", "phase", "runtime_ready", "session_id", rt.session.ID())

	gw := gateway.New(gateway.Config{
		Session:           rt.session,
		Analyzer:          rt.analyzer,
		Renderer:          rt.renderer,
		Bus:               rt.bus,
		AuthToken:         cfg.AuthToken,
		AllowOrigins:      cfg.AllowOrigins,
		ConfigFingerprint: cfg.Fingerprint(),
		CORS:              cfg.CORS,
		RateLimit:         cfg.RateLimit,
		Tracer:            rt.otel.Tracer,
		Metrics:           rt.metrics,
		Logger:            logger,
	})
	if cfg.RateLimit.Enabled {
		gw.RateLimiter().StartEviction(ctx, time.Minute, 10*time.Minute)
	}

	// The TUI loads its own input; serve mode loads before accepting requests.
	if !interactive && cfg.Analysis.InputFile != "" {
		if err := rt.followInput(ctx, cfg.Analysis.InputFile, false); err != nil {
			fatalStartup(logger, "E_INPUT_WATCHER_START", err)
		}
	}

	if cfg.Analysis.Schedule != "" {
		scheduler, err := rt.startSchedule(ctx, cfg.Analysis.Schedule)
		if err != nil {
			fatalStartup(logger, "E_SCHEDULE_INVALID", err)
		}
		defer scheduler.Stop()
	}

	server := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", cfg.BindAddr)
	if err != nil {
		if isAddrInUse(err) {
			fatalStartup(logger, "E_LISTENER_BIND", fmt.Errorf("%w\n\n  %s", err, portOccupantHint(cfg.BindAddr)))
		}
		fatalStartup(logger, "E_LISTENER_BIND", err)
	}
	go func() {
		logger.Info("gateway listening", "addr", cfg.BindAddr, "ws", "/ws")
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	configWatcher := config.NewConfigWatcher(cfg.HomeDir, logger)
	if err := configWatcher.Start(ctx); err != nil {
		fatalStartup(logger, "E_CONFIG_WATCHER_START", err)
	}
	go watchConfig(configWatcher.Events(), cfg, logger)

	if interactive {
		go func() {
			if err := tui.Run(ctx, tui.Config{
				Session:   rt.session,
				Bus:       rt.bus,
				InputFile: cfg.Analysis.InputFile,
				Logger:    logger,
			}); err != nil && ctx.Err() == nil {
				logger.Error("tui exited with error", "error", err)
			}
			stop()
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("gateway server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	logger.Info("shutdown complete")
}

// runtime holds the components shared by every entry point.
type runtime struct {
	cfg      config.Config
	logger   *slog.Logger
	bus      *bus.Bus
	otel     *otelPkg.Provider
	metrics  *otelPkg.Metrics
	analyzer *analysis.Analyzer
	session  *session.Session
	renderer *render.Renderer
}

func newRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger) (*runtime, error) {
	provider, err := otelPkg.Init(ctx, otelPkg.Config{
		Enabled:     cfg.OTel.Enabled,
		Exporter:    cfg.OTel.Exporter,
		Endpoint:    cfg.OTel.Endpoint,
		ServiceName: cfg.OTel.ServiceName,
		SampleRate:  cfg.OTel.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("otel init: %w", err)
	}
	metrics, err := otelPkg.NewMetrics(provider.Meter)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, fmt.Errorf("otel metrics: %w", err)
	}
	methods, err := analysis.ParseMethods(cfg.Analysis.DefaultMethods)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, fmt.Errorf("analysis.default_methods: %w", err)
	}

	eventBus := bus.New()
	analyzer := analysis.New(analysis.Config{
		TopN:        cfg.Analysis.TopN,
		EntropyStep: cfg.Analysis.EntropyStep,
		Delay:       time.Duration(cfg.Analysis.SimulatedDelayMS) * time.Millisecond,
		Bus:         eventBus,
		Tracer:      provider.Tracer,
		Metrics:     metrics,
		Logger:      logger,
	})
	sess := session.New(session.Config{
		Runner:         analyzer,
		Methods:        methods,
		MaxUploadBytes: cfg.Analysis.MaxUploadBytes,
		Bus:            eventBus,
		Metrics:        metrics,
		Logger:         logger,
	})
	return &runtime{
		cfg:      cfg,
		logger:   logger,
		bus:      eventBus,
		otel:     provider,
		metrics:  metrics,
		analyzer: analyzer,
		session:  sess,
		renderer: render.NewRenderer(provider.Tracer, metrics),
	}, nil
}

func (rt *runtime) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.otel.Shutdown(ctx); err != nil {
		rt.logger.Warn("otel shutdown", "error", err)
	}
}

// followInput loads path into the session and reloads it on every change.
// With analyze set, each successful load is followed by a run.
func (rt *runtime) followInput(ctx context.Context, path string, analyze bool) error {
	w := config.NewWatcher(rt.logger, path)
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	reload := func() {
		if err := rt.session.LoadPath(ctx, path); err != nil {
			rt.logger.Warn("input reload rejected", "path", path, "error", err)
			return
		}
		if !analyze {
			return
		}
		if _, err := rt.session.Analyze(ctx); err != nil && !errors.Is(err, session.ErrBusy) {
			rt.logger.Warn("input analysis failed", "path", path, "error", err)
		}
	}
	reload()
	go func() {
		for range w.Events() {
			reload()
		}
	}()
	return nil
}

// startSchedule re-analyzes the session whenever expr comes due. Runs that
// find the session busy or empty are skipped.
func (rt *runtime) startSchedule(ctx context.Context, expr string) (*cron.Scheduler, error) {
	s, err := cron.NewScheduler(cron.Config{
		Expr:   expr,
		Logger: rt.logger,
		Job: func(ctx context.Context) error {
			_, err := rt.session.Analyze(ctx)
			if errors.Is(err, session.ErrBusy) || errors.Is(err, analysis.ErrNothingToAnalyze) {
				rt.logger.Debug("scheduled analysis skipped", "reason", err)
				return nil
			}
			return err
		},
	})
	if err != nil {
		return nil, err
	}
	s.Start(ctx)
	return s, nil
}

// watchConfig logs config.yaml edits. Settings apply on restart.
func watchConfig(events <-chan config.ChangeEvent, current config.Config, logger *slog.Logger) {
	for range events {
		next, err := config.LoadFrom(current.HomeDir)
		if err != nil {
			logger.Warn("config reload failed", "error", err)
			continue
		}
		if next.Fingerprint() == current.Fingerprint() {
			continue
		}
		logger.Info("config.yaml changed; restart to apply",
			"old_fingerprint", current.Fingerprint(), "new_fingerprint", next.Fingerprint())
		current = next
	}
}

func fatalStartup(logger *slog.Logger, reasonCode string, err error) {
	message := ""
	if err != nil {
		message = err.Error()
	}
	audit.Record(audit.Fatal, "runtime.startup", reasonCode, message, "")

	if logger != nil {
		logger.Error("startup failure", "reason_code", reasonCode, "error", message)
	} else {
		fmt.Fprintf(
			os.Stderr,
			`{"timestamp":"%s","level":"ERROR","component":"runtime","trace_id":"-","msg":"startup failure","reason_code":%q,"error":%q}`+"\n",
			time.Now().UTC().Format(time.RFC3339Nano),
			reasonCode,
			message,
		)
	}
	os.Exit(1)
}

func isAddrInUse(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		var sysErr *os.SyscallError
		if errors.As(opErr.Err, &sysErr) {
			return errors.Is(sysErr.Err, syscall.EADDRINUSE)
		}
	}
	return strings.Contains(err.Error(), "address already in use")
}

func portOccupantHint(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Sprintf("Another process is using %s. Stop it first or change bind_addr in config.yaml.", addr)
	}
	// Try lsof to identify the occupying process (macOS/Linux).
	out, err := execCommand("lsof", "-ti", ":"+port)
	if err == nil && strings.TrimSpace(out) != "" {
		pids := strings.TrimSpace(out)
		return fmt.Sprintf("Port %s is occupied by PID %s. Kill it with: kill %s", port, pids, pids)
	}
	return fmt.Sprintf("Port %s is already in use. Stop the existing process or change bind_addr in config.yaml.", port)
}

func execCommand(name string, args ...string) (string, error) {
	out, err := execCommandFunc(name, args...).Output()
	return string(out), err
}

var execCommandFunc = exec.Command
