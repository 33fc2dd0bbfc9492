// Package doctor runs local diagnostic checks for textlens.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/basket/textlens/internal/analysis"
	"github.com/basket/textlens/internal/config"
	"github.com/basket/textlens/internal/cron"
	"github.com/basket/textlens/internal/render"
	"github.com/basket/textlens/internal/session"
	"github.com/basket/textlens/internal/shared"
)

const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
	StatusWarn = "WARN"
	StatusSkip = "SKIP"
)

type CheckResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

type Diagnosis struct {
	Timestamp time.Time     `json:"timestamp"`
	System    SystemInfo    `json:"system"`
	Results   []CheckResult `json:"results"`
}

type SystemInfo struct {
	OS      string `json:"os"`
	Arch    string `json:"arch"`
	Go      string `json:"go_version"`
	Version string `json:"version"`
}

// Failed reports whether any check failed.
func (d Diagnosis) Failed() bool {
	for _, r := range d.Results {
		if r.Status == StatusFail {
			return true
		}
	}
	return false
}

// Run executes all diagnostic checks.
func Run(ctx context.Context, cfg *config.Config, version string) Diagnosis {
	d := Diagnosis{
		Timestamp: time.Now().UTC(),
		System: SystemInfo{
			OS:      runtime.GOOS,
			Arch:    runtime.GOARCH,
			Go:      runtime.Version(),
			Version: version,
		},
	}

	checks := []func(context.Context, *config.Config) CheckResult{
		checkConfig,
		checkEnvironment,
		checkMethods,
		checkPermissions,
		checkInputFile,
		checkSchedule,
		checkCharts,
		checkBindAddr,
	}

	for _, check := range checks {
		d.Results = append(d.Results, check(ctx, cfg))
	}

	return d
}

func checkConfig(_ context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Name: "Config", Status: StatusFail, Message: "Configuration not loaded"}
	}
	if !cfg.Loaded {
		return CheckResult{
			Name:    "Config",
			Status:  StatusWarn,
			Message: "No config.yaml, using defaults",
			Detail:  fmt.Sprintf("Run `textlens init` to write %s", config.ConfigPath(cfg.HomeDir)),
		}
	}
	return CheckResult{Name: "Config", Status: StatusPass, Message: fmt.Sprintf("Loaded %s (%s)", config.ConfigPath(cfg.HomeDir), cfg.Fingerprint())}
}

// checkEnvironment lists TEXTLENS_* overrides with credentials redacted.
func checkEnvironment(_ context.Context, _ *config.Config) CheckResult {
	var vars []string
	for _, kv := range os.Environ() {
		key, value, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(key, "TEXTLENS_") || value == "" {
			continue
		}
		vars = append(vars, key+"="+shared.RedactEnvValue(key, value))
	}
	if len(vars) == 0 {
		return CheckResult{Name: "Environment", Status: StatusSkip, Message: "No TEXTLENS_* overrides"}
	}
	sort.Strings(vars)
	return CheckResult{Name: "Environment", Status: StatusPass, Message: fmt.Sprintf("%d override(s)", len(vars)), Detail: strings.Join(vars, ", ")}
}

func checkMethods(_ context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Name: "Methods", Status: StatusSkip, Message: "Config missing"}
	}
	set, err := analysis.ParseMethods(cfg.Analysis.DefaultMethods)
	if err != nil {
		return CheckResult{Name: "Methods", Status: StatusFail, Message: fmt.Sprintf("analysis.default_methods: %v", err)}
	}
	if set.Empty() {
		return CheckResult{Name: "Methods", Status: StatusWarn, Message: "No default methods; sessions start with nothing selected"}
	}
	return CheckResult{Name: "Methods", Status: StatusPass, Message: "Defaults: " + set.String()}
}

func checkPermissions(_ context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Name: "Permissions", Status: StatusSkip, Message: "Config missing"}
	}

	testFile := filepath.Join(cfg.HomeDir, ".write_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return CheckResult{Name: "Permissions", Status: StatusFail, Message: fmt.Sprintf("Home dir unwritable: %v", err)}
	}
	os.Remove(testFile)

	if err := os.MkdirAll(filepath.Join(cfg.HomeDir, "logs"), 0o755); err != nil {
		return CheckResult{Name: "Permissions", Status: StatusFail, Message: fmt.Sprintf("Log dir unavailable: %v", err)}
	}
	return CheckResult{Name: "Permissions", Status: StatusPass, Message: "Home directory writable"}
}

// checkInputFile loads the configured input through a scratch session so
// the same .txt and text rules apply.
func checkInputFile(ctx context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Name: "Input File", Status: StatusSkip, Message: "Config missing"}
	}
	if cfg.Analysis.InputFile == "" {
		return CheckResult{Name: "Input File", Status: StatusSkip, Message: "analysis.input_file not set"}
	}
	sess := session.New(session.Config{MaxUploadBytes: cfg.Analysis.MaxUploadBytes})
	if err := sess.LoadPath(ctx, cfg.Analysis.InputFile); err != nil {
		var warn *session.Warning
		if errors.As(err, &warn) {
			return CheckResult{Name: "Input File", Status: StatusFail, Message: warn.Error(), Detail: cfg.Analysis.InputFile}
		}
		return CheckResult{Name: "Input File", Status: StatusFail, Message: err.Error()}
	}
	snap := sess.Snapshot()
	return CheckResult{
		Name:    "Input File",
		Status:  StatusPass,
		Message: fmt.Sprintf("%s readable (%d words)", snap.FileName, len(analysis.Tokenize(snap.Text))),
	}
}

// checkCharts renders a small sample in every format.
func checkSchedule(_ context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Name: "Schedule", Status: StatusSkip, Message: "Config missing"}
	}
	if cfg.Analysis.Schedule == "" {
		return CheckResult{Name: "Schedule", Status: StatusSkip, Message: "analysis.schedule not set"}
	}
	next, err := cron.NextRunTime(cfg.Analysis.Schedule, time.Now())
	if err != nil {
		return CheckResult{Name: "Schedule", Status: StatusFail, Message: fmt.Sprintf("analysis.schedule: %v", err)}
	}
	return CheckResult{Name: "Schedule", Status: StatusPass, Message: "Next run " + next.Format(time.RFC3339)}
}

func checkCharts(ctx context.Context, _ *config.Config) CheckResult {
	sample := strings.Repeat("alpha beta gamma delta ", 30)
	res := analysis.Compute(sample, analysis.NewMethodSet(analysis.AllMethods...), analysis.DefaultTopN, analysis.DefaultEntropyStep, analysis.NewPlaceholder(nil))
	r := render.NewRenderer(nil, nil)
	var details []string
	for _, format := range []render.Format{render.FormatSVG, render.FormatPNG} {
		for _, kind := range render.Kinds {
			if err := r.Render(ctx, io.Discard, kind, format, res); err != nil {
				return CheckResult{Name: "Charts", Status: StatusFail, Message: fmt.Sprintf("%s %s: %v", kind, format, err)}
			}
		}
		details = append(details, string(format)+": ok")
	}
	return CheckResult{Name: "Charts", Status: StatusPass, Message: fmt.Sprintf("Rendered %d chart kinds", len(render.Kinds)), Detail: strings.Join(details, ", ")}
}

func checkBindAddr(ctx context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Name: "Bind Address", Status: StatusSkip, Message: "Config missing"}
	}
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", cfg.BindAddr)
	if err != nil {
		return CheckResult{
			Name:    "Bind Address",
			Status:  StatusWarn,
			Message: fmt.Sprintf("%s unavailable: %v", cfg.BindAddr, err),
			Detail:  "A gateway may already be running; check with `textlens status`",
		}
	}
	ln.Close()
	return CheckResult{Name: "Bind Address", Status: StatusPass, Message: fmt.Sprintf("%s is free", cfg.BindAddr)}
}
