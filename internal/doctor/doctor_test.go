package doctor

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/basket/textlens/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.HomeDir = t.TempDir()
	cfg.BindAddr = "127.0.0.1:0"
	return &cfg
}

func TestRun_NilConfig(t *testing.T) {
	d := Run(context.Background(), nil, "test")
	if !d.Failed() {
		t.Fatal("nil config should fail")
	}
	for _, r := range d.Results[1:] {
		if r.Name == "Charts" || r.Name == "Environment" {
			continue
		}
		if r.Status != StatusSkip {
			t.Fatalf("%s: expected SKIP, got %s", r.Name, r.Status)
		}
	}
	if d.System.Version != "test" {
		t.Fatalf("version = %q", d.System.Version)
	}
}

func TestRun_Defaults(t *testing.T) {
	cfg := testConfig(t)
	d := Run(context.Background(), cfg, "test")
	if d.Failed() {
		t.Fatalf("unexpected failure: %+v", d.Results)
	}
	byName := map[string]CheckResult{}
	for _, r := range d.Results {
		byName[r.Name] = r
	}
	if byName["Config"].Status != StatusWarn {
		t.Fatalf("missing config.yaml should warn: %+v", byName["Config"])
	}
	if byName["Input File"].Status != StatusSkip {
		t.Fatalf("input file: %+v", byName["Input File"])
	}
	if byName["Charts"].Status != StatusPass {
		t.Fatalf("charts: %+v", byName["Charts"])
	}
}

func TestCheckMethods(t *testing.T) {
	cfg := testConfig(t)
	if got := checkMethods(context.Background(), cfg); got.Status != StatusWarn {
		t.Fatalf("empty defaults: %+v", got)
	}
	cfg.Analysis.DefaultMethods = []string{"frequency", "pos"}
	if got := checkMethods(context.Background(), cfg); got.Status != StatusPass || got.Message != "Defaults: frequency,pos" {
		t.Fatalf("valid defaults: %+v", got)
	}
	cfg.Analysis.DefaultMethods = []string{"lemmas"}
	if got := checkMethods(context.Background(), cfg); got.Status != StatusFail {
		t.Fatalf("unknown method: %+v", got)
	}
}

func TestCheckEnvironment_Redacts(t *testing.T) {
	t.Setenv("TEXTLENS_AUTH_TOKEN", "hunter2-secret")
	t.Setenv("TEXTLENS_DELAY_MS", "25")
	got := checkEnvironment(context.Background(), nil)
	if got.Status != StatusPass {
		t.Fatalf("expected PASS: %+v", got)
	}
	if strings.Contains(got.Detail, "hunter2") {
		t.Fatalf("token leaked: %q", got.Detail)
	}
	if !strings.Contains(got.Detail, "TEXTLENS_AUTH_TOKEN=[REDACTED]") || !strings.Contains(got.Detail, "TEXTLENS_DELAY_MS=25") {
		t.Fatalf("detail = %q", got.Detail)
	}
}

func TestCheckSchedule(t *testing.T) {
	cfg := testConfig(t)
	if got := checkSchedule(context.Background(), cfg); got.Status != StatusSkip {
		t.Fatalf("unset schedule: %+v", got)
	}
	cfg.Analysis.Schedule = "*/10 * * * *"
	if got := checkSchedule(context.Background(), cfg); got.Status != StatusPass {
		t.Fatalf("valid schedule: %+v", got)
	}
	cfg.Analysis.Schedule = "sometimes"
	if got := checkSchedule(context.Background(), cfg); got.Status != StatusFail {
		t.Fatalf("invalid schedule: %+v", got)
	}
}

func TestCheckInputFile(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()

	good := filepath.Join(dir, "ok.txt")
	os.WriteFile(good, []byte("three small words"), 0o644)
	cfg.Analysis.InputFile = good
	if got := checkInputFile(context.Background(), cfg); got.Status != StatusPass || got.Message != "ok.txt readable (3 words)" {
		t.Fatalf("good file: %+v", got)
	}

	bad := filepath.Join(dir, "doc.pdf")
	os.WriteFile(bad, []byte("%PDF"), 0o644)
	cfg.Analysis.InputFile = bad
	if got := checkInputFile(context.Background(), cfg); got.Status != StatusFail {
		t.Fatalf("pdf: %+v", got)
	}
}

func TestCheckBindAddr_InUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	cfg := testConfig(t)
	cfg.BindAddr = ln.Addr().String()
	if got := checkBindAddr(context.Background(), cfg); got.Status != StatusWarn {
		t.Fatalf("expected WARN for busy port, got %+v", got)
	}
}

func TestCheckPermissions(t *testing.T) {
	cfg := testConfig(t)
	if got := checkPermissions(context.Background(), cfg); got.Status != StatusPass {
		t.Fatalf("got %+v", got)
	}
	if _, err := os.Stat(filepath.Join(cfg.HomeDir, "logs")); err != nil {
		t.Fatalf("logs dir: %v", err)
	}
}
