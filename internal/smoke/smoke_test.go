package smoke

import (
	"bytes"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func moduleRoot(t *testing.T) string {
	t.Helper()

	cmd := exec.Command("go", "env", "GOMOD")
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("go env GOMOD: %v", err)
	}
	gomod := strings.TrimSpace(string(out))
	if gomod == "" || gomod == os.DevNull {
		t.Fatalf("go env GOMOD returned %q; expected path to go.mod", gomod)
	}
	return filepath.Dir(gomod)
}

var (
	buildOnce sync.Once
	binPath   string
	buildErr  error
	buildOut  string
)

// buildBinary compiles cmd/textlens once per test binary.
func buildBinary(t *testing.T) string {
	t.Helper()
	buildOnce.Do(func() {
		dir, err := os.MkdirTemp("", "textlens-smoke-")
		if err != nil {
			buildErr = err
			return
		}
		binPath = filepath.Join(dir, "textlens")
		cmd := exec.Command("go", "build", "-o", binPath, "./cmd/textlens")
		cmd.Dir = moduleRoot(t)
		var buf bytes.Buffer
		cmd.Stdout = &buf
		cmd.Stderr = &buf
		buildErr = cmd.Run()
		buildOut = buf.String()
	})
	if buildErr != nil {
		t.Fatalf("go build ./cmd/textlens failed: %v\n%s", buildErr, buildOut)
	}
	return binPath
}

func pickFreeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("pick free addr: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func textlensEnv(home string, extra ...string) []string {
	env := append(os.Environ(),
		"TEXTLENS_HOME="+home,
		"TEXTLENS_NO_TUI=1",
		"TEXTLENS_INPUT=",
		"TEXTLENS_METHODS=",
		"TEXTLENS_AUTH_TOKEN=",
		"TEXTLENS_SCHEDULE=",
	)
	return append(env, extra...)
}

type lockedBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func (l *lockedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.String()
}

// startServe runs `textlens serve` and stops it on cleanup.
func startServe(t *testing.T, bin, home, addr string, extraEnv ...string) *lockedBuffer {
	t.Helper()
	cmd := exec.Command(bin, "serve")
	cmd.Env = textlensEnv(home, append([]string{"TEXTLENS_BIND_ADDR=" + addr}, extraEnv...)...)
	out := &lockedBuffer{}
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Start(); err != nil {
		t.Fatalf("start serve: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Signal(os.Interrupt)
		done := make(chan struct{})
		go func() {
			_ = cmd.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(4 * time.Second):
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
		}
	})
	return out
}

func TestSmoke_BuildsBinary(t *testing.T) {
	fi, err := os.Stat(buildBinary(t))
	if err != nil {
		t.Fatalf("stat built binary: %v", err)
	}
	if fi.Size() <= 0 {
		t.Fatalf("built binary has unexpected size %d", fi.Size())
	}
}
