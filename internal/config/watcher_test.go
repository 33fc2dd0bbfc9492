package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/basket/textlens/internal/config"
)

func TestWatcher_DetectsInputFileChange(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.txt")
	if err := os.WriteFile(input, []byte("first draft"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	other := filepath.Join(dir, "other.txt")

	w := config.NewWatcher(nil, input)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start watcher: %v", err)
	}

	// Retry writes until the watcher is ready; unrelated files in the same
	// directory must not produce events.
	deadline := time.After(3 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	_ = os.WriteFile(other, []byte("noise"), 0o644)
	_ = os.WriteFile(input, []byte("second draft"), 0o644)

	for {
		select {
		case ev := <-w.Events():
			if filepath.Base(ev.Path) != "input.txt" {
				t.Fatalf("expected input.txt event, got %s", ev.Path)
			}
			return
		case <-tick.C:
			_ = os.WriteFile(input, []byte("second draft"), 0o644)
		case <-deadline:
			t.Fatalf("timed out waiting for input.txt change event")
		}
	}
}

func TestWatcher_ClosesEventsOnCancel(t *testing.T) {
	dir := t.TempDir()
	w := config.NewConfigWatcher(dir, nil)
	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	cancel()

	select {
	case _, ok := <-w.Events():
		if ok {
			// A stray event is acceptable; the channel must still close.
			for range w.Events() {
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed after cancel")
	}
}
