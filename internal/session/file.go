package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/basket/textlens/internal/audit"
	"github.com/basket/textlens/internal/bus"
	"github.com/basket/textlens/internal/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DefaultMaxBytes bounds file loads when no limit is configured.
const DefaultMaxBytes = 5 << 20

// File load rejections. They are wrapped in a *Warning.
var (
	ErrNoFile   = errors.New("no file provided")
	ErrNotTxt   = errors.New("only .txt files are accepted")
	ErrNotText  = errors.New("file content is not text")
	ErrTooLarge = errors.New("file exceeds size limit")
)

// Warning reports a file load that left the text unchanged.
type Warning struct {
	FileName string
	Err      error
}

func (w *Warning) Error() string {
	if w.FileName == "" {
		return w.Err.Error()
	}
	return fmt.Sprintf("%s: %v", w.FileName, w.Err)
}

func (w *Warning) Unwrap() error { return w.Err }

// LoadFile replaces the text with the content of r when name ends in .txt
// and the content is UTF-8 text. Otherwise the text is unchanged and a
// *Warning is returned and recorded. Reading stops when ctx is done.
func (s *Session) LoadFile(ctx context.Context, name string, r io.Reader) error {
	if s.Busy() {
		return ErrBusy
	}
	var base string
	if strings.TrimSpace(name) != "" {
		base = filepath.Base(name)
	}
	if r == nil || base == "" {
		return s.reject(ctx, base, ErrNoFile)
	}
	if !strings.EqualFold(filepath.Ext(name), ".txt") {
		return s.reject(ctx, base, ErrNotTxt)
	}

	data, err := io.ReadAll(io.LimitReader(&ctxReader{ctx: ctx, r: r}, s.maxBytes+1))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return s.reject(ctx, base, fmt.Errorf("%w: %v", ErrNotText, err))
	}
	if int64(len(data)) > s.maxBytes {
		return s.reject(ctx, base, ErrTooLarge)
	}
	if !isText(data) {
		return s.reject(ctx, base, ErrNotText)
	}

	if err := s.replaceText(string(data), "file", base); err != nil {
		return err
	}
	s.logger.Info("file loaded", "session_id", s.id, "file", base, "bytes", len(data))
	return nil
}

// LoadPath loads a local file through LoadFile.
func (s *Session) LoadPath(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		return s.reject(ctx, "", ErrNoFile)
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s.reject(ctx, filepath.Base(path), ErrNoFile)
		}
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return s.LoadFile(ctx, path, f)
}

func (s *Session) reject(ctx context.Context, name string, cause error) error {
	w := &Warning{FileName: name, Err: cause}
	s.mu.Lock()
	s.warning = w.Error()
	s.mu.Unlock()

	reason := rejectReason(cause)
	s.metrics.FileRejects.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(attribute.String("reason", reason)))
	s.bus.Publish(bus.TopicSessionFileRejected, bus.FileRejectedEvent{SessionID: s.id, FileName: name, Reason: reason})
	audit.Record(audit.Reject, "session.file", reason, name, shared.TraceID(ctx))
	s.logger.Warn("file rejected", "session_id", s.id, "file", name, "reason", reason)
	return w
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrNoFile):
		return "no_file"
	case errors.Is(err, ErrNotTxt):
		return "not_txt"
	case errors.Is(err, ErrTooLarge):
		return "too_large"
	default:
		return "not_text"
	}
}

// isText accepts valid UTF-8 without NUL bytes.
func isText(data []byte) bool {
	return utf8.Valid(data) && bytes.IndexByte(data, 0) < 0
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
