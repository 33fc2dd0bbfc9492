// Package audit appends access and input decisions to logs/audit.jsonl.
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/basket/textlens/internal/shared"
)

// Decisions.
const (
	Allow  = "allow"
	Deny   = "deny"
	Reject = "reject"
	Fatal  = "fatal"
)

type entry struct {
	Timestamp string `json:"timestamp"`
	Decision  string `json:"decision"`
	Action    string `json:"action"`
	Reason    string `json:"reason"`
	Subject   string `json:"subject,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

var (
	mu          sync.Mutex
	file        *os.File
	denyCount   atomic.Int64
	rejectCount atomic.Int64
)

// Init opens the audit file under homeDir. Records before Init are counted
// but not written.
func Init(homeDir string) error {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		return nil
	}
	logDir := filepath.Join(homeDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(logDir, "audit.jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	file = f
	return nil
}

func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

// DenyCount returns the number of deny decisions since startup.
func DenyCount() int64 {
	return denyCount.Load()
}

// RejectCount returns the number of rejected inputs since startup.
func RejectCount() int64 {
	return rejectCount.Load()
}

// Record appends one decision. Reason and subject are redacted.
func Record(decision, action, reason, subject, traceID string) {
	switch decision {
	case Deny:
		denyCount.Add(1)
	case Reject:
		rejectCount.Add(1)
	}

	reason = shared.Redact(reason)
	subject = shared.Redact(subject)

	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return
	}
	b, err := json.Marshal(entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Decision:  decision,
		Action:    action,
		Reason:    reason,
		Subject:   subject,
		TraceID:   traceID,
	})
	if err == nil {
		_, _ = file.Write(append(b, '\n'))
	}
}
