package bus

// Session topics.
const (
	TopicSessionTextChanged    = "session.text_changed"
	TopicSessionMethodsChanged = "session.methods_changed"
	TopicSessionFileRejected   = "session.file_rejected"
	TopicSessionBusyChanged    = "session.busy_changed"
)

// Analysis topics.
const (
	TopicAnalysisStarted   = "analysis.started"
	TopicAnalysisCompleted = "analysis.completed"
	TopicAnalysisFailed    = "analysis.failed"
)

// TextChangedEvent is published when the session text is replaced.
type TextChangedEvent struct {
	SessionID string `json:"session_id"`
	Source    string `json:"source"` // "input" or "file"
	FileName  string `json:"file_name,omitempty"`
	Length    int    `json:"length"`
}

// MethodsChangedEvent is published when the selected method set changes.
type MethodsChangedEvent struct {
	SessionID string   `json:"session_id"`
	Methods   []string `json:"methods"`
}

// FileRejectedEvent is published when a file load leaves the text unchanged.
type FileRejectedEvent struct {
	SessionID string `json:"session_id"`
	FileName  string `json:"file_name"`
	Reason    string `json:"reason"`
}

// BusyChangedEvent is published when the session enters or leaves analysis.
type BusyChangedEvent struct {
	SessionID string `json:"session_id"`
	Busy      bool   `json:"busy"`
}

// AnalysisStartedEvent is published before an analysis run computes anything.
type AnalysisStartedEvent struct {
	RunID   string   `json:"run_id"`
	Methods []string `json:"methods"`
}

// AnalysisCompletedEvent is published when a run produced results.
type AnalysisCompletedEvent struct {
	RunID      string  `json:"run_id"`
	TokenCount int     `json:"token_count"`
	DurationMS float64 `json:"duration_ms"`
}

// AnalysisFailedEvent is published when a run was cancelled or refused.
type AnalysisFailedEvent struct {
	RunID string `json:"run_id"`
	Error string `json:"error"`
}
