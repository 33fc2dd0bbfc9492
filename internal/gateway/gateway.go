// Package gateway serves the textlens HTTP surface: the embedded page, the
// JSON API, chart images and a WebSocket event feed.
package gateway

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/basket/textlens/internal/analysis"
	"github.com/basket/textlens/internal/audit"
	"github.com/basket/textlens/internal/bus"
	"github.com/basket/textlens/internal/config"
	"github.com/basket/textlens/internal/otel"
	"github.com/basket/textlens/internal/render"
	"github.com/basket/textlens/internal/session"
	"github.com/basket/textlens/internal/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultMaxBodyBytes bounds JSON request bodies.
	DefaultMaxBodyBytes = 1 << 20
	multipartOverhead   = 64 << 10
)

type Config struct {
	Session  *session.Session
	Analyzer *analysis.Analyzer
	Renderer *render.Renderer
	Bus      *bus.Bus

	// AuthToken, when non-empty, is required as a bearer token on every
	// route except the page and /healthz.
	AuthToken string

	// AllowOrigins lists Origin patterns accepted for cross-origin WebSockets.
	// Empty means same-origin only.
	AllowOrigins []string

	// ConfigFingerprint is reported by /healthz.
	ConfigFingerprint string

	CORS         config.CORSConfig
	RateLimit    config.RateLimitConfig
	MaxBodyBytes int64

	Tracer  trace.Tracer
	Metrics *otel.Metrics
	Logger  *slog.Logger
}

type Server struct {
	cfg       Config
	startedAt time.Time
	limiter   *RateLimitMiddleware

	requests     atomic.Int64
	analyses     atomic.Int64
	failures     atomic.Int64
	uploads      atomic.Int64
	rejects      atomic.Int64
	charts       atomic.Int64
	streams      atomic.Int64
	streamEvents atomic.Int64
}

// New creates a Server. A nil Session, Analyzer or Renderer is replaced by
// a default instance.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Noop().Tracer
	}
	if cfg.Metrics == nil {
		cfg.Metrics = otel.NoopMetrics()
	}
	if cfg.Analyzer == nil {
		cfg.Analyzer = analysis.New(analysis.Config{Bus: cfg.Bus, Tracer: cfg.Tracer, Metrics: cfg.Metrics, Logger: cfg.Logger})
	}
	if cfg.Session == nil {
		cfg.Session = session.New(session.Config{Runner: cfg.Analyzer, Bus: cfg.Bus, Metrics: cfg.Metrics, Logger: cfg.Logger})
	}
	if cfg.Renderer == nil {
		cfg.Renderer = render.NewRenderer(cfg.Tracer, cfg.Metrics)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	s := &Server{cfg: cfg, startedAt: time.Now()}
	s.limiter = NewRateLimitMiddleware(cfg.RateLimit, cfg.Metrics)
	return s
}

// RateLimiter exposes the limiter so callers can start bucket eviction.
func (s *Server) RateLimiter() *RateLimitMiddleware { return s.limiter }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /ws", s.handleWS)

	mux.HandleFunc("GET /api/methods", s.handleMethods)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("PUT /api/session/text", s.handleSessionText)
	mux.HandleFunc("PUT /api/session/methods", s.handleSessionMethods)
	mux.HandleFunc("POST /api/session/methods/{id}/toggle", s.handleSessionToggle)
	mux.HandleFunc("POST /api/session/upload", s.handleSessionUpload)
	mux.HandleFunc("POST /api/session/analyze", s.handleSessionAnalyze)
	mux.HandleFunc("GET /api/session/charts/{file}", s.handleSessionChart)

	bodyLimit := s.cfg.MaxBodyBytes
	if upload := s.cfg.Session.MaxUploadBytes() + multipartOverhead; upload > bodyLimit {
		bodyLimit = upload
	}

	var h http.Handler = mux
	h = RequestSizeLimitMiddleware(bodyLimit)(h)
	h = NewAuthMiddleware(s.cfg.AuthToken).Wrap(h)
	h = s.limiter.Wrap(h)
	h = NewCORSMiddleware(s.cfg.CORS)(h)
	h = s.instrument(h)
	return h
}

// instrument assigns a trace id, opens a server span and records duration.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = shared.NewTraceID()
		}
		ctx := shared.WithTraceID(r.Context(), traceID)
		ctx = shared.WithSessionID(ctx, s.cfg.Session.ID())
		ctx, span := otel.StartServerSpan(ctx, s.cfg.Tracer, r.Method+" "+r.URL.Path,
			otel.AttrRoute.String(r.URL.Path),
			otel.AttrSessionID.String(s.cfg.Session.ID()),
		)
		defer span.End()
		w.Header().Set("X-Trace-ID", traceID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))
		elapsed := time.Since(start)

		span.SetAttributes(attribute.Int("http.status_code", rec.status))
		s.cfg.Metrics.RequestDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
			attribute.String("method", r.Method),
			attribute.Int("status", rec.status),
		))
		s.cfg.Logger.Debug("http request",
			"trace_id", traceID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	r.wroteHeader = true
	return hj.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	snap := s.cfg.Session.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"healthy":            true,
		"session_id":         snap.ID,
		"busy":               snap.Busy,
		"uptime_seconds":     int64(time.Since(s.startedAt).Seconds()),
		"config_fingerprint": s.cfg.ConfigFingerprint,
		"version":            otel.Version,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	mem := &runtime.MemStats{}
	runtime.ReadMemStats(mem)
	var subscribers int
	if s.cfg.Bus != nil {
		subscribers = s.cfg.Bus.SubscriberCount()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"requests_total":          s.requests.Load(),
		"analyses_total":          s.analyses.Load(),
		"analysis_failures_total": s.failures.Load(),
		"uploads_total":           s.uploads.Load(),
		"file_rejects_total":      s.rejects.Load(),
		"charts_total":            s.charts.Load(),
		"active_streams":          s.streams.Load(),
		"stream_events_total":     s.streamEvents.Load(),
		"rate_limit_buckets":      s.limiter.BucketCount(),
		"bus_subscribers":         subscribers,
		"audit_denies_total":      audit.DenyCount(),
		"audit_rejects_total":     audit.RejectCount(),
		"alloc_bytes":             mem.Alloc,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string         `json:"error"`
	Warning *warningDetail `json:"warning,omitempty"`
}

type warningDetail struct {
	FileName string `json:"file_name,omitempty"`
	Reason   string `json:"reason"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeErr maps domain errors to status codes.
func writeErr(w http.ResponseWriter, err error) {
	var reqErr *requestError
	var warn *session.Warning
	switch {
	case errors.As(err, &reqErr):
		writeError(w, reqErr.status, reqErr.msg)
	case errors.As(err, &warn):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:   warn.Error(),
			Warning: &warningDetail{FileName: warn.FileName, Reason: warn.Err.Error()},
		})
	case errors.Is(err, session.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, analysis.ErrNothingToAnalyze):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, analysis.ErrUnknownMethod):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, render.ErrNoData):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
