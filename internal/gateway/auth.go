package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/basket/textlens/internal/audit"
	"github.com/basket/textlens/internal/shared"
)

// AuthMiddleware requires a bearer token when one is configured.
type AuthMiddleware struct {
	token string
}

// NewAuthMiddleware creates an auth middleware. An empty token disables it.
func NewAuthMiddleware(token string) *AuthMiddleware {
	return &AuthMiddleware{token: strings.TrimSpace(token)}
}

// Wrap wraps an http.Handler with bearer token checking.
func (am *AuthMiddleware) Wrap(next http.Handler) http.Handler {
	if am.token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		key := ExtractAPIKey(r)
		if key == "" {
			audit.Record(audit.Deny, "gateway.auth", "missing_token", r.Method+" "+r.URL.Path, shared.TraceID(r.Context()))
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if !am.Allow(key) {
			audit.Record(audit.Deny, "gateway.auth", "invalid_token", r.Method+" "+r.URL.Path, shared.TraceID(r.Context()))
			writeError(w, http.StatusUnauthorized, "invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Allow reports whether candidate matches the configured token, in constant time.
func (am *AuthMiddleware) Allow(candidate string) bool {
	if am.token == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(am.token)) == 1
}

// ExtractAPIKey extracts a token from request headers or query params.
// It checks, in order: Authorization: Bearer <key>, X-API-Key header, token
// query param. The query param exists for browser WebSockets.
func ExtractAPIKey(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return r.URL.Query().Get("token")
}

func isPublicPath(path string) bool {
	return path == "/" || path == "/healthz"
}
