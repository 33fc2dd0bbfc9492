package gateway_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/basket/textlens/internal/config"
	"github.com/basket/textlens/internal/gateway"
)

func serveN(t *testing.T, h http.Handler, n int, key, path string) []int {
	t.Helper()
	codes := make([]int, 0, n)
	for i := 0; i < n; i++ {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	return codes
}

func TestRateLimit_UnderLimit(t *testing.T) {
	rl := gateway.NewRateLimitMiddleware(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 60, BurstSize: 10}, nil)
	for i, code := range serveN(t, rl.Wrap(okHandler()), 5, "k", "/api/session") {
		if code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, code)
		}
	}
}

func TestRateLimit_OverLimit(t *testing.T) {
	rl := gateway.NewRateLimitMiddleware(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, BurstSize: 3}, nil)
	codes := serveN(t, rl.Wrap(okHandler()), 4, "k", "/api/session")
	for i := 0; i < 3; i++ {
		if codes[i] != http.StatusOK {
			t.Fatalf("burst request %d: expected 200, got %d", i, codes[i])
		}
	}
	if codes[3] != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", codes[3])
	}
}

func TestRateLimit_SeparateKeys(t *testing.T) {
	rl := gateway.NewRateLimitMiddleware(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, BurstSize: 1}, nil)
	h := rl.Wrap(okHandler())
	if serveN(t, h, 1, "a", "/api/session")[0] != http.StatusOK {
		t.Fatal("key a rejected")
	}
	if serveN(t, h, 1, "b", "/api/session")[0] != http.StatusOK {
		t.Fatal("key b should have its own bucket")
	}
	if rl.BucketCount() != 2 {
		t.Fatalf("expected 2 buckets, got %d", rl.BucketCount())
	}
}

func TestRateLimit_HealthzExempt(t *testing.T) {
	rl := gateway.NewRateLimitMiddleware(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, BurstSize: 1}, nil)
	for i, code := range serveN(t, rl.Wrap(okHandler()), 5, "k", "/healthz") {
		if code != http.StatusOK {
			t.Fatalf("healthz request %d: got %d", i, code)
		}
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	rl := gateway.NewRateLimitMiddleware(config.RateLimitConfig{Enabled: false, RequestsPerMinute: 1, BurstSize: 1}, nil)
	for _, code := range serveN(t, rl.Wrap(okHandler()), 5, "k", "/api/session") {
		if code != http.StatusOK {
			t.Fatalf("disabled limiter rejected request: %d", code)
		}
	}
}

func TestRateLimit_EvictStale(t *testing.T) {
	rl := gateway.NewRateLimitMiddleware(config.RateLimitConfig{Enabled: true}, nil)
	serveN(t, rl.Wrap(okHandler()), 1, "k", "/api/session")
	if rl.BucketCount() != 1 {
		t.Fatalf("expected 1 bucket, got %d", rl.BucketCount())
	}
	if n := rl.EvictStale(time.Hour); n != 0 {
		t.Fatalf("fresh bucket evicted: %d", n)
	}
	time.Sleep(5 * time.Millisecond)
	if n := rl.EvictStale(time.Millisecond); n != 1 || rl.BucketCount() != 0 {
		t.Fatalf("expected eviction, evicted=%d remaining=%d", n, rl.BucketCount())
	}
}

func TestTokenBucket_Refill(t *testing.T) {
	tb := gateway.NewTokenBucket(6000, 1)
	if !tb.Allow() {
		t.Fatal("first request should pass")
	}
	if tb.Allow() {
		t.Fatal("bucket should be empty")
	}
	time.Sleep(30 * time.Millisecond)
	if !tb.Allow() {
		t.Fatal("bucket should refill at 100/s")
	}
}
