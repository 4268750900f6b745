package server

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCorrelationMiddleware_GeneratesID(t *testing.T) {
	handler := correlationMiddleware(slog.Default(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/latest", nil))

	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("response missing generated X-Request-ID")
	}
}

func TestCorrelationMiddleware_HonorsInboundID(t *testing.T) {
	handler := correlationMiddleware(slog.Default(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/latest", nil)
	req.Header.Set(requestIDHeader, "abc-123")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
}

func TestClientLimiter_RejectsOverLimit(t *testing.T) {
	limiter := newClientLimiter(1, 1)
	handler := limiter.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/latest", nil)
	req.RemoteAddr = "10.0.0.1:55555"

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, req)
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", second.Code)
	}
	if second.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Error("expected X-RateLimit-Remaining: 0")
	}
}

func TestClientLimiter_EvictsIdleClients(t *testing.T) {
	limiter := newClientLimiter(1, 1)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.limiterFor("10.0.0.1").Allow()

	// The idle entry is swept once the TTL elapses and another
	// request triggers the sweep.
	now = now.Add(limiter.ttl + time.Second)
	limiter.limiterFor("10.0.0.2")

	limiter.mu.Lock()
	_, stillThere := limiter.clients["10.0.0.1"]
	size := len(limiter.clients)
	limiter.mu.Unlock()

	if stillThere {
		t.Error("idle client entry not evicted after TTL")
	}
	if size != 1 {
		t.Errorf("clients map size = %d, want 1", size)
	}

	// The returning client gets a fresh limiter with a full burst.
	if !limiter.limiterFor("10.0.0.1").Allow() {
		t.Error("returning client should start with a full burst")
	}
}

func TestClientLimiter_IsolatesClients(t *testing.T) {
	limiter := newClientLimiter(1, 1)
	handler := limiter.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	reqA := httptest.NewRequest(http.MethodGet, "/latest", nil)
	reqA.RemoteAddr = "10.0.0.1:55555"
	reqB := httptest.NewRequest(http.MethodGet, "/latest", nil)
	reqB.RemoteAddr = "10.0.0.2:55555"

	handler.ServeHTTP(httptest.NewRecorder(), reqA)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, reqB)
	if rec.Code != http.StatusOK {
		t.Errorf("other client's request status = %d, want 200", rec.Code)
	}
}
