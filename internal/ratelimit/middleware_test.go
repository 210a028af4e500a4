package ratelimit_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/lineup-studio/backend-lineup/internal/ratelimit"
)

func TestMiddlewareEnforcesLimit(t *testing.T) {
	instance := limiter.New(memory.NewStore(), limiter.Rate{Period: time.Minute, Limit: 2})
	handler := ratelimit.Middleware(instance)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
		req.RemoteAddr = "192.0.2.10:1234"
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 got %d", i, rr.Code)
		}
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	req.RemoteAddr = "192.0.2.10:1234"
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", rr.Code)
	}
	if rr.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("expected zero remaining, got %q", rr.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestMiddlewareSeparatesClients(t *testing.T) {
	instance := limiter.New(memory.NewStore(), limiter.Rate{Period: time.Minute, Limit: 1})
	handler := ratelimit.Middleware(instance)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	first.RemoteAddr = "192.0.2.10:1234"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, first)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}

	second := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	second.RemoteAddr = "198.51.100.7:9999"
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, second)
	if rr.Code != http.StatusOK {
		t.Fatalf("other client should not be limited, got %d", rr.Code)
	}
}
