package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func limitedHandler(rl *RateLimiter) http.Handler {
	return ActingUser(rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
}

func TestRateLimiterIsPerActingUser(t *testing.T) {
	hits := 0
	rl := NewRateLimiter(1, 1)
	rl.OnLimit(func() { hits++ })
	handler := limitedHandler(rl)

	send := func(username string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		if username != "" {
			req.Header.Set(UsernameHeader, username)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("alice"); code != http.StatusOK {
		t.Fatalf("first alice request = %d", code)
	}
	if code := send("alice"); code != http.StatusTooManyRequests {
		t.Fatalf("second alice request = %d, expected 429", code)
	}
	if code := send("bob"); code != http.StatusOK {
		t.Fatalf("bob has his own bucket, got %d", code)
	}
	if code := send(""); code != http.StatusOK {
		t.Fatalf("anonymous caller keyed by ip, got %d", code)
	}
	if hits != 1 {
		t.Fatalf("OnLimit called %d times, expected 1", hits)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(10, 10)
	rl.now = func() time.Time { return now }

	rl.getLimiter("user:old")
	now = now.Add(2 * time.Hour)
	rl.getLimiter("user:new")

	if removed := rl.CleanupLimiters(time.Hour); removed != 1 {
		t.Fatalf("removed %d limiters, expected 1", removed)
	}
	if _, ok := rl.limiters["user:new"]; !ok {
		t.Fatalf("recent limiter must survive cleanup")
	}
}

func TestCallerKey(t *testing.T) {
	testCases := []struct {
		name     string
		setup    func(r *http.Request) *http.Request
		expected string
	}{
		{
			name: "acting user wins",
			setup: func(r *http.Request) *http.Request {
				r.Header.Set("X-Forwarded-For", "1.1.1.1")
				return r.WithContext(WithActingUsername(r.Context(), "alice"))
			},
			expected: "user:alice",
		},
		{
			name: "first forwarded address",
			setup: func(r *http.Request) *http.Request {
				r.Header.Set("X-Forwarded-For", "1.1.1.1, 2.2.2.2")
				return r
			},
			expected: "ip:1.1.1.1",
		},
		{
			name:     "remote addr without port",
			setup:    func(r *http.Request) *http.Request { r.RemoteAddr = "3.3.3.3:5555"; return r },
			expected: "ip:3.3.3.3",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := tc.setup(httptest.NewRequest(http.MethodGet, "/", nil))
			if got := callerKey(req); got != tc.expected {
				t.Fatalf("callerKey() = %q, expected %q", got, tc.expected)
			}
		})
	}
}
