package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute})
	t.Cleanup(rl.Stop)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestLimiterWindow(t *testing.T) {
	rl, now := newTestLimiter(t, 2)

	for i := 0; i < 2; i++ {
		if ok, _ := rl.Allow("u1"); !ok {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	*now = now.Add(20 * time.Second)
	ok, retry := rl.Allow("u1")
	if ok {
		t.Fatal("third request in window allowed")
	}
	if retry != 40*time.Second {
		t.Fatalf("retry = %v, want 40s", retry)
	}
	if ok, _ := rl.Allow("u2"); !ok {
		t.Fatal("other key must have its own window")
	}

	*now = now.Add(41 * time.Second)
	if ok, _ := rl.Allow("u1"); !ok {
		t.Fatal("new window must allow")
	}
	if got := rl.GetMetrics(); got.TotalHits != 1 || got.ClientCount != 2 {
		t.Fatalf("metrics = %+v", got)
	}
}

func TestLimiterCleanup(t *testing.T) {
	rl, now := newTestLimiter(t, 5)
	rl.Allow("old")
	*now = now.Add(11 * time.Minute)
	rl.Allow("new")

	if removed := rl.cleanupStaleEntries(); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if got := rl.GetMetrics().ClientCount; got != 1 {
		t.Fatalf("ClientCount = %d", got)
	}
}

func TestMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(
		func(r *http.Request) string { return r.Header.Get("X-User-ID") },
		nil,
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/series/s1", nil)
		req.Header.Set("X-User-ID", "u1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(); rec.Code != http.StatusNoContent {
		t.Fatalf("first status = %d", rec.Code)
	}
	rec := send()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
}

func TestStopIsIdempotent(t *testing.T) {
	rl := NewLimiter(Config{})
	rl.Stop()
	rl.Stop()
	if rl.requestsPerMinute != 120 {
		t.Fatalf("default requestsPerMinute = %d", rl.requestsPerMinute)
	}
}
