package ratelimit

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"markdown-editor/middleware/ratelimit/domain"
	"markdown-editor/middleware/ratelimit/infra"
)

func okHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			*calls++
		}
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})
}

func TestMiddleware_AllowsThenRejectsSameKey(t *testing.T) {
	calls := 0
	h := Middleware(Options{
		Limiter:             infra.NewWindowStore(time.Minute, 500),
		Limit:               1,
		RetryAfter:          time.Minute,
		AddRateLimitHeaders: true,
	})(okHandler(&calls))

	r1 := httptest.NewRequest(http.MethodGet, "http://example/api/document", nil)
	r1.RemoteAddr = "10.0.0.1:1234"
	w1 := httptest.NewRecorder()
	h.ServeHTTP(w1, r1)
	if w1.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w1.Code)
	}
	if got := w1.Header().Get("X-RateLimit-Limit"); got != "1" {
		t.Fatalf("expected X-RateLimit-Limit=1, got %q", got)
	}
	if got := w1.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("expected X-RateLimit-Remaining=0, got %q", got)
	}

	r2 := httptest.NewRequest(http.MethodGet, "http://example/api/document", nil)
	r2.RemoteAddr = "10.0.0.1:1234"
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, r2)
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w2.Code)
	}
	if got := strings.TrimSpace(w2.Body.String()); got != "Too Many Requests" {
		t.Fatalf("expected Too Many Requests body, got %q", got)
	}
	if got := w2.Header().Get("Retry-After"); got != "60" {
		t.Fatalf("expected Retry-After=60, got %q", got)
	}

	if calls != 1 {
		t.Fatalf("expected next handler to be called once, got %d", calls)
	}
}

func TestMiddleware_KeyByHeader(t *testing.T) {
	h := Middleware(Options{
		Limiter:   infra.NewWindowStore(time.Minute, 500),
		Limit:     1,
		KeyHeader: "X-Api-Key",
	})(okHandler(nil))

	for _, key := range []string{"k1", "k2"} {
		r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
		r.Header.Set("X-Api-Key", key)
		r.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 for key %s, got %d", key, w.Code)
		}
	}
}

func TestMiddleware_FixedTokenSharesOneBucket(t *testing.T) {
	h := Middleware(Options{
		Limiter: infra.NewWindowStore(time.Minute, 500),
		Limit:   2,
		Token:   "CACHE_TOKEN",
	})(okHandler(nil))

	codes := make([]int, 0, 3)
	for _, addr := range []string{"10.0.0.1:1", "10.0.0.2:1", "10.0.0.3:1"} {
		r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
		r.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected 200,200,429 across clients sharing the token, got %v", codes)
	}
}

func TestMiddleware_RetryAfterRoundsUp(t *testing.T) {
	h := Middleware(Options{
		Limiter:    infra.NewWindowStore(time.Minute, 500),
		Limit:      1,
		RetryAfter: 2500 * time.Millisecond,
	})(okHandler(nil))

	for i := 0; i < 2; i++ {
		r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if i == 1 {
			if w.Code != http.StatusTooManyRequests {
				t.Fatalf("expected 429, got %d", w.Code)
			}
			if got := w.Header().Get("Retry-After"); got != "3" {
				t.Fatalf("expected Retry-After=3, got %q", got)
			}
		}
	}
}

type recordingStats struct {
	events []domain.StatsEvent
}

func (s *recordingStats) Record(_ context.Context, ev domain.StatsEvent) error {
	s.events = append(s.events, ev)
	return nil
}

func TestMiddleware_RecordsStats(t *testing.T) {
	stats := &recordingStats{}
	h := Middleware(Options{
		Limiter: infra.NewWindowStore(time.Minute, 500),
		Limit:   1,
		Stats:   stats,
	})(okHandler(nil))

	for i := 0; i < 2; i++ {
		r := httptest.NewRequest(http.MethodPut, "http://example/api/document", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(httptest.NewRecorder(), r)
	}

	if len(stats.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(stats.events))
	}
	if !stats.events[0].Allowed || stats.events[1].Allowed {
		t.Fatalf("expected allowed then denied, got %+v", stats.events)
	}
	if stats.events[1].Path != "/api/document" || stats.events[1].Method != http.MethodPut {
		t.Fatalf("unexpected route in event: %+v", stats.events[1])
	}
}

func TestMiddleware_NoLimiterPassesThrough(t *testing.T) {
	calls := 0
	h := Middleware(Options{Limit: 1})(okHandler(&calls))
	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "http://example/", nil))
	}
	if calls != 3 {
		t.Fatalf("expected every request to pass, got %d", calls)
	}
}

func TestMiddleware_RetryAfterComputedFromWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	h := Middleware(Options{
		Limiter: infra.NewWindowStore(time.Minute, 500, infra.WithClock(clock)),
		Limit:   2,
	})(okHandler(nil))

	send := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPut, "http://example/api/document", nil)
		r.RemoteAddr = "10.0.0.9:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	send()
	now = now.Add(15 * time.Second)
	send()
	now = now.Add(15 * time.Second)

	w := send()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	// o hit de 15s sai da janela aos 75s; agora são 30s
	if got := w.Header().Get("Retry-After"); got != "45" {
		t.Fatalf("expected Retry-After=45, got %q", got)
	}
}
