package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func limitedHandler(rl *RateLimiter) http.Handler {
	return rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func hit(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/analytics/events", nil)
	req.RemoteAddr = remoteAddr
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimiter_GlobalBurstSpansClients(t *testing.T) {
	h := limitedHandler(NewRateLimiter(1, 2, 10, 10))

	codes := []int{
		hit(h, "10.0.0.1:1000").Code,
		hit(h, "10.0.0.2:1000").Code,
		hit(h, "10.0.0.3:1000").Code,
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("burst of 2 should pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("third request should hit the global limit, got %d", codes[2])
	}
}

func TestRateLimiter_PerIPIsolation(t *testing.T) {
	h := limitedHandler(NewRateLimiter(100, 100, 1, 2))

	hit(h, "10.0.0.1:1000")
	hit(h, "10.0.0.1:2000")
	rr := hit(h, "10.0.0.1:3000")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for the noisy client, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"RATE_LIMIT_IP"`) {
		t.Errorf("expected RATE_LIMIT_IP body, got %s", rr.Body.String())
	}
	if rr := hit(h, "10.0.0.2:1000"); rr.Code != http.StatusOK {
		t.Errorf("other clients keep their own budget, got %d", rr.Code)
	}
}

func TestRateLimiter_Refills(t *testing.T) {
	h := limitedHandler(NewRateLimiter(10, 1, 10, 1))

	hit(h, "10.0.0.1:1000")
	if rr := hit(h, "10.0.0.1:1000"); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected limit after burst, got %d", rr.Code)
	}
	time.Sleep(150 * time.Millisecond)
	if rr := hit(h, "10.0.0.1:1000"); rr.Code != http.StatusOK {
		t.Errorf("expected token refilled after wait, got %d", rr.Code)
	}
}

func TestRateLimiter_PruneIdle(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(10, 10, 10, 10)
	rl.now = func() time.Time { return now }

	rl.getLimiter("10.0.0.1")
	now = now.Add(2 * time.Minute)
	rl.getLimiter("10.0.0.2")
	if rl.Len() != 2 {
		t.Fatalf("expected 2 client limiters, got %d", rl.Len())
	}

	now = now.Add(90 * time.Second)
	if err := rl.Prune(); err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if rl.Len() != 1 {
		t.Errorf("expected the idle limiter to be dropped, have %d", rl.Len())
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff, xri   string
		remoteAddr string
		want       string
	}{
		{"forwarded chain uses first hop", "203.0.113.1, 198.51.100.1", "", "10.0.0.1:1234", "203.0.113.1"},
		{"real ip header", "", "203.0.113.7", "10.0.0.1:1234", "203.0.113.7"},
		{"remote addr", "", "", "10.0.0.1:1234", "10.0.0.1"},
		{"ipv6 remote addr", "", "", "[2001:db8::1]:443", "2001:db8::1"},
		{"remote addr without port", "", "", "10.0.0.9", "10.0.0.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRateLimiter_ConcurrentClients(t *testing.T) {
	rl := NewRateLimiter(1000, 1000, 10, 10)
	h := limitedHandler(rl)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			addr := "10.0.1." + string(rune('0'+n)) + ":1234"
			for j := 0; j < 5; j++ {
				hit(h, addr)
			}
		}(i)
	}
	wg.Wait()

	if rl.Len() != 10 {
		t.Errorf("expected one limiter per client, got %d", rl.Len())
	}
}
