package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testIP = "192.168.1.1"

func newTestLimiter(rate, burst int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		clients: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		window:  window,
		stop:    make(chan struct{}),
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rate     int
		burst    int
		window   time.Duration
		requests int
		delay    time.Duration
		wantPass int
	}{
		{"first request always allowed", 10, 5, time.Second, 1, 0, 1},
		{"burst allows multiple requests", 10, 5, time.Second, 5, 0, 5},
		{"exceeding burst fails", 10, 3, time.Second, 5, 0, 3},
		{"tokens refill over time", 10, 2, 100 * time.Millisecond, 4, 150 * time.Millisecond, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := newTestLimiter(tt.rate, tt.burst, tt.window)

			passed := 0
			for i := 0; i < tt.requests; i++ {
				if tt.delay > 0 && i > 0 && i%2 == 0 {
					time.Sleep(tt.delay)
				}
				if rl.allow(testIP) {
					passed++
				}
			}

			if passed != tt.wantPass {
				t.Errorf("allowed %d requests, want %d", passed, tt.wantPass)
			}
		})
	}
}

func TestRateLimiter_MultipleClients(t *testing.T) {
	rl := newTestLimiter(10, 2, time.Second)

	for _, ip := range []string{"192.168.1.1", "192.168.1.2"} {
		if !rl.allow(ip) || !rl.allow(ip) {
			t.Errorf("%s: burst requests should be allowed", ip)
		}
		if rl.allow(ip) {
			t.Errorf("%s: request over burst should be blocked", ip)
		}
	}
}

func TestRateLimiter_PartialWindowCarriesOver(t *testing.T) {
	rl := newTestLimiter(1, 1, time.Second)
	start := time.Now().Add(-1500 * time.Millisecond)
	rl.clients[testIP] = &bucket{tokens: 0, lastCheck: start}

	if !rl.allow(testIP) {
		t.Fatal("one whole window elapsed, a token should be available")
	}
	if got := rl.clients[testIP].lastCheck; !got.Equal(start.Add(time.Second)) {
		t.Errorf("lastCheck advanced to %v, want %v", got, start.Add(time.Second))
	}
	if rl.allow(testIP) {
		t.Error("half a window must not refill a token")
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"direct connection", "192.168.1.1:54321", nil, "192.168.1.1"},
		{"x-forwarded-for single IP", "127.0.0.1:8080", map[string]string{"X-Forwarded-For": "203.0.113.45"}, "203.0.113.45"},
		{"x-forwarded-for multiple IPs", "127.0.0.1:8080", map[string]string{"X-Forwarded-For": "203.0.113.45, 192.168.1.1"}, "203.0.113.45"},
		{"x-real-ip", "127.0.0.1:8080", map[string]string{"X-Real-IP": "198.51.100.23"}, "198.51.100.23"},
		{
			"x-forwarded-for takes precedence over x-real-ip", "127.0.0.1:8080",
			map[string]string{"X-Forwarded-For": "203.0.113.45", "X-Real-IP": "198.51.100.23"},
			"203.0.113.45",
		},
		{"ipv6 with port", "[::1]:54321", nil, "::1"},
		{"no port in remote addr", "192.168.1.1", nil, "192.168.1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
			req.RemoteAddr = tt.remoteAddr
			for key, value := range tt.headers {
				req.Header.Set(key, value)
			}

			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	called := false
	handler := func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}
	wrapped := newTestLimiter(10, 2, time.Second).middleware(handler)

	req := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	req.RemoteAddr = "192.168.1.2:54321"
	for range 2 {
		w := httptest.NewRecorder()
		wrapped(w, req)
		if w.Code != http.StatusOK {
			t.Fatal("request should be allowed")
		}
	}

	called = false
	w := httptest.NewRecorder()
	wrapped(w, req)
	if called {
		t.Error("handler should not have been called")
	}
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q, want 1", w.Header().Get("Retry-After"))
	}
}

func TestRateLimiter_EvictStale(t *testing.T) {
	rl := newTestLimiter(10, 5, time.Second)
	rl.allow("192.168.1.1")
	rl.allow("192.168.1.2")

	rl.evictStale(time.Now().Add(staleAfter / 2))
	if len(rl.clients) != 2 {
		t.Fatalf("recent clients evicted, %d left", len(rl.clients))
	}
	rl.evictStale(time.Now().Add(staleAfter + time.Second))
	if len(rl.clients) != 0 {
		t.Errorf("stale clients kept, %d left", len(rl.clients))
	}
}

func TestRateLimiter_CloseTwice(t *testing.T) {
	rl := newRateLimiter(100, 50, time.Second)
	rl.Close()
	rl.Close()
	select {
	case <-rl.stop:
	default:
		t.Fatal("stop channel not closed")
	}
}
