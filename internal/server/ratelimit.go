package server

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	cleanupInterval = time.Minute
	staleAfter      = 5 * time.Minute
)

// rateLimiter is a token bucket per client IP.
type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*bucket
	rate    int           // tokens per window
	burst   int           // max tokens
	window  time.Duration // refill interval

	stop     chan struct{}
	stopOnce sync.Once
}

type bucket struct {
	tokens    int
	lastCheck time.Time
}

// newRateLimiter allows rate requests per window with a burst capacity of
// burst. It starts a goroutine that forgets idle clients until Close.
func newRateLimiter(rate, burst int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		clients: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		window:  window,
		stop:    make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// allow reports whether a request from ip may proceed and takes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, exists := rl.clients[ip]
	if !exists {
		rl.clients[ip] = &bucket{tokens: rl.burst - 1, lastCheck: now}
		return true
	}

	// Only whole windows refill; the remainder carries over.
	if windows := int(now.Sub(b.lastCheck) / rl.window); windows > 0 {
		b.tokens = min(b.tokens+windows*rl.rate, rl.burst)
		b.lastCheck = b.lastCheck.Add(time.Duration(windows) * rl.window)
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

func (rl *rateLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.evictStale(now)
		}
	}
}

// evictStale forgets clients idle for longer than staleAfter.
func (rl *rateLimiter) evictStale(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, b := range rl.clients {
		if now.Sub(b.lastCheck) > staleAfter {
			delete(rl.clients, ip)
		}
	}
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (rl *rateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// middleware rejects requests over the limit with 429.
func (rl *rateLimiter) middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(getClientIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(max(1, int(rl.window/time.Second))))
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// getClientIP returns the first X-Forwarded-For address, then X-Real-IP,
// then the host part of RemoteAddr.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
