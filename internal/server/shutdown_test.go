package server

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rybkr/argroute/internal/cli"
	"github.com/rybkr/argroute/internal/config"
)

// newTestServer constructs a Server without starting it. Its app has a few
// commands and writes nowhere.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default().Server
	cfg.Addr = "127.0.0.1:0"
	s := New(newTestApp(t), cfg)
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return s
}

func newTestApp(t *testing.T) *cli.App {
	t.Helper()
	app := cli.NewApp("test", "1.0.0")
	app.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	app.Stdout, app.Stderr = io.Discard, io.Discard

	add := func(reg cli.Registration) {
		if err := app.AddCommand(reg); err != nil {
			t.Fatal(err)
		}
	}
	add(cli.Func("ping", func(inv *cli.Invocation) (cli.Result, error) {
		inv.Println("pong")
		return cli.Code(14), nil
	}, "Reply with pong"))
	add(cli.Func("math_sum", func(inv *cli.Invocation) (cli.Result, error) {
		inv.Println(len(inv.Positional()))
		return cli.OK(), nil
	}, "Count the numbers"))
	add(cli.Func("math_prod", func(*cli.Invocation) (cli.Result, error) {
		return cli.Fail(), nil
	}, "Multiply the numbers"))
	add(cli.Func("broken", nil, "Not implemented"))
	return app
}

// finishes fails the test if fn does not return within d.
func finishes(t *testing.T, d time.Duration, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("did not return within %s", d)
	}
}

func TestNew(t *testing.T) {
	s := newTestServer(t)
	defer s.Shutdown()

	if s.App() == nil || s.App().Name != "test" {
		t.Fatal("app not stored")
	}
	rl := s.rateLimiter
	if rl.rate != 100 || rl.burst != 200 || rl.window != time.Second {
		t.Errorf("rate limiter not configured from ServerConfig: rate=%d burst=%d window=%s", rl.rate, rl.burst, rl.window)
	}
	if s.sessions == nil {
		t.Error("sessions map is nil")
	}
	if s.httpServer != nil {
		t.Error("httpServer is set before Start")
	}
}

func TestShutdownWithoutStart(t *testing.T) {
	tests := []struct {
		name  string
		calls int
	}{
		{"once", 1},
		{"twice", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			finishes(t, 5*time.Second, func() {
				for range tt.calls {
					s.Shutdown()
				}
			})
			if s.ctx.Err() == nil {
				t.Error("context not cancelled")
			}
			if n := s.sessionCount(); n != 0 {
				t.Errorf("%d sessions left", n)
			}
		})
	}
}

func TestShutdownConcurrentServers(t *testing.T) {
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			newTestServer(t).Shutdown()
		}()
	}
	wg.Wait()
}

func TestShutdownDisconnectsSessions(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.sessionCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.sessionCount() != 1 {
		t.Fatalf("sessions = %d, want 1", s.sessionCount())
	}

	finishes(t, 5*time.Second, s.Shutdown)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("connection still open after Shutdown")
	}
}

func TestNewFillsUnsetConfig(t *testing.T) {
	s := New(newTestApp(t), config.ServerConfig{})
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	defer s.Shutdown()

	if s.addr != "127.0.0.1:7420" || s.rateLimiter.window != time.Second {
		t.Errorf("addr = %q, window = %s", s.addr, s.rateLimiter.window)
	}
	h := s.Handler()
	for i := range 2 {
		req := httptest.NewRequest(http.MethodGet, "/api/commands", nil)
		req.RemoteAddr = "10.0.0.9:1000"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i+1, w.Code)
		}
	}
}

func TestWebSocketRefusedAfterShutdown(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	s.Shutdown()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		conn.Close()
		t.Fatal("WebSocket accepted after Shutdown")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("response = %v, want 503", resp)
	}
	if s.addSession(&session{srv: s}) {
		t.Error("addSession succeeded after Shutdown")
	}
	if n := s.sessionCount(); n != 0 {
		t.Errorf("%d sessions after Shutdown", n)
	}
}

func TestStartServesAndStops(t *testing.T) {
	s := newTestServer(t)
	s.addr = freePort(t)

	startErr := make(chan error, 1)
	go func() { startErr <- s.Start() }()

	// No keep-alive, so the health check does not hold a connection open
	// during Shutdown.
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}, Timeout: 2 * time.Second}
	var lastErr error
	for deadline := time.Now().Add(5 * time.Second); time.Now().Before(deadline); {
		var resp *http.Response
		if resp, lastErr = client.Get("http://" + s.addr + "/health"); lastErr == nil {
			resp.Body.Close()
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if lastErr != nil {
		s.Shutdown()
		t.Fatalf("server never answered on %s: %v", s.addr, lastErr)
	}

	s.Shutdown()

	select {
	case err := <-startErr:
		if err != nil {
			t.Errorf("Start() = %v after Shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("Start() did not return after Shutdown")
	}
}

func TestStartListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	s := newTestServer(t)
	s.addr = ln.Addr().String()
	if err := s.Start(); err == nil {
		t.Error("Start() on a busy port returned nil")
	}
	s.Shutdown()
}

// freePort returns a localhost address whose port was free a moment ago.
func freePort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("freePort: %v", err)
	}
	defer ln.Close()
	return ln.Addr().String()
}
