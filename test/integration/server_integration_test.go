//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rybkr/argroute/internal/cli"
	"github.com/rybkr/argroute/internal/config"
	"github.com/rybkr/argroute/internal/history"
	"github.com/rybkr/argroute/internal/server"
)

func newApp(t *testing.T, recorder cli.Recorder) *cli.App {
	t.Helper()
	app := cli.NewApp("itest", "1.0.0")
	app.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	app.Recorder = recorder

	for _, reg := range []cli.Registration{
		cli.Func("ping", func(inv *cli.Invocation) (cli.Result, error) {
			inv.Println("pong")
			return cli.OK(), nil
		}, "Reply with pong"),
		cli.Func("math_sum", func(inv *cli.Invocation) (cli.Result, error) {
			inv.Println(len(inv.Positional()))
			return cli.OK(), nil
		}, "Count the numbers"),
		cli.Func("math_prod", func(*cli.Invocation) (cli.Result, error) {
			return cli.Fail(), nil
		}, "Multiply the numbers"),
	} {
		if err := app.AddCommand(reg); err != nil {
			t.Fatal(err)
		}
	}
	return app
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

// TestServerIntegration starts a real server backed by a history store and
// drives it over HTTP and WebSocket.
func TestServerIntegration(t *testing.T) {
	store, err := history.Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	defer store.Close()

	cfg := config.Default().Server
	cfg.Addr = freeAddr(t)
	srv := server.New(newApp(t, store), cfg)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	defer srv.Shutdown()

	baseURL := "http://" + cfg.Addr
	waitForServer(t, baseURL, errCh)

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/health")
		if err != nil {
			t.Fatalf("GET /health: %v", err)
		}
		defer resp.Body.Close()

		var health server.HealthStatus
		if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if health.Status != "ok" || health.App != "itest" || health.Commands != 3 {
			t.Errorf("health = %+v", health)
		}
	})

	t.Run("dispatch", func(t *testing.T) {
		tests := []struct {
			args    []string
			code    int
			command string
			stdout  string
		}{
			{[]string{"ping"}, 0, "ping", "pong\n"},
			{[]string{"sum", "math", "1", "2"}, 0, "math sum", "2\n"},
			{[]string{"math", "prod"}, 2, "math prod", ""},
			{[]string{"pnig"}, 0, "ping", "pong\n"},
		}
		for _, tt := range tests {
			t.Run(fmt.Sprint(tt.args), func(t *testing.T) {
				resp := postDispatch(t, baseURL, server.DispatchRequest{Args: tt.args})
				if resp.Code != tt.code || resp.Command != tt.command || resp.Stdout != tt.stdout {
					t.Errorf("got %+v", resp)
				}
			})
		}
	})

	t.Run("websocket", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial("ws://"+cfg.Addr+"/api/ws", nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		defer conn.Close()

		if err := conn.WriteJSON(server.DispatchRequest{ID: "a1", Args: []string{"math"}}); err != nil {
			t.Fatalf("write: %v", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var resp server.DispatchResponse
		if err := conn.ReadJSON(&resp); err != nil {
			t.Fatalf("read: %v", err)
		}
		if resp.ID != "a1" || resp.Code != 1 || resp.Group != "math" || len(resp.Guesses) != 2 {
			t.Errorf("got %+v", resp)
		}
	})

	t.Run("history", func(t *testing.T) {
		entries, err := store.Recent(context.Background(), 100)
		if err != nil {
			t.Fatal(err)
		}
		// Four HTTP dispatches plus one over the WebSocket.
		if len(entries) != 5 {
			t.Fatalf("recorded %d entries, want 5", len(entries))
		}
		if entries[0].Command != "" || entries[0].Group != "math" {
			t.Errorf("newest entry = %+v", entries[0])
		}
	})
}

func waitForServer(t *testing.T, baseURL string, errCh <-chan error) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case err := <-errCh:
			t.Fatalf("server exited: %v", err)
		default:
		}
		resp, err := http.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("server did not come up")
}

func postDispatch(t *testing.T, baseURL string, req server.DispatchRequest) server.DispatchResponse {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(baseURL+"/api/dispatch", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/dispatch: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out server.DispatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}
