package server

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/rybkr/argroute/internal/config"
)

// TestNew_LoggerInheritsDefault verifies that New picks up slog.Default() at
// construction time, which is how main's initLogger reaches the server.
func TestNew_LoggerInheritsDefault(t *testing.T) {
	var buf bytes.Buffer
	original := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(original) })

	s := New(newTestApp(t), config.Default().Server)
	defer s.Shutdown()

	s.logger.Info("test-message", "key", "value")
	if !strings.Contains(buf.String(), "test-message") {
		t.Errorf("server logger did not inherit slog.Default(); buffer = %q", buf.String())
	}
}

// TestSetApp_Logs verifies that swapping the app is logged with the new
// command count.
func TestSetApp_Logs(t *testing.T) {
	s := newTestServer(t)
	defer s.Shutdown()

	var buf bytes.Buffer
	s.logger = slog.New(slog.NewTextHandler(&buf, nil))
	s.SetApp(newTestApp(t))

	if out := buf.String(); !strings.Contains(out, "App replaced") || !strings.Contains(out, "commands=4") {
		t.Errorf("unexpected log output %q", out)
	}
}
