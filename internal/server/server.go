// Package server exposes a cli.App over HTTP and WebSocket so that one
// long-lived registry can serve many dispatches.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rybkr/argroute/internal/cli"
	"github.com/rybkr/argroute/internal/config"
)

const shutdownTimeout = 10 * time.Second

// Server dispatches argument vectors sent over HTTP or WebSocket. The app
// it holds is never modified; every dispatch runs on a clone.
type Server struct {
	app         atomic.Pointer[cli.App]
	addr        string
	rateLimiter *rateLimiter
	httpServer  *http.Server
	// logger defaults to slog.Default() so the handler configured in main
	// applies; tests replace it with a discard handler.
	logger *slog.Logger

	sessionsMu sync.RWMutex
	sessions   map[*session]struct{}
	closed     bool // set by Shutdown; no sessions are added after it

	// ctx is cancelled on Shutdown and bounds WebSocket dispatches.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Server for app listening on cfg.Addr. Unset fields of
// cfg take their defaults.
func New(app *cli.App, cfg config.ServerConfig) *Server {
	cfg = cfg.WithDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		addr:        cfg.Addr,
		rateLimiter: newRateLimiter(cfg.Rate, cfg.Burst, cfg.Window),
		logger:      slog.Default(),
		sessions:    make(map[*session]struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
	s.app.Store(app)
	return s
}

// App returns the app new dispatches run against.
func (s *Server) App() *cli.App {
	return s.app.Load()
}

// SetApp replaces the app used by later dispatches. Dispatches already
// running finish on the app they started with.
func (s *Server) SetApp(app *cli.App) {
	s.app.Store(app)
	s.logger.Info("App replaced", "commands", len(app.CommandNames()))
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/commands", s.rateLimiter.middleware(s.handleCommands))
	mux.HandleFunc("POST /api/dispatch", s.rateLimiter.middleware(s.handleDispatch))
	mux.HandleFunc("GET /api/ws", s.handleWebSocket)
	return mux
}

// Start serves until Shutdown is called or listening fails. It returns nil
// after a clean shutdown.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Hijacked WebSocket connections set their own deadlines.
		IdleTimeout: 120 * time.Second,
	}

	s.logger.Info("argroute server starting", "addr", "http://"+s.addr)
	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, disconnects WebSocket clients and waits
// for their sessions to end. It is safe to call without Start.
func (s *Server) Shutdown() {
	s.logger.Info("Server shutting down")

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", "err", err)
		}
	}

	s.cancel()
	s.rateLimiter.Close()
	s.closeSessions()
	s.wg.Wait()

	s.logger.Info("Server shutdown complete")
}
