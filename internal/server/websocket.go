package server

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 64 << 10
)

// Only same-host pages and non-browser clients may open a session.
var upgrader = websocket.Upgrader{
	CheckOrigin: sameOrigin,
}

// session is one WebSocket client. Requests are answered in the order they
// arrive.
type session struct {
	srv  *Server
	conn *websocket.Conn
	addr net.Addr

	// gorilla allows one concurrent writer; pings go through WriteControl,
	// which needs no lock.
	writeMu sync.Mutex
	done    chan struct{}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.ctx.Err() != nil {
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", "err", err)
		return
	}

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.logger.Error("Failed to set read deadline", "addr", conn.RemoteAddr(), "err", err)
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	sess := &session{srv: s, conn: conn, addr: conn.RemoteAddr(), done: make(chan struct{})}
	if !s.addSession(sess) {
		s.logger.Info("WebSocket client refused during shutdown", "addr", sess.addr)
		_ = conn.Close()
		return
	}
	go sess.serve()
	go sess.keepalive()
}

// serve dispatches each request message and writes the reply. It closes
// done when the client goes away.
func (c *session) serve() {
	defer c.srv.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			c.srv.logger.Warn("Recovered panic in WebSocket session", "addr", c.addr, "panic", r)
		}
		close(c.done)
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.srv.logger.Error("WebSocket read error", "addr", c.addr, "err", err)
			}
			return
		}

		if err := c.send(c.handle(data)); err != nil {
			c.srv.logger.Error("Failed to send reply", "addr", c.addr, "err", err)
			return
		}
	}
}

func (c *session) handle(data []byte) DispatchResponse {
	var req DispatchRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return DispatchResponse{Code: -1, Error: "invalid request: " + err.Error()}
	}
	resp, _ := c.srv.dispatch(c.srv.ctx, req)
	return resp
}

func (c *session) send(resp DispatchResponse) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(resp)
}

// keepalive pings the client until the session ends, then unregisters it.
func (c *session) keepalive() {
	defer c.srv.wg.Done()
	defer c.srv.removeSession(c)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			c.srv.logger.Info("WebSocket client disconnected", "addr", c.addr)
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.srv.logger.Error("WebSocket ping failed", "addr", c.addr, "err", err)
				return
			}
		}
	}
}

// addSession registers c and accounts for its two goroutines. It reports
// false once Shutdown has begun, so wg.Add never races with wg.Wait.
func (s *Server) addSession(c *session) bool {
	s.sessionsMu.Lock()
	if s.closed {
		s.sessionsMu.Unlock()
		return false
	}
	s.sessions[c] = struct{}{}
	s.wg.Add(2)
	n := len(s.sessions)
	s.sessionsMu.Unlock()
	s.logger.Info("WebSocket client connected", "addr", c.addr, "totalClients", n)
	return true
}

func (s *Server) removeSession(c *session) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	if _, ok := s.sessions[c]; !ok {
		return
	}
	delete(s.sessions, c)
	if err := c.conn.Close(); err != nil {
		s.logger.Error("Failed to close connection", "addr", c.addr, "err", err)
	}
	s.logger.Info("WebSocket client removed", "totalClients", len(s.sessions))
}

// closeSessions drops every client and refuses new ones. Their goroutines
// exit on the next read.
func (s *Server) closeSessions() {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	s.closed = true
	for c := range s.sessions {
		if err := c.conn.Close(); err != nil {
			s.logger.Error("Failed to close client connection", "addr", c.addr, "err", err)
		}
	}
	s.sessions = make(map[*session]struct{})
}

func (s *Server) sessionCount() int {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	return len(s.sessions)
}
