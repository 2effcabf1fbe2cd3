package server

import (
	"net/http"
)

// HealthStatus represents the server health check response.
type HealthStatus struct {
	Status   string `json:"status"`
	App      string `json:"app"`
	Version  string `json:"version,omitempty"`
	Commands int    `json:"commands"`
	Clients  int    `json:"clients"`
}

// handleHealth returns a health check response for load balancers and monitoring.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	app := s.App()

	s.writeJSON(w, http.StatusOK, HealthStatus{
		Status:   "ok",
		App:      app.Name,
		Version:  app.Version,
		Commands: len(app.CommandNames()),
		Clients:  s.sessionCount(),
	})
}
