package server

import (
	"encoding/json"
	"net/http"
)

const maxRequestBody = 64 << 10

func (s *Server) handleCommands(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, commandInfos(s.App()))
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if !sameOrigin(r) {
		http.Error(w, "Cross-origin dispatch is not allowed", http.StatusForbidden)
		return
	}
	if !isJSON(r) {
		http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return
	}

	var req DispatchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := s.dispatch(r.Context(), req)
	status := http.StatusOK
	if err != nil {
		status = http.StatusInternalServerError
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "err", err)
	}
}
