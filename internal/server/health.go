package server

import (
	"context"
	"net/http"
	"time"
)

// HealthResponse is the JSON response structure for health checks.
type HealthResponse struct {
	Status    string `json:"status"`
	Transport string `json:"transport"`
	Storage   string `json:"storage,omitempty"`
	Error     string `json:"error,omitempty"`
}

// handleHealth handles GET /healthz.
// Returns 200 OK if the transport is connected and storage answers, 503
// Service Unavailable otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{Status: "healthy", Transport: "connected"}
	status := http.StatusOK

	if s.deps.Transport == nil || !s.deps.Transport.Connected() {
		response.Status = "unhealthy"
		response.Transport = "disconnected"
		status = http.StatusServiceUnavailable
	}

	if s.deps.Storage != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Storage.Ping(ctx); err != nil {
			response.Status = "unhealthy"
			response.Storage = "unavailable"
			response.Error = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			response.Storage = "ok"
		}
	}

	writeJSON(w, status, response)
}
