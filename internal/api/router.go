package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/gateway"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	// Prometheus scrape endpoint
	r.Handle("/metrics", s.promMetrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/sensors", func(r chi.Router) {
			r.Get("/", s.handleListSensors)
			r.Get("/{id}", s.handleGetSensor)
		})

		r.Get("/sightings", s.handleListSightings)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the gateway health status.
// Unhealthy gateways answer 503 so load balancers and probes can act on it.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	m := s.gateway.GetMetrics()
	status, reason := gateway.AssessHealth(m)

	code := http.StatusOK
	if status == gateway.HealthUnhealthy {
		code = http.StatusServiceUnavailable
	}

	body := map[string]any{
		"status":         status,
		"version":        s.version,
		"mqtt_connected": m.MQTTConnected,
		"adapter_open":   m.AdapterOpen,
		"scanning":       m.Scanning,
	}
	if reason != "" {
		body["reason"] = reason
	}
	writeJSON(w, code, body)
}
