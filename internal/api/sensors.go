package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleListSensors returns every configured sensor in config order.
func (s *Server) handleListSensors(w http.ResponseWriter, _ *http.Request) {
	sensors := s.gateway.Sensors()
	writeJSON(w, http.StatusOK, map[string]any{"sensors": sensors, "count": len(sensors)})
}

// handleGetSensor returns one sensor by its radio device id.
func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 0 {
		writeBadRequest(w, "sensor id must be a non-negative integer")
		return
	}

	sensor, ok := s.gateway.Sensor(id)
	if !ok {
		writeNotFound(w, "sensor not found")
		return
	}
	writeJSON(w, http.StatusOK, sensor)
}

// handleListSightings returns device ids heard on the radio, most recent first.
//
// Query parameters:
//   - unregistered=true: only ids not in the sensor config
func (s *Server) handleListSightings(w http.ResponseWriter, r *http.Request) {
	if s.sightings == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "sightings require the database to be enabled")
		return
	}

	unregistered := false
	if v := r.URL.Query().Get("unregistered"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "unregistered must be true or false")
			return
		}
		unregistered = b
	}

	sightings, err := s.sightings.Sightings(r.Context(), unregistered)
	if err != nil {
		s.logger.Error("listing sightings failed", "error", err)
		writeInternalError(w, "failed to list sightings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sightings": sightings, "count": len(sightings)})
}
