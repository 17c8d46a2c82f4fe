package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	WebSocket     WSMetrics        `json:"websocket"`
	MQTT          MQTTMetrics      `json:"mqtt"`
	Adapter       AdapterMetrics   `json:"adapter"`
	Readings      ReadingMetrics   `json:"readings"`
	Database      *DatabaseMetrics `json:"database,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Connected bool `json:"connected"`
}

// AdapterMetrics contains radio adapter statistics.
type AdapterMetrics struct {
	Open          bool   `json:"open"`
	Scanning      bool   `json:"scanning"`
	Firmware      string `json:"firmware,omitempty"`
	FramesRx      uint64 `json:"frames_rx"`
	FramesDropped uint64 `json:"frames_dropped"`
	InvalidFrames uint64 `json:"invalid_frames"`
}

// ReadingMetrics counts readings by outcome.
type ReadingMetrics struct {
	Sensors       int    `json:"sensors"`
	Total         uint64 `json:"total"`
	Published     uint64 `json:"published"`
	Suppressed    uint64 `json:"suppressed"`
	Unknown       uint64 `json:"unknown"`
	PublishErrors uint64 `json:"publish_errors"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns system metrics as JSON.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	gw := s.gateway.GetMetrics()

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		MQTT: MQTTMetrics{Connected: gw.MQTTConnected},
		Adapter: AdapterMetrics{
			Open:          gw.AdapterOpen,
			Scanning:      gw.Scanning,
			Firmware:      gw.Firmware,
			FramesRx:      gw.FramesRx,
			FramesDropped: gw.FramesDropped,
			InvalidFrames: gw.InvalidFrames,
		},
		Readings: ReadingMetrics{
			Sensors:       gw.Sensors,
			Total:         gw.Readings,
			Published:     gw.Published,
			Suppressed:    gw.Suppressed,
			Unknown:       gw.Unknown,
			PublishErrors: gw.PublishErrors,
		},
	}

	if s.hub != nil {
		metrics.WebSocket.ConnectedClients = s.hub.ClientCount()
	}

	if s.db != nil {
		st := s.db.Stats()
		metrics.Database = &DatabaseMetrics{
			OpenConnections: st.OpenConnections,
			InUse:           st.InUse,
			Idle:            st.Idle,
			WaitCount:       st.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
