// Package api implements the HTTP REST API and WebSocket server for the gateway.
//
// This package provides:
//   - Read-only REST endpoints for sensors, sightings and runtime metrics
//   - Prometheus exposition at /metrics
//   - A WebSocket hub that relays published readings on the "sensor.reading" channel
//   - Middleware stack (request ID, logging, recovery)
//
// # Architecture
//
// The API never touches MQTT or the radio. It reads the bridge's sensor
// views and counters, and the bridge pushes each committed publish into
// the hub. With the API disabled the gateway runs unchanged.
//
// # Endpoints
//
//	GET /api/v1/health          gateway status (503 when unhealthy)
//	GET /api/v1/sensors         configured sensors with last state
//	GET /api/v1/sensors/{id}    one sensor by radio device id
//	GET /api/v1/sightings       device ids heard on the radio (?unregistered=true)
//	GET /api/v1/metrics         JSON system metrics
//	GET /api/v1/ws              WebSocket
//	GET /metrics                Prometheus
//
// # Security
//
// There is no authentication. The listener defaults to 127.0.0.1; expose
// it beyond the host only behind a reverse proxy.
package api
