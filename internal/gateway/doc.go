// Package gateway connects the LaCrosse radio to MQTT.
//
// The Bridge receives decoded frames from the adapter, routes each
// reading through its sensor's publish gate and publishes the state
// payloads the gate lets through. The DiscoveryAnnouncer publishes Home
// Assistant discovery configs once at startup. The Scheduler runs the
// heartbeat (health message, systemd status and watchdog) and ends the
// process on the first fatal error.
//
// # Failure Model
//
// There is no retry anywhere in the gateway. A publish the broker does
// not accept, a lost broker connection and a dead serial adapter are
// all delivered on Bridge.Fatal; Scheduler.Run returns the error and the
// process exits non-zero so the service manager restarts it. Readings
// from unconfigured device ids are counted, recorded by the optional
// SightingRecorder and dropped.
//
// # Optional Collaborators
//
//   - SightingRecorder: SQLite list of heard device ids
//   - ReadingSink: InfluxDB export of every routed reading
//   - Broadcaster: WebSocket push of published readings
//   - Metrics: Prometheus collectors
package gateway
