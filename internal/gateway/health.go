package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/infrastructure/mqtt"
)

// HealthStatus is the gateway's self-assessment.
type HealthStatus string

const (
	// HealthHealthy means the adapter is scanning and the broker is connected.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded means the adapter is open but not yet scanning.
	HealthDegraded HealthStatus = "degraded"

	// HealthUnhealthy means the adapter or broker is gone.
	HealthUnhealthy HealthStatus = "unhealthy"

	// HealthStopping is published once on shutdown.
	HealthStopping HealthStatus = "stopping"
)

// healthQoS matches the status topic.
const healthQoS = 1

// HealthMessage is published on every heartbeat.
// Topic: <base_topic>/<gateway_id>/health, QoS 1, retained.
type HealthMessage struct {
	Gateway       string         `json:"gateway"`
	Status        HealthStatus   `json:"status"`
	Reason        string         `json:"reason,omitempty"`
	Version       string         `json:"version"`
	Timestamp     time.Time      `json:"timestamp"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Adapter       AdapterHealth  `json:"adapter"`
	MQTTConnected bool           `json:"mqtt_connected"`
	Sensors       int            `json:"sensors"`
	Readings      ReadingCounter `json:"readings"`
}

// AdapterHealth summarises the radio adapter.
type AdapterHealth struct {
	Open          bool   `json:"open"`
	Scanning      bool   `json:"scanning"`
	Firmware      string `json:"firmware,omitempty"`
	FramesRx      uint64 `json:"frames_rx"`
	FramesDropped uint64 `json:"frames_dropped"`
	InvalidFrames uint64 `json:"invalid_frames"`
}

// ReadingCounter counts readings by outcome.
type ReadingCounter struct {
	Published     uint64 `json:"published"`
	Suppressed    uint64 `json:"suppressed"`
	Unknown       uint64 `json:"unknown"`
	PublishErrors uint64 `json:"publish_errors"`
}

// HealthReporter builds and publishes health messages from bridge metrics.
// It has no ticker of its own; the Scheduler drives it.
type HealthReporter struct {
	gatewayID string
	version   string
	topic     string
	startTime time.Time
	publisher Publisher
	bridge    *Bridge
	now       func() time.Time
}

// NewHealthReporter creates a reporter for a bridge.
func NewHealthReporter(b *Bridge, topics mqtt.Topics, version string) *HealthReporter {
	return &HealthReporter{
		gatewayID: topics.GatewayID,
		version:   version,
		topic:     topics.GatewayHealth(),
		startTime: time.Now(),
		publisher: b.publisher,
		bridge:    b,
		now:       time.Now,
	}
}

// Build assembles the current health message.
func (h *HealthReporter) Build() HealthMessage {
	m := h.bridge.GetMetrics()
	now := h.now()

	msg := HealthMessage{
		Gateway:       h.gatewayID,
		Version:       h.version,
		Timestamp:     now.UTC(),
		UptimeSeconds: int64(now.Sub(h.startTime) / time.Second),
		Adapter: AdapterHealth{
			Open:          m.AdapterOpen,
			Scanning:      m.Scanning,
			Firmware:      m.Firmware,
			FramesRx:      m.FramesRx,
			FramesDropped: m.FramesDropped,
			InvalidFrames: m.InvalidFrames,
		},
		MQTTConnected: m.MQTTConnected,
		Sensors:       m.Sensors,
		Readings: ReadingCounter{
			Published:     m.Published,
			Suppressed:    m.Suppressed,
			Unknown:       m.Unknown,
			PublishErrors: m.PublishErrors,
		},
	}
	msg.Status, msg.Reason = AssessHealth(m)
	return msg
}

// Publish sends the current health message.
//
// Returns an error wrapping ErrPublishFatal when the broker rejects it.
func (h *HealthReporter) Publish() (HealthMessage, error) {
	msg := h.Build()
	return msg, h.publish(msg)
}

// PublishStopping sends a final stopping message, best effort.
func (h *HealthReporter) PublishStopping() {
	msg := h.Build()
	msg.Status, msg.Reason = HealthStopping, ""
	_ = h.publish(msg) //nolint:errcheck // shutting down
}

func (h *HealthReporter) publish(msg HealthMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal health: %w", err)
	}
	if err := h.publisher.Publish(h.topic, payload, healthQoS, true); err != nil {
		return fmt.Errorf("%w: health: %w", ErrPublishFatal, err)
	}
	return nil
}

// AssessHealth derives the status and a short reason from bridge metrics.
func AssessHealth(m BridgeMetrics) (HealthStatus, string) {
	switch {
	case !m.MQTTConnected:
		return HealthUnhealthy, "MQTT disconnected"
	case !m.AdapterOpen:
		return HealthUnhealthy, "adapter closed"
	case !m.Scanning:
		return HealthDegraded, "adapter not scanning"
	default:
		return HealthHealthy, ""
	}
}
