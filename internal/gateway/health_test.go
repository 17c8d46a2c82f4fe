package gateway

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func newHealthFixture(t *testing.T) (*bridgeFixture, *HealthReporter) {
	t.Helper()
	f := newBridgeFixture(t)
	h := NewHealthReporter(f.bridge, testTopics, "1.2.3")
	h.startTime = t0
	h.now = func() time.Time { return t0.Add(90 * time.Second) }
	return f, h
}

func TestHealthReporter_Publish(t *testing.T) {
	f, h := newHealthFixture(t)
	f.start(t)
	f.source.SimulateFrame(frame(12, 0, 20, 50))
	f.source.SimulateFrame(frame(12, time.Second, 20, 50))
	f.source.SimulateFrame(frame(55, 0, 20, 50))

	msg, err := h.Publish()
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if msg.Status != HealthHealthy || msg.Reason != "" {
		t.Errorf("status = %s (%s), want healthy", msg.Status, msg.Reason)
	}
	if msg.UptimeSeconds != 90 || msg.Version != "1.2.3" || msg.Gateway != "lacrosse-mqtt-daemon" {
		t.Errorf("header = %+v", msg)
	}
	if msg.Readings != (ReadingCounter{Published: 1, Suppressed: 1, Unknown: 1}) {
		t.Errorf("readings = %+v", msg.Readings)
	}

	sent := f.publisher.PublishedTo("homeassistant/lacrosse-mqtt-daemon/health")
	if len(sent) != 1 {
		t.Fatalf("health messages = %d, want 1", len(sent))
	}
	if !sent[0].Retained || sent[0].QoS != 1 {
		t.Errorf("retained/qos = %v/%d, want true/1", sent[0].Retained, sent[0].QoS)
	}
	var decoded HealthMessage
	if err := json.Unmarshal(sent[0].Payload, &decoded); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if decoded.Sensors != 2 || !decoded.Adapter.Scanning {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestHealthReporter_Status(t *testing.T) {
	tests := []struct {
		name string
		m    BridgeMetrics
		want HealthStatus
	}{
		{"healthy", BridgeMetrics{MQTTConnected: true, AdapterOpen: true, Scanning: true}, HealthHealthy},
		{"not scanning", BridgeMetrics{MQTTConnected: true, AdapterOpen: true}, HealthDegraded},
		{"adapter closed", BridgeMetrics{MQTTConnected: true}, HealthUnhealthy},
		{"mqtt down", BridgeMetrics{AdapterOpen: true, Scanning: true}, HealthUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := AssessHealth(tt.m)
			if got != tt.want {
				t.Errorf("AssessHealth() = %s (%s), want %s", got, reason, tt.want)
			}
		})
	}
}

func TestHealthReporter_PublishFailure(t *testing.T) {
	f, h := newHealthFixture(t)
	f.publisher.SetFailAll(true)

	if _, err := h.Publish(); !errors.Is(err, ErrPublishFatal) {
		t.Errorf("Publish() error = %v, want ErrPublishFatal", err)
	}

	// best effort, must not panic or block
	h.PublishStopping()
}

func TestHealthReporter_Stopping(t *testing.T) {
	f, h := newHealthFixture(t)
	h.PublishStopping()

	sent := f.publisher.PublishedTo(testTopics.GatewayHealth())
	if len(sent) != 1 {
		t.Fatalf("health messages = %d, want 1", len(sent))
	}
	var msg HealthMessage
	if err := json.Unmarshal(sent[0].Payload, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Status != HealthStopping {
		t.Errorf("status = %s, want stopping", msg.Status)
	}
}
