package gateway

import (
	"errors"
	"sync"
	"time"

	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/infrastructure/mqtt"
	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/lacrosse"
	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/sensor"
)

var errBrokerGone = errors.New("broker gone")

var testTopics = mqtt.Topics{
	Base:            "homeassistant",
	DiscoveryPrefix: "homeassistant",
	GatewayID:       "lacrosse-mqtt-daemon",
}

var testThresholds = sensor.Thresholds{
	PublishInterval:    300 * time.Second,
	MinPublishInterval: 3600 * time.Second,
	TemperatureDelta:   0.5,
	HumidityDelta:      2,
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// MockPublisher implements Publisher for testing.
type MockPublisher struct {
	mu        sync.Mutex
	published []mockPublish
	connected bool

	// failTopic makes Publish fail for topics with this exact name;
	// failAll makes every Publish fail.
	failTopic string
	failAll   bool
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{connected: true}
}

func (m *MockPublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll || topic == m.failTopic {
		return errBrokerGone
	}
	m.published = append(m.published, mockPublish{Topic: topic, Payload: payload, QoS: qos, Retained: retained})
	return nil
}

func (m *MockPublisher) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockPublisher) GetPublished() []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockPublish(nil), m.published...)
}

// PublishedTo returns the messages sent to one topic.
func (m *MockPublisher) PublishedTo(topic string) []mockPublish {
	var out []mockPublish
	for _, p := range m.GetPublished() {
		if p.Topic == topic {
			out = append(out, p)
		}
	}
	return out
}

func (m *MockPublisher) ClearPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = nil
}

func (m *MockPublisher) SetFailAll(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAll = fail
}

// MockSource implements lacrosse.FrameSource for testing.
// Frames are delivered synchronously by SimulateFrame.
type MockSource struct {
	mu       sync.Mutex
	onFrame  func(lacrosse.Frame)
	onError  func(error)
	scanning bool
	open     bool
	scanErr  error
	stats    lacrosse.Stats
}

func NewMockSource() *MockSource {
	return &MockSource{open: true}
}

func (m *MockSource) SetOnFrame(cb func(lacrosse.Frame)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFrame = cb
}

func (m *MockSource) SetOnError(cb func(error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onError = cb
}

func (m *MockSource) StartScan() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scanErr != nil {
		return m.scanErr
	}
	m.scanning = true
	return nil
}

func (m *MockSource) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

func (m *MockSource) Stats() lacrosse.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.Open = m.open
	s.Scanning = m.scanning
	return s
}

func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	return nil
}

func (m *MockSource) Info() string {
	return "[LaCrosseITPlusReader.10.1s (RFM69 f:868300 r:17241)]"
}

func (m *MockSource) SimulateFrame(f lacrosse.Frame) {
	m.mu.Lock()
	cb := m.onFrame
	m.mu.Unlock()
	if cb != nil {
		cb(f)
	}
}

func (m *MockSource) SimulateError(err error) {
	m.mu.Lock()
	cb := m.onError
	m.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

// mockRecorder records RecordFrame calls.
type mockRecorder struct {
	mu    sync.Mutex
	calls []recordCall
}

type recordCall struct {
	DeviceID   int
	Registered bool
}

func (r *mockRecorder) RecordFrame(f lacrosse.Frame, registered bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordCall{f.DeviceID, registered})
}

// mockSink records WriteReading calls.
type mockSink struct {
	mu        sync.Mutex
	decisions []sensor.Decision
}

func (s *mockSink) WriteReading(_ sensor.Sensor, _ sensor.Reading, d sensor.Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, d)
}

// mockBroadcaster records broadcasts.
type mockBroadcaster struct {
	mu     sync.Mutex
	events []ReadingEvent
}

func (b *mockBroadcaster) Broadcast(channel string, payload any) {
	if channel != ReadingChannel {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, payload.(ReadingEvent))
}

// mockNotifier records service manager notifications.
type mockNotifier struct {
	mu        sync.Mutex
	statuses  []string
	watchdogs int
}

func (n *mockNotifier) Status(msg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, msg)
	return nil
}

func (n *mockNotifier) Watchdog() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.watchdogs++
	return nil
}

func (n *mockNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.statuses), n.watchdogs
}

// frame builds a frame received at t0+at.
func frame(id int, at time.Duration, temp, hum float64) lacrosse.Frame {
	return lacrosse.Frame{
		DeviceID:    id,
		Type:        1,
		Temperature: temp,
		Humidity:    hum,
		ReceivedAt:  t0.Add(at),
	}
}

// testRegistry registers Wohnzimmer (12) and Büro@Süd (7).
func testRegistry(t interface{ Fatalf(string, ...any) }) *sensor.Registry {
	reg := sensor.NewRegistry(testThresholds)
	for _, s := range []struct{ id, name string }{{"12", "Wohnzimmer"}, {"7", "Büro@Süd"}} {
		if _, err := reg.Register(s.id, s.name); err != nil {
			t.Fatalf("Register(%s) error = %v", s.name, err)
		}
	}
	return reg
}
