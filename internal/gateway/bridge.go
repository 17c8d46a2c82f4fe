package gateway

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/infrastructure/mqtt"
	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/lacrosse"
	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/sensor"
)

// ReadingChannel is the WebSocket channel carrying published readings.
const ReadingChannel = "sensor.reading"

// Publisher delivers messages to the broker.
// *mqtt.Client satisfies it.
type Publisher interface {
	// Publish sends a message and waits for the broker to accept it.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Recorder records device ids heard on the radio.
// Optional; *SightingRecorder satisfies it.
type Recorder interface {
	RecordFrame(f lacrosse.Frame, registered bool)
}

// ReadingSink receives every routed reading with its decision.
// Optional; *influxdb.Client satisfies it.
type ReadingSink interface {
	WriteReading(s sensor.Sensor, r sensor.Reading, d sensor.Decision)
}

// Broadcaster pushes events to live subscribers.
// Optional; the API's WebSocket hub satisfies it.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// BridgeOptions holds the collaborators of a bridge.
type BridgeOptions struct {
	// Registry routes readings to gates. Required.
	Registry *sensor.Registry

	// Publisher is the MQTT client. Required.
	Publisher Publisher

	// Source is the radio adapter. Required.
	Source lacrosse.FrameSource

	// Topics builds state and discovery topics.
	Topics mqtt.Topics

	// StateQoS is used for state messages, DiscoveryQoS for discovery.
	StateQoS     byte
	DiscoveryQoS byte

	// Optional collaborators; nil disables them.
	Recorder    Recorder
	Sink        ReadingSink
	Broadcaster Broadcaster
	Metrics     *Metrics
	Logger      Logger
}

// ReadingEvent is broadcast after a reading has been published.
type ReadingEvent struct {
	Sensor      sensor.Sensor  `json:"sensor"`
	Topic       string         `json:"topic"`
	Reason      sensor.Reason  `json:"reason"`
	Payload     sensor.Payload `json:"payload"`
	ObservedAt  time.Time      `json:"observed_at"`
	PublishedAt time.Time      `json:"published_at"`
}

// SensorStatus is a point-in-time view of one configured sensor.
type SensorStatus struct {
	sensor.Sensor
	State     sensor.State `json:"state"`
	Published bool         `json:"published"`
}

// BridgeMetrics contains counters for health messages and the API.
type BridgeMetrics struct {
	AdapterOpen   bool
	Scanning      bool
	Firmware      string
	MQTTConnected bool
	FramesRx      uint64
	FramesDropped uint64
	InvalidFrames uint64
	Readings      uint64
	Published     uint64
	Suppressed    uint64
	Unknown       uint64
	PublishErrors uint64
	Sensors       int
}

// Bridge moves readings from the radio adapter to MQTT.
//
// For every frame it routes the reading to its sensor's gate, asks the
// gate for a decision, publishes the state payload when told to, and
// commits the publish to the gate only after the broker accepted it.
//
// A failed publish, a dead adapter or a lost broker connection is
// reported once on Fatal; afterwards frames are ignored.
//
// Thread Safety: All methods are safe for concurrent use. Frames are
// handled on the adapter's single callback worker, in arrival order.
type Bridge struct {
	registry  *sensor.Registry
	publisher Publisher
	source    lacrosse.FrameSource
	topics    mqtt.Topics
	stateQoS  byte
	announcer *DiscoveryAnnouncer

	recorder    Recorder
	sink        ReadingSink
	broadcaster Broadcaster
	metrics     *Metrics

	readings      atomic.Uint64
	published     atomic.Uint64
	suppressed    atomic.Uint64
	unknown       atomic.Uint64
	publishErrors atomic.Uint64

	fatal     chan error
	fatalOnce sync.Once
	failed    atomic.Bool

	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// NewBridge creates a bridge. Call Start to announce discovery and
// begin scanning.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("%w: registry is required", ErrInvalidOptions)
	}
	if opts.Publisher == nil {
		return nil, fmt.Errorf("%w: publisher is required", ErrInvalidOptions)
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("%w: frame source is required", ErrInvalidOptions)
	}

	return &Bridge{
		registry:    opts.Registry,
		publisher:   opts.Publisher,
		source:      opts.Source,
		topics:      opts.Topics,
		stateQoS:    opts.StateQoS,
		announcer:   NewDiscoveryAnnouncer(opts.Publisher, opts.Topics, opts.DiscoveryQoS),
		recorder:    opts.Recorder,
		sink:        opts.Sink,
		broadcaster: opts.Broadcaster,
		metrics:     opts.Metrics,
		fatal:       make(chan error, 1),
		logger:      opts.Logger,
	}, nil
}

// Start announces discovery for every sensor, wires the adapter
// callbacks and starts the scan.
//
// Returns:
//   - error: a discovery publish failure (wrapping ErrPublishFatal) or a
//     scan command failure; the caller should exit
func (b *Bridge) Start() error {
	sensors := make([]sensor.Sensor, 0, b.registry.Len())
	for _, g := range b.registry.Gates() {
		sensors = append(sensors, g.Sensor())
	}

	sent, err := b.announcer.AnnounceAll(sensors)
	if err != nil {
		return err
	}
	b.logInfo("discovery announced", "sensors", len(sensors), "messages", sent)

	b.source.SetOnFrame(b.handleFrame)
	b.source.SetOnError(func(err error) {
		b.Fail(fmt.Errorf("%w: %w", ErrAdapterFailed, err))
	})

	if err := b.source.StartScan(); err != nil {
		return fmt.Errorf("%w: start scan: %w", ErrAdapterFailed, err)
	}
	b.logInfo("bridge started", "sensors", len(sensors))
	return nil
}

// Stop detaches from the adapter. Safe to call multiple times.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.source.SetOnFrame(nil)
		b.source.SetOnError(nil)
		b.logInfo("bridge stopped")
	})
}

// Fatal delivers the first fatal error. It is never closed.
func (b *Bridge) Fatal() <-chan error {
	return b.fatal
}

// Fail reports a fatal condition. Only the first call has an effect.
// It is used for errors raised outside the bridge, such as a lost
// broker connection.
func (b *Bridge) Fail(err error) {
	b.fatalOnce.Do(func() {
		b.failed.Store(true)
		b.logError("fatal gateway error", err)
		b.fatal <- err
	})
}

// handleFrame processes one decoded frame from the adapter.
func (b *Bridge) handleFrame(f lacrosse.Frame) {
	if b.failed.Load() {
		return
	}
	b.metrics.ObserveFrame()

	r := f.Reading()
	gate, err := b.registry.Route(r)

	if b.recorder != nil {
		b.recorder.RecordFrame(f, err == nil)
	}

	if err != nil {
		b.unknown.Add(1)
		b.metrics.ObserveUnknown()
		b.logDebug("reading from unknown sensor", "device_id", r.DeviceID, "new_battery", f.NewBattery)
		return
	}

	s := gate.Sensor()
	d := gate.Evaluate(r)
	b.readings.Add(1)
	b.metrics.ObserveDecision(s, r, d)
	if b.sink != nil {
		b.sink.WriteReading(s, r, d)
	}

	if !d.Publish {
		b.suppressed.Add(1)
		b.logDebug("reading suppressed",
			"sensor", s.Token,
			"temperature", r.Temperature,
			"humidity", r.Humidity,
			"since_read", d.SinceRead,
			"since_published", d.SincePublished)
		return
	}

	topic := b.topics.SensorState(s.Token)
	if err := b.publishState(topic, d.Payload); err != nil {
		b.publishErrors.Add(1)
		b.metrics.ObservePublishError()
		b.Fail(fmt.Errorf("%w: sensor %s: %w", ErrPublishFatal, s.Token, err))
		return
	}

	gate.MarkPublished(r.ObservedAt)
	b.published.Add(1)
	b.metrics.ObservePublished(s, r)
	b.logInfo("reading published",
		"sensor", s.Token,
		"reason", d.Reason,
		"temperature", r.Temperature,
		"humidity", r.Humidity,
		"battery", d.Payload.Battery)

	if b.broadcaster != nil {
		b.broadcaster.Broadcast(ReadingChannel, ReadingEvent{
			Sensor:      s,
			Topic:       topic,
			Reason:      d.Reason,
			Payload:     d.Payload,
			ObservedAt:  r.ObservedAt,
			PublishedAt: time.Now().UTC(),
		})
	}
}

func (b *Bridge) publishState(topic string, p sensor.Payload) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return b.publisher.Publish(topic, payload, b.stateQoS, false)
}

// Sensors returns the status of every configured sensor in config order.
func (b *Bridge) Sensors() []SensorStatus {
	gates := b.registry.Gates()
	out := make([]SensorStatus, 0, len(gates))
	for _, g := range gates {
		out = append(out, statusOf(g))
	}
	return out
}

// Sensor returns the status of one sensor by device id.
func (b *Bridge) Sensor(deviceID int) (SensorStatus, bool) {
	g, ok := b.registry.Lookup(deviceID)
	if !ok {
		return SensorStatus{}, false
	}
	return statusOf(g), true
}

func statusOf(g *sensor.Gate) SensorStatus {
	st := g.Snapshot()
	return SensorStatus{
		Sensor:    g.Sensor(),
		State:     st,
		Published: !st.LastPublishedAt.IsZero(),
	}
}

// GetMetrics returns current counters.
func (b *Bridge) GetMetrics() BridgeMetrics {
	stats := b.source.Stats()
	m := BridgeMetrics{
		AdapterOpen:   b.source.IsOpen(),
		Scanning:      stats.Scanning,
		MQTTConnected: b.publisher.IsConnected(),
		FramesRx:      stats.FramesRx,
		FramesDropped: stats.FramesDropped,
		InvalidFrames: stats.InvalidFrames,
		Readings:      b.readings.Load(),
		Published:     b.published.Load(),
		Suppressed:    b.suppressed.Load(),
		Unknown:       b.unknown.Load(),
		PublishErrors: b.publishErrors.Load(),
		Sensors:       b.registry.Len(),
	}
	if info, ok := b.source.(interface{ Info() string }); ok {
		m.Firmware = info.Info()
	}
	return m
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

func (b *Bridge) logError(msg string, err error) {
	if logger := b.getLogger(); logger != nil {
		logger.Error(msg, "error", err)
	}
}
