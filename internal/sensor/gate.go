package sensor

import (
	"math"
	"sync"
	"time"
)

// Reason explains a Decision.
type Reason string

// Decision reasons.
const (
	// ReasonFirstReading is used when nothing has been published for the
	// sensor yet.
	ReasonFirstReading Reason = "first_reading"

	// ReasonChanged is used when the cool-down elapsed and a metric moved
	// by at least its delta.
	ReasonChanged Reason = "changed"

	// ReasonCeiling is used when the last publish is older than
	// MinPublishInterval.
	ReasonCeiling Reason = "ceiling"

	// ReasonSuppressed is used when the reading is not published.
	ReasonSuppressed Reason = "suppressed"
)

// Thresholds are the publish rules shared by gates.
type Thresholds struct {
	// PublishInterval is the cool-down since the previous reading before a
	// change may trigger a publish.
	PublishInterval time.Duration

	// MinPublishInterval is the ceiling: once this long has passed since the
	// last publish, the next reading is always published.
	MinPublishInterval time.Duration

	// TemperatureDelta is the minimum absolute temperature change in °C.
	TemperatureDelta float64

	// HumidityDelta is the minimum absolute humidity change in %.
	HumidityDelta float64
}

// State is the bookkeeping a Gate keeps for its sensor.
// Zero times mean the event has not happened yet.
type State struct {
	Temperature     float64   `json:"temperature"`
	Humidity        float64   `json:"humidity"`
	Battery         int       `json:"battery"`
	LastReadAt      time.Time `json:"last_read_at"`
	LastPublishedAt time.Time `json:"last_published_at"`
}

// Decision is the outcome of evaluating one reading.
type Decision struct {
	Publish bool
	Reason  Reason
	Payload Payload

	// SinceRead and SincePublished are zero on the first reading.
	SinceRead      time.Duration
	SincePublished time.Duration
}

// Gate decides whether readings of a single sensor are published.
//
// Thread Safety: All methods are safe for concurrent use.
type Gate struct {
	sensor     Sensor
	thresholds Thresholds

	mu    sync.Mutex
	state State
}

// NewGate creates a gate for a sensor with the given thresholds.
func NewGate(s Sensor, t Thresholds) *Gate {
	return &Gate{
		sensor:     s,
		thresholds: t,
	}
}

// Evaluate folds a reading into the gate state and returns the decision.
//
// Temperature, humidity, battery and LastReadAt are always updated.
// LastPublishedAt is left alone; call MarkPublished once the payload has
// been handed to the transport.
//
// Parameters:
//   - r: Reading for this gate's sensor; r.ObservedAt is used as "now"
//
// Returns:
//   - Decision: Whether to publish, why, and the payload to send
func (g *Gate) Evaluate(r Reading) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	d := Decision{Payload: PayloadFor(r)}
	prev := g.state

	g.state.Temperature = r.Temperature
	g.state.Humidity = r.Humidity
	g.state.Battery = r.BatteryPercent()
	g.state.LastReadAt = r.ObservedAt

	if prev.LastReadAt.IsZero() || prev.LastPublishedAt.IsZero() {
		d.Publish = true
		d.Reason = ReasonFirstReading
		return d
	}

	d.SinceRead = r.ObservedAt.Sub(prev.LastReadAt)
	d.SincePublished = r.ObservedAt.Sub(prev.LastPublishedAt)

	dT := math.Abs(r.Temperature - prev.Temperature)
	dH := math.Abs(r.Humidity - prev.Humidity)

	changed := d.SinceRead >= g.thresholds.PublishInterval &&
		(dT >= g.thresholds.TemperatureDelta || dH >= g.thresholds.HumidityDelta)
	ceiling := d.SincePublished >= g.thresholds.MinPublishInterval

	switch {
	case ceiling:
		d.Publish = true
		d.Reason = ReasonCeiling
	case changed:
		d.Publish = true
		d.Reason = ReasonChanged
	default:
		d.Reason = ReasonSuppressed
	}

	return d
}

// MarkPublished records a successful publish at the given time.
// A time later than LastReadAt is clamped so a publish never precedes
// its read.
func (g *Gate) MarkPublished(at time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if at.After(g.state.LastReadAt) {
		at = g.state.LastReadAt
	}
	g.state.LastPublishedAt = at
}

// Snapshot returns a copy of the current state.
func (g *Gate) Snapshot() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Sensor returns the sensor this gate is bound to.
func (g *Gate) Sensor() Sensor {
	return g.sensor
}

// Thresholds returns the rules this gate applies.
func (g *Gate) Thresholds() Thresholds {
	return g.thresholds
}
