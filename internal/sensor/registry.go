package sensor

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// deviceIDPattern is the LaCrosse addressing scheme accepted in config:
// one or two decimal digits.
var deviceIDPattern = regexp.MustCompile(`^[0-9]{1,2}$`)

// Sensor describes a configured sensor.
type Sensor struct {
	// DeviceID is the id the sensor transmits.
	DeviceID int `json:"device_id"`

	// Name is the configured name, including an optional "@location" suffix.
	Name string `json:"name"`

	// Label is the part of Name before "@".
	Label string `json:"label"`

	// Location is the part of Name after "@", or empty.
	Location string `json:"location,omitempty"`

	// Token is the lowercased Clean(Name) used in topics and unique ids.
	Token string `json:"token"`
}

// NewSensor splits a configured name and derives its token.
func NewSensor(deviceID int, name string) Sensor {
	name = strings.TrimSpace(name)
	label, location, _ := strings.Cut(name, "@")
	return Sensor{
		DeviceID: deviceID,
		Name:     name,
		Label:    strings.TrimSpace(label),
		Location: strings.TrimSpace(location),
		Token:    strings.ToLower(Clean(name)),
	}
}

// Registry maps device ids to gates.
//
// Thread Safety: All methods are safe for concurrent use.
type Registry struct {
	thresholds Thresholds

	mu     sync.RWMutex
	gates  map[int]*Gate
	order  []*Gate
	tokens map[string]int
}

// NewRegistry creates an empty registry whose gates use the given thresholds.
func NewRegistry(t Thresholds) *Registry {
	return &Registry{
		thresholds: t,
		gates:      make(map[int]*Gate),
		tokens:     make(map[string]int),
	}
}

// Register creates the gate for a configured sensor.
//
// Parameters:
//   - deviceID: Device id as written in config, one or two digits
//   - name: Display name, optionally "name@location"
//
// Returns:
//   - *Gate: The new gate
//   - error: *ConfigurationError if the id is malformed or already used,
//     the name is empty, or its token collides with another sensor
func (r *Registry) Register(deviceID, name string) (*Gate, error) {
	return r.RegisterWithThresholds(deviceID, name, r.thresholds)
}

// RegisterWithThresholds is Register with per-sensor thresholds.
func (r *Registry) RegisterWithThresholds(deviceID, name string, t Thresholds) (*Gate, error) {
	raw := strings.TrimSpace(deviceID)
	if !deviceIDPattern.MatchString(raw) {
		return nil, &ConfigurationError{DeviceID: deviceID, Name: name, Reason: "device id must be one or two digits"}
	}
	if strings.TrimSpace(name) == "" {
		return nil, &ConfigurationError{DeviceID: deviceID, Name: name, Reason: "name is required"}
	}

	id, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &ConfigurationError{DeviceID: deviceID, Name: name, Reason: err.Error()}
	}

	s := NewSensor(id, name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.gates[id]; ok {
		return nil, &ConfigurationError{
			DeviceID: deviceID,
			Name:     name,
			Reason:   "device id already used by " + strconv.Quote(existing.sensor.Name),
		}
	}
	if other, ok := r.tokens[s.Token]; ok {
		return nil, &ConfigurationError{
			DeviceID: deviceID,
			Name:     name,
			Reason:   "name maps to topic " + strconv.Quote(s.Token) + " already used by device " + strconv.Itoa(other),
		}
	}

	g := NewGate(s, t)
	r.gates[id] = g
	r.tokens[s.Token] = id
	r.order = append(r.order, g)
	return g, nil
}

// Route returns the gate for a reading.
//
// Returns:
//   - *Gate: Gate registered for r.DeviceID
//   - error: *UnknownSensorError if no sensor uses that id
func (r *Registry) Route(reading Reading) (*Gate, error) {
	g, ok := r.Lookup(reading.DeviceID)
	if !ok {
		return nil, &UnknownSensorError{DeviceID: reading.DeviceID}
	}
	return g, nil
}

// Lookup returns the gate for a device id.
func (r *Registry) Lookup(deviceID int) (*Gate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.gates[deviceID]
	return g, ok
}

// Gates returns all gates in registration order.
func (r *Registry) Gates() []*Gate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Gate, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered sensors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
