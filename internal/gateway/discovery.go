package gateway

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/infrastructure/mqtt"
	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/sensor"
)

// Discovery payload constants.
const (
	discoveryManufacturer = "Lacrosse"
	discoveryModel        = "Lacrosse Sensor"
	identifierPrefix      = "Lacrosse"
	connectionType        = "device_id"
)

// Metric describes one value of the state payload as a Home Assistant
// sensor entity.
type Metric struct {
	// Key is the JSON key in the state payload and the topic segment.
	Key string

	// Title is appended to the sensor name for the entity name.
	Title string

	// Unit and DeviceClass are omitted from the payload when empty.
	Unit        string
	DeviceClass string
}

// SensorMetrics are announced for every sensor, in this order.
var SensorMetrics = []Metric{
	{Key: "temperature", Title: "Temperature", Unit: "°C", DeviceClass: "temperature"},
	{Key: "humidity", Title: "Humidity", Unit: "%", DeviceClass: "humidity"},
	{Key: "battery", Title: "Battery", Unit: "%", DeviceClass: "battery"},
}

// DiscoveryPayload is the body of a discovery config message.
// Field order is the wire order.
type DiscoveryPayload struct {
	Name              string          `json:"name"`
	UniqueID          string          `json:"unique_id"`
	UnitOfMeasurement string          `json:"unit_of_measurement,omitempty"`
	DeviceClass       string          `json:"device_class,omitempty"`
	StateTopic        string          `json:"state_topic"`
	ValueTemplate     string          `json:"value_template"`
	Device            DiscoveryDevice `json:"device"`
}

// DiscoveryDevice groups a sensor's entities into one device.
type DiscoveryDevice struct {
	Identifiers  []string   `json:"identifiers"`
	Connections  [][]string `json:"connections"`
	Manufacturer string     `json:"manufacturer"`
	Name         string     `json:"name"`
	Model        string     `json:"model"`
}

// BuildDiscoveryPayload returns the config payload for one metric of a sensor.
func BuildDiscoveryPayload(s sensor.Sensor, m Metric, topics mqtt.Topics) DiscoveryPayload {
	id := strconv.Itoa(s.DeviceID)
	return DiscoveryPayload{
		Name:              s.Name + " " + m.Title,
		UniqueID:          s.Token + "-" + m.Key,
		UnitOfMeasurement: m.Unit,
		DeviceClass:       m.DeviceClass,
		StateTopic:        topics.SensorState(s.Token),
		ValueTemplate:     fmt.Sprintf("{{ value_json.%s }}", m.Key),
		Device: DiscoveryDevice{
			Identifiers:  []string{identifierPrefix + id},
			Connections:  [][]string{{connectionType, id}},
			Manufacturer: discoveryManufacturer,
			Name:         s.Name,
			Model:        discoveryModel,
		},
	}
}

// DiscoveryAnnouncer publishes the retained discovery configs.
//
// It runs once at startup, before the radio starts scanning. Messages
// are retained so Home Assistant picks them up whenever it (re)connects.
type DiscoveryAnnouncer struct {
	publisher Publisher
	topics    mqtt.Topics
	qos       byte
}

// NewDiscoveryAnnouncer creates an announcer publishing with the given QoS.
func NewDiscoveryAnnouncer(p Publisher, topics mqtt.Topics, qos byte) *DiscoveryAnnouncer {
	return &DiscoveryAnnouncer{publisher: p, topics: topics, qos: qos}
}

// Announce publishes one config message per metric for a sensor.
//
// Returns:
//   - int: number of messages published
//   - error: the first publish failure, wrapping ErrPublishFatal
func (a *DiscoveryAnnouncer) Announce(s sensor.Sensor) (int, error) {
	sent := 0
	for _, m := range SensorMetrics {
		payload, err := json.Marshal(BuildDiscoveryPayload(s, m, a.topics))
		if err != nil {
			return sent, fmt.Errorf("marshal discovery %s/%s: %w", s.Token, m.Key, err)
		}
		topic := a.topics.SensorDiscovery(s.Token, m.Key)
		if err := a.publisher.Publish(topic, payload, a.qos, true); err != nil {
			return sent, fmt.Errorf("%w: discovery %s: %w", ErrPublishFatal, topic, err)
		}
		sent++
	}
	return sent, nil
}

// AnnounceAll announces every sensor in registry order and stops at the
// first failure.
func (a *DiscoveryAnnouncer) AnnounceAll(sensors []sensor.Sensor) (int, error) {
	total := 0
	for _, s := range sensors {
		n, err := a.Announce(s)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
