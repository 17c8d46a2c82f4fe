package mqtt

import (
	"fmt"

	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/infrastructure/config"
)

// Topics provides builders for the gateway's MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{Base: "homeassistant", DiscoveryPrefix: "homeassistant", GatewayID: "lacrosse-mqtt-daemon"}
//	topics.SensorState("buero-sued")
//	// Returns: "homeassistant/sensor/buero-sued/state"
type Topics struct {
	// Base is the prefix for state and gateway topics (mqtt.base_topic).
	Base string

	// DiscoveryPrefix is Home Assistant's discovery prefix.
	DiscoveryPrefix string

	// GatewayID names this gateway instance in status topics.
	GatewayID string
}

// NewTopics builds the topic set from config.
func NewTopics(cfg config.MQTTConfig) Topics {
	return Topics{
		Base:            cfg.BaseTopic,
		DiscoveryPrefix: cfg.DiscoveryPrefix,
		GatewayID:       cfg.GatewayID,
	}
}

// =============================================================================
// Sensor Topics
// =============================================================================

// SensorState returns the topic for a sensor's state updates.
//
// Example: homeassistant/sensor/kitchen/state
func (t Topics) SensorState(token string) string {
	return fmt.Sprintf("%s/sensor/%s/state", t.Base, token)
}

// SensorDiscovery returns the discovery config topic for one metric of a sensor.
//
// Example: homeassistant/sensor/kitchen/temperature/config
func (t Topics) SensorDiscovery(token, metric string) string {
	return fmt.Sprintf("%s/sensor/%s/%s/config", t.DiscoveryPrefix, token, metric)
}

// =============================================================================
// Gateway Topics
// =============================================================================

// GatewayStatus returns the retained online/offline topic, also used as LWT.
//
// Example: homeassistant/lacrosse-mqtt-daemon/status
func (t Topics) GatewayStatus() string {
	return fmt.Sprintf("%s/%s/status", t.Base, t.GatewayID)
}

// GatewayHealth returns the topic for periodic health reports.
//
// Example: homeassistant/lacrosse-mqtt-daemon/health
func (t Topics) GatewayHealth() string {
	return fmt.Sprintf("%s/%s/health", t.Base, t.GatewayID)
}

// =============================================================================
// Wildcard Patterns
// =============================================================================

// AllSensorStates returns a pattern matching every sensor state topic.
//
// Pattern: homeassistant/sensor/+/state
func (t Topics) AllSensorStates() string {
	return fmt.Sprintf("%s/sensor/+/state", t.Base)
}
