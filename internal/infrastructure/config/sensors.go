package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// SensorEntry is one configured sensor.
//
// Two YAML forms are accepted:
//
//	sensors:
//	  Wohnzimmer: 12
//	  Büro@Süd:
//	    id: "7"
//	    temperature_delta: 0.2
type SensorEntry struct {
	// Name is the display name, optionally "name@location".
	Name string

	// DeviceID is kept as written so the registry can validate its format.
	DeviceID string

	// Optional per-sensor thresholds; nil uses the publish section.
	TemperatureDelta *float64
	HumidityDelta    *float64
}

// sensorOptions is the mapping form of a sensor entry.
type sensorOptions struct {
	ID               string   `yaml:"id"`
	TemperatureDelta *float64 `yaml:"temperature_delta"`
	HumidityDelta    *float64 `yaml:"humidity_delta"`
}

// Sensors keeps sensor entries in file order.
type Sensors []SensorEntry

// UnmarshalYAML implements yaml.Unmarshaler over the mapping node so the
// order of the file is preserved.
func (s *Sensors) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: sensors must be a mapping of name to device id", value.Line)
	}

	entries := make(Sensors, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]

		entry := SensorEntry{Name: strings.TrimSpace(key.Value)}
		switch val.Kind {
		case yaml.ScalarNode:
			entry.DeviceID = strings.TrimSpace(val.Value)
		case yaml.MappingNode:
			var opts sensorOptions
			if err := val.Decode(&opts); err != nil {
				return fmt.Errorf("line %d: sensor %q: %w", val.Line, entry.Name, err)
			}
			entry.DeviceID = strings.TrimSpace(opts.ID)
			entry.TemperatureDelta = opts.TemperatureDelta
			entry.HumidityDelta = opts.HumidityDelta
		default:
			return fmt.Errorf("line %d: sensor %q: expected a device id", val.Line, entry.Name)
		}

		entries = append(entries, entry)
	}

	*s = entries
	return nil
}
