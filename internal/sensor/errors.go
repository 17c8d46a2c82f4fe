package sensor

import (
	"errors"
	"fmt"
)

// Domain errors for the sensor package.
var (
	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = errors.New("sensor: invalid configuration")

	// ErrUnknownSensor is matched by every *UnknownSensorError.
	ErrUnknownSensor = errors.New("sensor: unknown sensor")
)

// ConfigurationError reports a sensor entry that cannot be registered.
type ConfigurationError struct {
	DeviceID string
	Name     string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: sensor %q (device id %q): %s", ErrConfiguration, e.Name, e.DeviceID, e.Reason)
}

// Unwrap makes errors.Is(err, ErrConfiguration) succeed.
func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// UnknownSensorError reports a reading for a device id with no gate.
type UnknownSensorError struct {
	DeviceID int
}

func (e *UnknownSensorError) Error() string {
	return fmt.Sprintf("%s: device id %d", ErrUnknownSensor, e.DeviceID)
}

// Unwrap makes errors.Is(err, ErrUnknownSensor) succeed.
func (e *UnknownSensorError) Unwrap() error {
	return ErrUnknownSensor
}
