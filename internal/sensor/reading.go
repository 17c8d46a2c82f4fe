package sensor

import (
	"strconv"
	"time"
)

// Battery levels reported in payloads. LaCrosse sensors only transmit a
// weak-battery flag, so the level is binary.
const (
	BatteryLow = 0
	BatteryOK  = 100
)

// Reading is one decoded sensor frame.
type Reading struct {
	// DeviceID is the sensor id transmitted over the air (0-99 once registered).
	DeviceID int

	// Temperature in degrees Celsius.
	Temperature float64

	// Humidity in percent relative humidity.
	Humidity float64

	// LowBattery is the weak-battery flag from the frame.
	LowBattery bool

	// NewBattery is set by the sensor for a while after a battery change.
	// It is informational and never affects publish decisions.
	NewBattery bool

	// ObservedAt is when the adapter received the frame.
	ObservedAt time.Time
}

// BatteryPercent maps the weak-battery flag to BatteryLow or BatteryOK.
func (r Reading) BatteryPercent() int {
	if r.LowBattery {
		return BatteryLow
	}
	return BatteryOK
}

// Payload is the body of a sensor state message.
//
// Field order matches the published JSON:
//
//	{"temperature":20.5,"humidity":50,"battery":100}
type Payload struct {
	Temperature Celsius `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Battery     int     `json:"battery"`
}

// PayloadFor builds the state payload for a reading.
func PayloadFor(r Reading) Payload {
	return Payload{
		Temperature: Celsius(r.Temperature),
		Humidity:    r.Humidity,
		Battery:     r.BatteryPercent(),
	}
}

// Celsius is a temperature that always encodes with one decimal place.
type Celsius float64

// MarshalJSON implements json.Marshaler.
func (c Celsius) MarshalJSON() ([]byte, error) {
	return strconv.AppendFloat(nil, float64(c), 'f', 1, 64), nil
}
