package lacrosse

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/sensor"
)

// Frame layout of a LaCrosse line as printed by the JeeLink firmware:
//
//	OK 9 <id> <type|new_battery> <temp_hi> <temp_lo> <humidity|low_battery>
const (
	framePrefix     = "OK 9"
	frameFieldCount = 7

	newBatteryBit = 0x80
	lowBatteryBit = 0x80
	typeMask      = 0x7f
	humidityMask  = 0x7f

	// temperatureOffset is added by the sensor so negative values fit.
	temperatureOffset = 1000
)

// NoHumidity is the humidity value sent by temperature-only sensors.
const NoHumidity = 106

// Frame is one decoded LaCrosse transmission.
type Frame struct {
	// DeviceID is the id the sensor picked after its last battery change.
	DeviceID int

	// Type is the sensor type nibble.
	Type int

	// Temperature in degrees Celsius, 0.1 resolution.
	Temperature float64

	// Humidity in percent; NoHumidity for temperature-only sensors.
	Humidity float64

	// LowBattery is set when the sensor reports a weak battery.
	LowBattery bool

	// NewBattery is set for a few hours after a battery change.
	NewBattery bool

	// ReceivedAt is when the adapter read the line.
	ReceivedAt time.Time

	// Raw is the line as received, without line terminator.
	Raw string
}

// ParseFrame decodes a line from the adapter.
//
// Parameters:
//   - line: One line of firmware output, with or without trailing whitespace
//
// Returns:
//   - Frame: Decoded frame; ReceivedAt is left zero
//   - error: ErrUnsupportedFrame for non-LaCrosse output, ErrInvalidFrame
//     for malformed LaCrosse lines
//
// Example:
//
//	f, _ := lacrosse.ParseFrame("OK 9 56 1 4 156 37")
//	// f.DeviceID == 56, f.Temperature == 18.0, f.Humidity == 37
func ParseFrame(line string) (Frame, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, framePrefix+" ") {
		return Frame{}, fmt.Errorf("%w: %q", ErrUnsupportedFrame, line)
	}

	fields := strings.Fields(line)
	if len(fields) != frameFieldCount {
		return Frame{}, fmt.Errorf("%w: expected %d fields, got %d in %q",
			ErrInvalidFrame, frameFieldCount, len(fields), line)
	}

	var data [frameFieldCount]int
	for i := 2; i < frameFieldCount; i++ {
		v, err := strconv.Atoi(fields[i])
		if err != nil || v < 0 || v > 255 {
			return Frame{}, fmt.Errorf("%w: field %d %q is not a byte in %q",
				ErrInvalidFrame, i, fields[i], line)
		}
		data[i] = v
	}

	raw := data[4]*256 + data[5] - temperatureOffset

	return Frame{
		DeviceID:    data[2],
		Type:        data[3] & typeMask,
		NewBattery:  data[3]&newBatteryBit != 0,
		Temperature: float64(raw) / 10,
		Humidity:    float64(data[6] & humidityMask),
		LowBattery:  data[6]&lowBatteryBit != 0,
		Raw:         line,
	}, nil
}

// Reading converts the frame into the reading consumed by publish gates.
func (f Frame) Reading() sensor.Reading {
	return sensor.Reading{
		DeviceID:    f.DeviceID,
		Temperature: f.Temperature,
		Humidity:    f.Humidity,
		LowBattery:  f.LowBattery,
		NewBattery:  f.NewBattery,
		ObservedAt:  f.ReceivedAt,
	}
}

// isBanner reports whether the line is the firmware identification,
// e.g. "[LaCrosseITPlusReader.10.1s (RFM69 f:868300 r:17241)]".
func isBanner(line string) bool {
	return strings.HasPrefix(line, "[")
}
