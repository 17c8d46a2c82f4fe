package influxdb

import (
	"strconv"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/sensor"
)

// Measurement is the InfluxDB measurement holding sensor readings.
const Measurement = "lacrosse_reading"

// WriteReading queues one reading together with the gate's decision.
//
// Every routed reading is written, suppressed ones included, so the
// series shows what the radio heard and which values reached MQTT.
// The point carries the reading's own timestamp.
//
// Tags: sensor (token), device_id, location, reason.
// Fields: temperature, humidity, battery, published.
func (c *Client) WriteReading(s sensor.Sensor, r sensor.Reading, d sensor.Decision) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(readingPoint(s, r, d))
}

func readingPoint(s sensor.Sensor, r sensor.Reading, d sensor.Decision) *write.Point {
	tags := map[string]string{
		"sensor":    s.Token,
		"device_id": strconv.Itoa(s.DeviceID),
		"reason":    string(d.Reason),
	}
	if s.Location != "" {
		tags["location"] = s.Location
	}

	fields := map[string]interface{}{
		"temperature": r.Temperature,
		"humidity":    r.Humidity,
		"battery":     r.BatteryPercent(),
		"published":   d.Publish,
	}

	return write.NewPoint(Measurement, tags, fields, r.ObservedAt)
}
