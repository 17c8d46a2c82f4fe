package influxdb

import (
	"testing"
	"time"

	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/infrastructure/config"
	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/sensor"
)

func TestReadingPoint(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := sensor.NewSensor(7, "Büro@Süd")
	r := sensor.Reading{DeviceID: 7, Temperature: 20.5, Humidity: 50, LowBattery: true, ObservedAt: at}
	d := sensor.Decision{Publish: false, Reason: sensor.ReasonSuppressed}

	p := readingPoint(s, r, d)

	if p.Name() != Measurement {
		t.Errorf("Name() = %q, want %q", p.Name(), Measurement)
	}
	if !p.Time().Equal(at) {
		t.Errorf("Time() = %v, want reading time %v", p.Time(), at)
	}

	tags := make(map[string]string)
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	wantTags := map[string]string{
		"sensor":    s.Token,
		"device_id": "7",
		"location":  "Süd",
		"reason":    "suppressed",
	}
	for k, want := range wantTags {
		if tags[k] != want {
			t.Errorf("tag %s = %q, want %q", k, tags[k], want)
		}
	}

	fields := make(map[string]interface{})
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	if fields["temperature"] != 20.5 || fields["humidity"] != 50.0 {
		t.Errorf("temperature/humidity = %v/%v", fields["temperature"], fields["humidity"])
	}
	if fields["battery"] != int64(sensor.BatteryLow) {
		t.Errorf("battery = %v (%T), want %d", fields["battery"], fields["battery"], sensor.BatteryLow)
	}
	if fields["published"] != false {
		t.Errorf("published = %v, want false", fields["published"])
	}
}

func TestReadingPoint_NoLocation(t *testing.T) {
	p := readingPoint(sensor.NewSensor(12, "Wohnzimmer"), sensor.Reading{}, sensor.Decision{})
	for _, tag := range p.TagList() {
		if tag.Key == "location" {
			t.Errorf("unexpected location tag %q", tag.Value)
		}
	}
}

func TestClientOptions(t *testing.T) {
	tests := []struct {
		name      string
		batch     int
		flush     int
		wantBatch uint
		wantFlush uint
	}{
		{"configured", 50, 2, 50, 2000},
		{"defaults", 0, 0, defaultBatchSize, 10000},
		{"negative", -1, -5, defaultBatchSize, 10000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := clientOptions(config.InfluxDBConfig{BatchSize: tt.batch, FlushInterval: tt.flush})
			if opts.BatchSize() != tt.wantBatch {
				t.Errorf("BatchSize() = %d, want %d", opts.BatchSize(), tt.wantBatch)
			}
			if opts.FlushInterval() != tt.wantFlush {
				t.Errorf("FlushInterval() = %d, want %d", opts.FlushInterval(), tt.wantFlush)
			}
		})
	}
}
