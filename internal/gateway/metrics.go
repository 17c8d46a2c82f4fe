package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/lacrosse"
	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/sensor"
)

const metricsNamespace = "lacrosse"

// StatsSource exposes adapter statistics.
type StatsSource interface {
	Stats() lacrosse.Stats
}

// Metrics holds the gateway's Prometheus collectors.
// All methods are safe on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	frames        prometheus.Counter
	readings      *prometheus.CounterVec
	publishErrors prometheus.Counter
	unknown       prometheus.Counter

	temperature   *prometheus.GaugeVec
	humidity      *prometheus.GaugeVec
	battery       *prometheus.GaugeVec
	lastPublished *prometheus.GaugeVec
}

// NewMetrics creates the collectors on a private registry. When src is
// not nil, adapter counters are read from it at scrape time.
func NewMetrics(src StatsSource) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_total",
			Help:      "Decoded sensor frames handled by the gateway.",
		}),
		readings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "readings_total",
			Help:      "Readings of configured sensors by publish decision.",
		}, []string{"reason"}),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "publish_errors_total",
			Help:      "State messages the broker did not accept.",
		}),
		unknown: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "unknown_frames_total",
			Help:      "Frames from device ids that are not configured.",
		}),
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "sensor_temperature_celsius",
			Help:      "Last temperature read per sensor.",
		}, []string{"sensor"}),
		humidity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "sensor_humidity_percent",
			Help:      "Last relative humidity read per sensor.",
		}, []string{"sensor"}),
		battery: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "sensor_battery_percent",
			Help:      "Battery state per sensor (0 low, 100 ok).",
		}, []string{"sensor"}),
		lastPublished: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "sensor_last_published_timestamp_seconds",
			Help:      "Unix time of the last committed publish per sensor.",
		}, []string{"sensor"}),
	}

	m.registry.MustRegister(
		m.frames,
		m.readings,
		m.publishErrors,
		m.unknown,
		m.temperature,
		m.humidity,
		m.battery,
		m.lastPublished,
		collectors.NewGoCollector(),
	)

	if src != nil {
		m.registry.MustRegister(
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "adapter_frames_dropped_total",
				Help:      "Frames dropped because the callback queue was full.",
			}, func() float64 { return float64(src.Stats().FramesDropped) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "adapter_invalid_frames_total",
				Help:      "Lines that looked like frames but did not decode.",
			}, func() float64 { return float64(src.Stats().InvalidFrames) }),
		)
	}

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveFrame counts a decoded frame.
func (m *Metrics) ObserveFrame() {
	if m == nil {
		return
	}
	m.frames.Inc()
}

// ObserveUnknown counts a frame from an unconfigured device.
func (m *Metrics) ObserveUnknown() {
	if m == nil {
		return
	}
	m.unknown.Inc()
}

// ObserveDecision records a gate decision and the reading behind it.
func (m *Metrics) ObserveDecision(s sensor.Sensor, r sensor.Reading, d sensor.Decision) {
	if m == nil {
		return
	}
	m.readings.WithLabelValues(string(d.Reason)).Inc()
	m.temperature.WithLabelValues(s.Token).Set(r.Temperature)
	m.humidity.WithLabelValues(s.Token).Set(r.Humidity)
	m.battery.WithLabelValues(s.Token).Set(float64(r.BatteryPercent()))
}

// ObservePublished records a committed publish.
func (m *Metrics) ObservePublished(s sensor.Sensor, r sensor.Reading) {
	if m == nil {
		return
	}
	m.lastPublished.WithLabelValues(s.Token).Set(float64(r.ObservedAt.Unix()))
}

// ObservePublishError counts a failed state publish.
func (m *Metrics) ObservePublishError() {
	if m == nil {
		return
	}
	m.publishErrors.Inc()
}
