package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the gateway.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Adapter  AdapterConfig  `yaml:"adapter"`
	Daemon   DaemonConfig   `yaml:"daemon"`
	Publish  PublishConfig  `yaml:"publish"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Sensors  Sensors        `yaml:"sensors"`
	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	API      APIConfig      `yaml:"api"`
}

// AdapterConfig contains serial receiver settings.
// Zero radio settings leave the firmware default in place.
type AdapterConfig struct {
	Device         string `yaml:"device"`
	BaudRate       int    `yaml:"baud_rate"`
	Datarate       int    `yaml:"datarate"`
	ToggleMask     int    `yaml:"toggle_mask"`
	ToggleInterval int    `yaml:"toggle_interval"`
	Frequency      int    `yaml:"frequency"`
	DisableLED     bool   `yaml:"disable_led"`

	// OpenTimeout is how long to wait for the firmware banner (seconds).
	OpenTimeout int `yaml:"open_timeout"`
}

// DaemonConfig controls the process lifecycle.
type DaemonConfig struct {
	// Enabled runs until signalled. When false the gateway makes one pass
	// and exits.
	Enabled bool `yaml:"enabled"`

	// HeartbeatInterval is the liveness period in seconds.
	// 0 means publish.min_interval.
	HeartbeatInterval int `yaml:"heartbeat_interval"`

	// OneshotWait is how long a one-shot run listens for frames (seconds).
	OneshotWait int `yaml:"oneshot_wait"`
}

// PublishConfig contains the publish rules applied to every sensor.
type PublishConfig struct {
	// Interval is the cool-down since the previous reading (seconds).
	Interval int `yaml:"interval"`

	// MinInterval forces a publish once the last one is this old (seconds).
	MinInterval int `yaml:"min_interval"`

	TemperatureDelta float64 `yaml:"temperature_delta"`
	HumidityDelta    float64 `yaml:"humidity_delta"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker          MQTTBrokerConfig `yaml:"broker"`
	Auth            MQTTAuthConfig   `yaml:"auth"`
	QoS             int              `yaml:"qos"`
	DiscoveryQoS    int              `yaml:"discovery_qos"`
	KeepAlive       int              `yaml:"keepalive"`
	BaseTopic       string           `yaml:"base_topic"`
	DiscoveryPrefix string           `yaml:"discovery_prefix"`
	GatewayID       string           `yaml:"gateway_id"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	TLS                bool   `yaml:"tls"`
	CACert             string `yaml:"ca_cert"`
	CertFile           string `yaml:"cert_file"`
	KeyFile            string `yaml:"key_file"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	ClientID           string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DatabaseConfig contains SQLite settings for the sightings store.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled   bool             `yaml:"enabled"`
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	Timeouts  APITimeoutConfig `yaml:"timeouts"`
	WebSocket WebSocketConfig  `yaml:"websocket"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	cfg.normalise()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Adapter: AdapterConfig{
			Device:      "/dev/ttyUSB0",
			BaudRate:    57600,
			OpenTimeout: 5,
		},
		Daemon: DaemonConfig{
			Enabled: true,
		},
		Publish: PublishConfig{
			Interval:         300,
			MinInterval:      3600,
			TemperatureDelta: 0.5,
			HumidityDelta:    2,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host: "localhost",
				Port: 1883,
			},
			QoS:             0,
			DiscoveryQoS:    2,
			KeepAlive:       60,
			BaseTopic:       "homeassistant",
			DiscoveryPrefix: "homeassistant",
			GatewayID:       "lacrosse-mqtt-daemon",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
		Database: DatabaseConfig{
			Path:        "./data/lacrosse.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		InfluxDB: InfluxDBConfig{
			Bucket:        "lacrosse",
			BatchSize:     100,
			FlushInterval: 10,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    9280,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			WebSocket: WebSocketConfig{
				MaxMessageSize: 8192,
				PingInterval:   30,
				PongTimeout:    10,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// The MQTT_* names are kept for compatibility with existing deployments.
func applyEnvOverrides(cfg *Config) error {
	// MQTT
	if v := os.Getenv("MQTT_HOSTNAME"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("MQTT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MQTT_PORT %q is not a number", v)
		}
		cfg.MQTT.Broker.Port = port
	}
	if v := os.Getenv("MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Adapter
	if v := os.Getenv("LACROSSE_ADAPTER_DEVICE"); v != "" {
		cfg.Adapter.Device = v
	}

	// Logging
	if v := os.Getenv("LACROSSE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Database
	if v := os.Getenv("LACROSSE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("LACROSSE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	return nil
}

// normalise lowercases topic segments.
func (c *Config) normalise() {
	c.MQTT.BaseTopic = strings.ToLower(strings.Trim(c.MQTT.BaseTopic, "/ "))
	c.MQTT.DiscoveryPrefix = strings.ToLower(strings.Trim(c.MQTT.DiscoveryPrefix, "/ "))
	c.MQTT.GatewayID = strings.ToLower(strings.TrimSpace(c.MQTT.GatewayID))
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Sensors
	if len(c.Sensors) == 0 {
		errs = append(errs, "sensors: at least one sensor is required")
	}
	for _, s := range c.Sensors {
		if s.TemperatureDelta != nil && *s.TemperatureDelta < 0 {
			errs = append(errs, fmt.Sprintf("sensors.%s.temperature_delta must not be negative", s.Name))
		}
		if s.HumidityDelta != nil && *s.HumidityDelta < 0 {
			errs = append(errs, fmt.Sprintf("sensors.%s.humidity_delta must not be negative", s.Name))
		}
	}

	// Adapter
	if c.Adapter.Device == "" {
		errs = append(errs, "adapter.device is required")
	}
	if c.Adapter.BaudRate <= 0 {
		errs = append(errs, "adapter.baud_rate must be positive")
	}
	if c.Adapter.Datarate < 0 || c.Adapter.ToggleMask < 0 || c.Adapter.ToggleInterval < 0 || c.Adapter.Frequency < 0 {
		errs = append(errs, "adapter radio settings must not be negative")
	}
	if c.Adapter.OpenTimeout < 0 {
		errs = append(errs, "adapter.open_timeout must not be negative")
	}

	// Daemon
	if c.Daemon.HeartbeatInterval < 0 {
		errs = append(errs, "daemon.heartbeat_interval must not be negative")
	}
	if c.Daemon.OneshotWait < 0 {
		errs = append(errs, "daemon.oneshot_wait must not be negative")
	}

	// Publish
	if c.Publish.Interval < 0 {
		errs = append(errs, "publish.interval must not be negative")
	}
	if c.Publish.MinInterval <= 0 {
		errs = append(errs, "publish.min_interval must be positive")
	}
	if c.Publish.TemperatureDelta < 0 {
		errs = append(errs, "publish.temperature_delta must not be negative")
	}
	if c.Publish.HumidityDelta < 0 {
		errs = append(errs, "publish.humidity_delta must not be negative")
	}

	// MQTT
	errs = append(errs, c.MQTT.validate()...)

	// Logging
	switch c.Logging.Format {
	case "console", "json", "text":
	default:
		errs = append(errs, "logging.format must be console, json or text")
	}

	// Database
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}

	// InfluxDB
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	// API
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (m *MQTTConfig) validate() []string {
	var errs []string

	if m.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if m.Broker.Port < 1 || m.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if m.QoS < 0 || m.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if m.DiscoveryQoS < 0 || m.DiscoveryQoS > 2 {
		errs = append(errs, "mqtt.discovery_qos must be 0, 1, or 2")
	}
	if m.KeepAlive < 0 {
		errs = append(errs, "mqtt.keepalive must not be negative")
	}
	if m.BaseTopic == "" {
		errs = append(errs, "mqtt.base_topic is required")
	}
	if m.DiscoveryPrefix == "" {
		errs = append(errs, "mqtt.discovery_prefix is required")
	}
	if m.GatewayID == "" || strings.ContainsAny(m.GatewayID, "/+#") {
		errs = append(errs, "mqtt.gateway_id is required and must not contain / + or #")
	}

	if m.Broker.TLS {
		for key, path := range map[string]string{
			"mqtt.broker.ca_cert":   m.Broker.CACert,
			"mqtt.broker.cert_file": m.Broker.CertFile,
			"mqtt.broker.key_file":  m.Broker.KeyFile,
		} {
			if path == "" {
				continue
			}
			if _, err := os.Stat(path); err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
			}
		}
		if (m.Broker.CertFile == "") != (m.Broker.KeyFile == "") {
			errs = append(errs, "mqtt.broker.cert_file and key_file must be set together")
		}
	}

	return errs
}

// GetPublishInterval returns publish.interval as a Duration.
func (c *Config) GetPublishInterval() time.Duration {
	return time.Duration(c.Publish.Interval) * time.Second
}

// GetMinPublishInterval returns publish.min_interval as a Duration.
func (c *Config) GetMinPublishInterval() time.Duration {
	return time.Duration(c.Publish.MinInterval) * time.Second
}

// GetHeartbeatInterval returns the daemon heartbeat period, falling back to
// publish.min_interval.
func (c *Config) GetHeartbeatInterval() time.Duration {
	if c.Daemon.HeartbeatInterval > 0 {
		return time.Duration(c.Daemon.HeartbeatInterval) * time.Second
	}
	return c.GetMinPublishInterval()
}

// GetOneshotWait returns daemon.oneshot_wait as a Duration.
func (c *Config) GetOneshotWait() time.Duration {
	return time.Duration(c.Daemon.OneshotWait) * time.Second
}

// GetOpenTimeout returns adapter.open_timeout as a Duration.
func (c *Config) GetOpenTimeout() time.Duration {
	return time.Duration(c.Adapter.OpenTimeout) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
