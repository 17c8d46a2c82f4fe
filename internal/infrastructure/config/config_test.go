package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig writes content to a config.yaml in a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
adapter:
  device: "/dev/ttyACM0"
  datarate: 17241
  disable_led: true
publish:
  interval: 120
  min_interval: 1800
mqtt:
  broker:
    host: "broker.local"
    port: 8883
  base_topic: "Home/LaCrosse"
  gateway_id: "Attic-Gateway"
sensors:
  Wohnzimmer: 12
  "Büro@Süd": "7"
  Keller:
    id: 3
    temperature_delta: 0.2
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Adapter.Device != "/dev/ttyACM0" {
		t.Errorf("Adapter.Device = %q, want %q", cfg.Adapter.Device, "/dev/ttyACM0")
	}
	if cfg.Adapter.BaudRate != 57600 {
		t.Errorf("Adapter.BaudRate = %d, want default 57600", cfg.Adapter.BaudRate)
	}
	if cfg.Adapter.Datarate != 17241 || !cfg.Adapter.DisableLED {
		t.Errorf("Adapter radio settings = %+v", cfg.Adapter)
	}
	if cfg.GetPublishInterval() != 2*time.Minute {
		t.Errorf("GetPublishInterval() = %v, want 2m", cfg.GetPublishInterval())
	}
	if cfg.MQTT.Broker.Host != "broker.local" || cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("MQTT.Broker = %+v", cfg.MQTT.Broker)
	}
	if cfg.MQTT.BaseTopic != "home/lacrosse" {
		t.Errorf("MQTT.BaseTopic = %q, want lowercased", cfg.MQTT.BaseTopic)
	}
	if cfg.MQTT.GatewayID != "attic-gateway" {
		t.Errorf("MQTT.GatewayID = %q, want lowercased", cfg.MQTT.GatewayID)
	}
	if cfg.MQTT.DiscoveryPrefix != "homeassistant" {
		t.Errorf("MQTT.DiscoveryPrefix = %q, want default", cfg.MQTT.DiscoveryPrefix)
	}
}

func TestLoad_SensorsKeepFileOrder(t *testing.T) {
	content := `
sensors:
  Zimmer: 40
  Attic: 3
  "Büro@Süd": "07"
  Keller:
    id: 17
    temperature_delta: 0.2
    humidity_delta: 5
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []struct{ name, id string }{
		{"Zimmer", "40"},
		{"Attic", "3"},
		{"Büro@Süd", "07"},
		{"Keller", "17"},
	}
	if len(cfg.Sensors) != len(want) {
		t.Fatalf("len(Sensors) = %d, want %d", len(cfg.Sensors), len(want))
	}
	for i, w := range want {
		if cfg.Sensors[i].Name != w.name || cfg.Sensors[i].DeviceID != w.id {
			t.Errorf("Sensors[%d] = %+v, want %s=%s", i, cfg.Sensors[i], w.name, w.id)
		}
	}

	keller := cfg.Sensors[3]
	if keller.TemperatureDelta == nil || *keller.TemperatureDelta != 0.2 {
		t.Errorf("Keller.TemperatureDelta = %v, want 0.2", keller.TemperatureDelta)
	}
	if keller.HumidityDelta == nil || *keller.HumidityDelta != 5 {
		t.Errorf("Keller.HumidityDelta = %v, want 5", keller.HumidityDelta)
	}
	if cfg.Sensors[0].TemperatureDelta != nil {
		t.Error("scalar entry should have no threshold override")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_SensorsNotAMapping(t *testing.T) {
	_, err := Load(writeConfig(t, "sensors:\n  - 12\n  - 13\n"))
	if err == nil {
		t.Error("Load() expected error for sensor list, got nil")
	}
}

func TestLoad_NoSensors(t *testing.T) {
	_, err := Load(writeConfig(t, "sensors:\n"))
	if err == nil || !strings.Contains(err.Error(), "at least one sensor") {
		t.Errorf("Load() error = %v, want missing sensors error", err)
	}
}

func TestLoad_InvalidMQTTPortEnv(t *testing.T) {
	t.Setenv("MQTT_PORT", "eighteen83")
	_, err := Load(writeConfig(t, "sensors:\n  Kitchen: 1\n"))
	if err == nil {
		t.Error("Load() expected error for non-numeric MQTT_PORT, got nil")
	}
}

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Sensors = Sensors{{Name: "Kitchen", DeviceID: "12"}}
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	negative := -0.1

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "no sensors",
			mutate:  func(c *Config) { c.Sensors = nil },
			wantErr: "sensors",
		},
		{
			name:    "negative sensor delta",
			mutate:  func(c *Config) { c.Sensors[0].TemperatureDelta = &negative },
			wantErr: "sensors.Kitchen.temperature_delta",
		},
		{
			name:    "missing device",
			mutate:  func(c *Config) { c.Adapter.Device = "" },
			wantErr: "adapter.device",
		},
		{
			name:    "negative radio setting",
			mutate:  func(c *Config) { c.Adapter.Frequency = -1 },
			wantErr: "radio settings",
		},
		{
			name:    "zero min interval",
			mutate:  func(c *Config) { c.Publish.MinInterval = 0 },
			wantErr: "publish.min_interval",
		},
		{
			name:    "negative delta",
			mutate:  func(c *Config) { c.Publish.HumidityDelta = -1 },
			wantErr: "publish.humidity_delta",
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "invalid discovery QoS",
			mutate:  func(c *Config) { c.MQTT.DiscoveryQoS = -1 },
			wantErr: "mqtt.discovery_qos",
		},
		{
			name:    "broker port out of range",
			mutate:  func(c *Config) { c.MQTT.Broker.Port = 70000 },
			wantErr: "mqtt.broker.port",
		},
		{
			name:    "gateway id with wildcard",
			mutate:  func(c *Config) { c.MQTT.GatewayID = "gw/#" },
			wantErr: "mqtt.gateway_id",
		},
		{
			name: "TLS cert without key",
			mutate: func(c *Config) {
				c.MQTT.Broker.TLS = true
				c.MQTT.Broker.CertFile = os.Args[0]
			},
			wantErr: "set together",
		},
		{
			name: "TLS missing CA file",
			mutate: func(c *Config) {
				c.MQTT.Broker.TLS = true
				c.MQTT.Broker.CACert = "/nonexistent/ca.pem"
			},
			wantErr: "mqtt.broker.ca_cert",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
		{
			name: "database enabled without path",
			mutate: func(c *Config) {
				c.Database.Enabled = true
				c.Database.Path = ""
			},
			wantErr: "database.path",
		},
		{
			name:    "database disabled without path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "",
		},
		{
			name:    "influxdb enabled without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: "influxdb.url",
		},
		{
			name:    "api port out of range",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: "api.port",
		},
		{
			name: "api disabled ignores port",
			mutate: func(c *Config) {
				c.API.Enabled = false
				c.API.Port = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateCollectsAll(t *testing.T) {
	cfg := validConfig()
	cfg.Sensors = nil
	cfg.MQTT.QoS = 5
	cfg.Publish.MinInterval = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() error = nil")
	}
	if got := strings.Count(err.Error(), "; "); got != 2 {
		t.Errorf("Validate() joined %d separators, want 2: %v", got, err)
	}
}

func TestConfig_GetDurations(t *testing.T) {
	cfg := &Config{
		Publish: PublishConfig{Interval: 300, MinInterval: 3600},
		Daemon:  DaemonConfig{OneshotWait: 15},
		Adapter: AdapterConfig{OpenTimeout: 5},
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	tests := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"publish interval", cfg.GetPublishInterval(), 300 * time.Second},
		{"min publish interval", cfg.GetMinPublishInterval(), time.Hour},
		{"heartbeat falls back to min interval", cfg.GetHeartbeatInterval(), time.Hour},
		{"oneshot wait", cfg.GetOneshotWait(), 15 * time.Second},
		{"open timeout", cfg.GetOpenTimeout(), 5 * time.Second},
		{"read timeout", cfg.GetReadTimeout(), 30 * time.Second},
		{"write timeout", cfg.GetWriteTimeout(), 45 * time.Second},
		{"idle timeout", cfg.GetIdleTimeout(), 60 * time.Second},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	cfg.Daemon.HeartbeatInterval = 60
	if got := cfg.GetHeartbeatInterval(); got != time.Minute {
		t.Errorf("GetHeartbeatInterval() = %v, want 1m", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("MQTT_HOSTNAME", "mqtt.example.com")
	t.Setenv("MQTT_PORT", "8883")
	t.Setenv("MQTT_USERNAME", "testuser")
	t.Setenv("MQTT_PASSWORD", "testpass")
	t.Setenv("LACROSSE_ADAPTER_DEVICE", "/dev/ttyUSB1")
	t.Setenv("LACROSSE_LOG_LEVEL", "debug")
	t.Setenv("LACROSSE_DATABASE_PATH", "/custom/path.db")
	t.Setenv("LACROSSE_INFLUXDB_TOKEN", "secret-token")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	checks := []struct {
		field string
		got   any
		want  any
	}{
		{"MQTT.Broker.Host", cfg.MQTT.Broker.Host, "mqtt.example.com"},
		{"MQTT.Broker.Port", cfg.MQTT.Broker.Port, 8883},
		{"MQTT.Auth.Username", cfg.MQTT.Auth.Username, "testuser"},
		{"MQTT.Auth.Password", cfg.MQTT.Auth.Password, "testpass"},
		{"Adapter.Device", cfg.Adapter.Device, "/dev/ttyUSB1"},
		{"Logging.Level", cfg.Logging.Level, "debug"},
		{"Database.Path", cfg.Database.Path, "/custom/path.db"},
		{"InfluxDB.Token", cfg.InfluxDB.Token, "secret-token"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.field, c.got, c.want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Adapter.Device != "/dev/ttyUSB0" || cfg.Adapter.BaudRate != 57600 {
		t.Errorf("Adapter defaults = %+v", cfg.Adapter)
	}
	if !cfg.Daemon.Enabled {
		t.Error("daemon mode should be enabled by default")
	}
	if cfg.Publish.Interval != 300 || cfg.Publish.MinInterval != 3600 {
		t.Errorf("Publish defaults = %+v", cfg.Publish)
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.MQTT.QoS != 0 || cfg.MQTT.DiscoveryQoS != 2 {
		t.Errorf("QoS defaults = %d/%d, want 0/2", cfg.MQTT.QoS, cfg.MQTT.DiscoveryQoS)
	}
	if cfg.MQTT.GatewayID != "lacrosse-mqtt-daemon" {
		t.Errorf("MQTT.GatewayID = %q", cfg.MQTT.GatewayID)
	}
	if cfg.Database.Enabled || cfg.InfluxDB.Enabled {
		t.Error("storage should be disabled by default")
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %q, want console", cfg.Logging.Format)
	}
}
