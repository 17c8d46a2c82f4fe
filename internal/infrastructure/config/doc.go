// Package config handles loading and validating gateway configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Environment Overrides:
//   - MQTT_HOSTNAME, MQTT_PORT, MQTT_USERNAME, MQTT_PASSWORD
//   - LACROSSE_ADAPTER_DEVICE, LACROSSE_LOG_LEVEL
//   - LACROSSE_DATABASE_PATH, LACROSSE_INFLUXDB_TOKEN
//
// Security Considerations:
//   - Broker credentials and the InfluxDB token should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Sensors are listed as "name: device id" pairs and keep their file order,
// which is the order discovery messages are announced in.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, s := range cfg.Sensors {
//	    fmt.Println(s.Name, s.DeviceID)
//	}
package config
