// LaCrosse MQTT Gateway
//
// Reads LaCrosse IT+ temperature/humidity sensors through a JeeLink-style
// USB receiver and publishes their readings to an MQTT broker, with Home
// Assistant discovery. Readings are rate-limited per sensor: a reading is
// published on first sight, when it moved past a threshold after the
// cool-down, or when the last publish is older than the ceiling.
//
// The process is meant to run under a service manager: any broker or
// adapter failure after startup ends it with exit code 1, and systemd
// restarts it with a clean session.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/nerrad567/lacrosse-mqtt-gateway/migrations"

	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/api"
	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/gateway"
	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/infrastructure/config"
	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/infrastructure/database"
	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/infrastructure/influxdb"
	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/infrastructure/logging"
	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/infrastructure/mqtt"
	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/infrastructure/systemd"
	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/lacrosse"
	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/sensor"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	configEnvVar      = "LACROSSE_CONFIG"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - args: Command line arguments without the program name
//
// Returns:
//   - error: nil after a one-shot pass or a signal, otherwise the reason
//     the gateway stopped
func run(ctx context.Context, args []string) error {
	log := logging.Default()

	configPath, err := getConfigPath(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("starting LaCrosse MQTT gateway",
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", configPath,
		"daemon", cfg.Daemon.Enabled,
	)

	// Registry first: a bad sensor table should fail before any I/O.
	registry, err := buildRegistry(cfg)
	if err != nil {
		return fmt.Errorf("loading sensors: %w", err)
	}
	log.Info("sensors configured", "count", registry.Len())

	// Sightings store (optional)
	var db *database.DB
	var recorder *gateway.SightingRecorder
	if cfg.Database.Enabled {
		db, recorder, err = openSightings(ctx, cfg.Database, log)
		if err != nil {
			return err
		}
		defer func() {
			recorder.Stop()
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
	}

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", mqttClient.ClientID(),
	)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	// Open the radio
	adapter, err := openAdapter(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing adapter")
		if closeErr := adapter.Close(); closeErr != nil {
			log.Error("error closing adapter", "error", closeErr)
		}
	}()

	metrics := gateway.NewMetrics(adapter)

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	var hub *api.Hub
	if cfg.API.Enabled {
		hub = api.NewHub(cfg.API.WebSocket, log)
		go hub.Run(hubCtx)
	}

	// Optional collaborators are only set when present; a typed nil
	// pointer in an interface would not read as disabled.
	opts := gateway.BridgeOptions{
		Registry:     registry,
		Publisher:    mqttClient,
		Source:       adapter,
		Topics:       mqttClient.Topics(),
		StateQoS:     byte(cfg.MQTT.QoS),
		DiscoveryQoS: byte(cfg.MQTT.DiscoveryQoS),
		Metrics:      metrics,
		Logger:       log,
	}
	if recorder != nil {
		opts.Recorder = recorder
	}
	if influxClient != nil {
		opts.Sink = influxClient
	}
	if hub != nil {
		opts.Broadcaster = hub
	}

	bridge, err := gateway.NewBridge(opts)
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	mqttClient.SetOnDisconnect(func(err error) {
		bridge.Fail(fmt.Errorf("%w: %w", gateway.ErrConnectionLost, err))
	})

	// HTTP API (optional)
	if cfg.API.Enabled {
		srv, srvErr := startAPI(ctx, cfg.API, log, bridge, metrics, hub, recorder, db)
		if srvErr != nil {
			return srvErr
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	if err := bridge.Start(); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer bridge.Stop()

	if err := healthCheck(ctx, db, mqttClient, influxClient, adapter); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	notifier := systemd.NewNotifier()
	health := gateway.NewHealthReporter(bridge, mqttClient.Topics(), version)

	scheduler, err := gateway.NewScheduler(gateway.SchedulerConfig{
		Daemon:            cfg.Daemon.Enabled,
		HeartbeatInterval: cfg.GetHeartbeatInterval(),
		OneshotWait:       cfg.GetOneshotWait(),
		WatchdogInterval:  systemd.WatchdogInterval(),
	}, bridge, health)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	scheduler.SetNotifier(notifier)
	scheduler.SetLogger(log)

	if err := notifier.Ready(); err != nil {
		log.Warn("service manager notification failed", "error", err)
	}
	defer notifier.Stopping() //nolint:errcheck // Best effort on shutdown

	log.Info("initialisation complete", "heartbeat", cfg.GetHeartbeatInterval())

	runErr := scheduler.Run(ctx)
	if runErr == nil && cfg.Daemon.Enabled {
		health.PublishStopping()
	}

	// Deferred Close() calls run in reverse order: bridge, API, hub,
	// adapter, InfluxDB, MQTT (offline status), database.
	if runErr != nil {
		return fmt.Errorf("gateway stopped: %w", runErr)
	}
	log.Info("LaCrosse MQTT gateway stopped")
	return nil
}

// getConfigPath resolves the configuration file.
//
// Precedence: -config, then -config_dir (<dir>/config.yaml), then the
// LACROSSE_CONFIG environment variable, then configs/config.yaml.
func getConfigPath(args []string) (string, error) {
	fs := flag.NewFlagSet("lacrosse-gateway", flag.ContinueOnError)
	path := fs.String("config", "", "path to config.yaml")
	dir := fs.String("config_dir", "", "directory containing config.yaml")
	if err := fs.Parse(args); err != nil {
		return "", fmt.Errorf("parsing flags: %w", err)
	}

	switch {
	case *path != "":
		return *path, nil
	case *dir != "":
		return filepath.Join(*dir, "config.yaml"), nil
	}
	if env := os.Getenv(configEnvVar); env != "" {
		return env, nil
	}
	return defaultConfigPath, nil
}

// buildRegistry registers every configured sensor in file order, applying
// per-sensor threshold overrides.
func buildRegistry(cfg *config.Config) (*sensor.Registry, error) {
	base := sensor.Thresholds{
		PublishInterval:    cfg.GetPublishInterval(),
		MinPublishInterval: cfg.GetMinPublishInterval(),
		TemperatureDelta:   cfg.Publish.TemperatureDelta,
		HumidityDelta:      cfg.Publish.HumidityDelta,
	}

	registry := sensor.NewRegistry(base)
	for _, entry := range cfg.Sensors {
		t := base
		if entry.TemperatureDelta != nil {
			t.TemperatureDelta = *entry.TemperatureDelta
		}
		if entry.HumidityDelta != nil {
			t.HumidityDelta = *entry.HumidityDelta
		}
		if _, err := registry.RegisterWithThresholds(entry.DeviceID, entry.Name, t); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// openSightings opens the database, applies migrations and starts the recorder.
func openSightings(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) (*database.DB, *gateway.SightingRecorder, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	recorder := gateway.NewSightingRecorder(db.DB)
	recorder.SetLogger(log)
	if err := recorder.Start(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("starting sighting recorder: %w", err)
	}

	log.Info("sightings database ready", "path", db.Path())
	return db, recorder, nil
}

// openAdapter opens the serial receiver and applies the radio settings.
//
// A missing firmware banner is only a warning: some receivers do not
// reset when the port opens.
func openAdapter(ctx context.Context, root *config.Config, log *logging.Logger) (*lacrosse.Adapter, error) {
	cfg := root.Adapter
	adapter, err := lacrosse.Open(lacrosse.Config{
		Device:      cfg.Device,
		BaudRate:    cfg.BaudRate,
		OpenTimeout: root.GetOpenTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("opening adapter: %w", err)
	}
	adapter.SetLogger(log)

	banner, err := adapter.WaitForBanner(ctx)
	switch {
	case errors.Is(err, lacrosse.ErrTimeout):
		log.Warn("no firmware banner from adapter", "device", cfg.Device, "error", err)
	case err != nil:
		_ = adapter.Close()
		return nil, fmt.Errorf("waiting for adapter: %w", err)
	default:
		log.Info("adapter ready", "device", cfg.Device, "firmware", banner)
	}

	if err := adapter.Configure(lacrosse.RadioSettings{
		Datarate:       cfg.Datarate,
		ToggleInterval: cfg.ToggleInterval,
		ToggleMask:     cfg.ToggleMask,
		Frequency:      cfg.Frequency,
		DisableLED:     cfg.DisableLED,
	}); err != nil {
		_ = adapter.Close()
		return nil, fmt.Errorf("configuring adapter: %w", err)
	}

	return adapter, nil
}

// startAPI creates and starts the HTTP server.
func startAPI(
	ctx context.Context,
	cfg config.APIConfig,
	log *logging.Logger,
	bridge *gateway.Bridge,
	metrics *gateway.Metrics,
	hub *api.Hub,
	recorder *gateway.SightingRecorder,
	db *database.DB,
) (*api.Server, error) {
	deps := api.Deps{
		Config:  cfg,
		Logger:  log,
		Gateway: bridge,
		Metrics: metrics,
		Hub:     hub,
		Version: version,
	}
	if recorder != nil {
		deps.Sightings = recorder
	}
	if db != nil {
		deps.DB = db
	}

	srv, err := api.New(deps)
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting API server: %w", err)
	}
	return srv, nil
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database to check (nil if disabled)
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (nil if disabled)
//   - adapter: Radio adapter to check
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, adapter *lacrosse.Adapter) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	if err := adapter.HealthCheck(ctx); err != nil {
		return fmt.Errorf("adapter: %w", err)
	}

	return nil
}
