package gateway

import (
	"context"
	"fmt"
	"time"
)

// SchedulerConfig controls the main loop.
type SchedulerConfig struct {
	// Daemon runs until the context is cancelled. When false, Run makes a
	// single pass and returns.
	Daemon bool

	// HeartbeatInterval is the period of health messages in daemon mode.
	HeartbeatInterval time.Duration

	// OneshotWait is how long a single pass listens for frames before its
	// heartbeat.
	OneshotWait time.Duration

	// WatchdogInterval, when positive, sends WATCHDOG=1 on its own ticker
	// in addition to every heartbeat.
	WatchdogInterval time.Duration
}

// Notifier reports liveness to the service manager.
// *systemd.Notifier satisfies it.
type Notifier interface {
	Status(msg string) error
	Watchdog() error
}

// Scheduler is the gateway's main loop.
//
// Sensor work is reactive and happens on the adapter's callback worker.
// The scheduler only emits heartbeats (health message, service status,
// watchdog) and waits for shutdown or a fatal error from the bridge.
type Scheduler struct {
	cfg      SchedulerConfig
	bridge   *Bridge
	health   *HealthReporter
	notifier Notifier
	logger   Logger
}

// NewScheduler creates the main loop for a started bridge.
func NewScheduler(cfg SchedulerConfig, b *Bridge, h *HealthReporter) (*Scheduler, error) {
	if b == nil || h == nil {
		return nil, fmt.Errorf("%w: bridge and health reporter are required", ErrInvalidOptions)
	}
	if cfg.Daemon && cfg.HeartbeatInterval <= 0 {
		return nil, fmt.Errorf("%w: heartbeat interval must be positive", ErrInvalidOptions)
	}
	return &Scheduler{cfg: cfg, bridge: b, health: h}, nil
}

// SetNotifier sets the service manager notifier. Optional.
func (s *Scheduler) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetLogger sets the logger. Optional.
func (s *Scheduler) SetLogger(l Logger) {
	s.logger = l
}

// Run blocks until the loop ends.
//
// Returns:
//   - nil after a one-shot pass or when ctx is cancelled
//   - the bridge's fatal error, or a heartbeat publish failure
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.cfg.Daemon {
		return s.runOnce(ctx)
	}
	return s.runDaemon(ctx)
}

func (s *Scheduler) runOnce(ctx context.Context) error {
	if s.cfg.OneshotWait > 0 {
		timer := time.NewTimer(s.cfg.OneshotWait)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return nil
		case err := <-s.bridge.Fatal():
			return err
		case <-timer.C:
		}
	}

	select {
	case err := <-s.bridge.Fatal():
		return err
	default:
	}

	if err := s.heartbeat(); err != nil {
		return err
	}
	s.logInfo("one-shot pass complete")
	return nil
}

func (s *Scheduler) runDaemon(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	var watchdog <-chan time.Time
	if s.cfg.WatchdogInterval > 0 {
		wt := time.NewTicker(s.cfg.WatchdogInterval)
		defer wt.Stop()
		watchdog = wt.C
	}

	if err := s.heartbeat(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			s.logInfo("scheduler stopping", "reason", ctx.Err())
			return nil
		case err := <-s.bridge.Fatal():
			return err
		case <-watchdog:
			s.watchdog()
		case <-ticker.C:
			if err := s.heartbeat(); err != nil {
				return err
			}
		}
	}
}

// heartbeat publishes health and reports status to the service manager.
func (s *Scheduler) heartbeat() error {
	msg, err := s.health.Publish()
	if err != nil {
		return err
	}

	if s.notifier != nil {
		status := fmt.Sprintf("%s: %d sensors, %d published, %d suppressed, %d unknown",
			msg.Status, msg.Sensors, msg.Readings.Published, msg.Readings.Suppressed, msg.Readings.Unknown)
		if err := s.notifier.Status(status); err != nil {
			s.logWarn("service status notification failed", "error", err)
		}
	}
	s.watchdog()

	s.logDebug("heartbeat", "status", msg.Status, "uptime_seconds", msg.UptimeSeconds)
	return nil
}

func (s *Scheduler) watchdog() {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Watchdog(); err != nil {
		s.logWarn("watchdog notification failed", "error", err)
	}
}

func (s *Scheduler) logInfo(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Info(msg, keysAndValues...)
	}
}

func (s *Scheduler) logWarn(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, keysAndValues...)
	}
}

func (s *Scheduler) logDebug(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, keysAndValues...)
	}
}
