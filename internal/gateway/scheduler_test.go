package gateway

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestScheduler(t *testing.T, cfg SchedulerConfig) (*bridgeFixture, *Scheduler, *mockNotifier) {
	t.Helper()
	f := newBridgeFixture(t)
	f.start(t)

	s, err := NewScheduler(cfg, f.bridge, NewHealthReporter(f.bridge, testTopics, "test"))
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	n := &mockNotifier{}
	s.SetNotifier(n)
	return f, s, n
}

func runAsync(ctx context.Context, s *Scheduler) <-chan error {
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return done
}

func waitRun(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return")
		return nil
	}
}

// =============================================================================
// Construction
// =============================================================================

func TestNewScheduler_Validation(t *testing.T) {
	f := newBridgeFixture(t)
	h := NewHealthReporter(f.bridge, testTopics, "test")

	tests := []struct {
		name   string
		cfg    SchedulerConfig
		bridge *Bridge
		health *HealthReporter
	}{
		{"no bridge", SchedulerConfig{}, nil, h},
		{"no health", SchedulerConfig{}, f.bridge, nil},
		{"daemon without heartbeat", SchedulerConfig{Daemon: true}, f.bridge, h},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScheduler(tt.cfg, tt.bridge, tt.health)
			if !errors.Is(err, ErrInvalidOptions) {
				t.Errorf("NewScheduler() error = %v, want ErrInvalidOptions", err)
			}
		})
	}

	if _, err := NewScheduler(SchedulerConfig{}, f.bridge, h); err != nil {
		t.Errorf("one-shot without heartbeat interval: %v", err)
	}
}

// =============================================================================
// One-shot
// =============================================================================

func TestScheduler_OneShot(t *testing.T) {
	f, s, n := newTestScheduler(t, SchedulerConfig{OneshotWait: 20 * time.Millisecond})

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := len(f.publisher.PublishedTo(testTopics.GatewayHealth())); got != 1 {
		t.Errorf("health messages = %d, want 1", got)
	}
	if status, watchdog := n.counts(); status != 1 || watchdog != 1 {
		t.Errorf("notifier status/watchdog = %d/%d, want 1/1", status, watchdog)
	}
}

func TestScheduler_OneShotFatal(t *testing.T) {
	f, s, _ := newTestScheduler(t, SchedulerConfig{OneshotWait: time.Hour})
	f.bridge.Fail(errBrokerGone)

	err := waitRun(t, runAsync(context.Background(), s))
	if !errors.Is(err, errBrokerGone) {
		t.Errorf("Run() error = %v, want errBrokerGone", err)
	}
	if got := len(f.publisher.PublishedTo(testTopics.GatewayHealth())); got != 0 {
		t.Errorf("health messages = %d, want 0 after fatal", got)
	}
}

func TestScheduler_OneShotCancelled(t *testing.T) {
	_, s, _ := newTestScheduler(t, SchedulerConfig{OneshotWait: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := waitRun(t, runAsync(ctx, s)); err != nil {
		t.Errorf("Run() error = %v, want nil", err)
	}
}

// =============================================================================
// Daemon
// =============================================================================

func TestScheduler_DaemonHeartbeats(t *testing.T) {
	f, s, n := newTestScheduler(t, SchedulerConfig{
		Daemon:            true,
		HeartbeatInterval: 10 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, s)

	deadline := time.Now().Add(2 * time.Second)
	for len(f.publisher.PublishedTo(testTopics.GatewayHealth())) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := waitRun(t, done); err != nil {
		t.Errorf("Run() error = %v, want nil on cancel", err)
	}
	if got := len(f.publisher.PublishedTo(testTopics.GatewayHealth())); got < 3 {
		t.Errorf("health messages = %d, want >= 3", got)
	}
	if status, _ := n.counts(); status < 3 {
		t.Errorf("status notifications = %d, want >= 3", status)
	}
}

func TestScheduler_DaemonFatal(t *testing.T) {
	f, s, _ := newTestScheduler(t, SchedulerConfig{
		Daemon:            true,
		HeartbeatInterval: time.Hour,
	})
	done := runAsync(context.Background(), s)

	f.source.SimulateError(errors.New("serial port gone"))

	err := waitRun(t, done)
	if !errors.Is(err, ErrAdapterFailed) {
		t.Errorf("Run() error = %v, want ErrAdapterFailed", err)
	}
}

func TestScheduler_HeartbeatPublishFailure(t *testing.T) {
	f, s, _ := newTestScheduler(t, SchedulerConfig{
		Daemon:            true,
		HeartbeatInterval: time.Hour,
	})
	f.publisher.SetFailAll(true)

	err := waitRun(t, runAsync(context.Background(), s))
	if !errors.Is(err, ErrPublishFatal) {
		t.Errorf("Run() error = %v, want ErrPublishFatal", err)
	}
}

func TestScheduler_Watchdog(t *testing.T) {
	_, s, n := newTestScheduler(t, SchedulerConfig{
		Daemon:            true,
		HeartbeatInterval: time.Hour,
		WatchdogInterval:  5 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, s)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, watchdog := n.counts(); watchdog >= 3 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	waitRun(t, done)

	status, watchdog := n.counts()
	if status != 1 {
		t.Errorf("status notifications = %d, want 1 (initial heartbeat)", status)
	}
	if watchdog < 3 {
		t.Errorf("watchdog notifications = %d, want >= 3", watchdog)
	}
}
