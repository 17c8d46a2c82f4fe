package systemd

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// recorder captures notify calls.
type recorder struct {
	states []string
	sent   bool
	err    error
}

func (r *recorder) notify(_ bool, state string) (bool, error) {
	r.states = append(r.states, state)
	return r.sent, r.err
}

func newTestNotifier(r *recorder) *Notifier {
	at := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	return &Notifier{notify: r.notify, now: func() time.Time { return at }}
}

func TestNotifier_States(t *testing.T) {
	tests := []struct {
		name string
		call func(n *Notifier) error
		want string
	}{
		{"Ready", (*Notifier).Ready, "READY=1"},
		{"Watchdog", (*Notifier).Watchdog, "WATCHDOG=1"},
		{"Stopping", (*Notifier).Stopping, "STOPPING=1"},
		{"Status", func(n *Notifier) error { return n.Status("Büro@Süd: 20.5 C") }, "STATUS=2026-03-01 12:30:00 - Buro@Sud: 20.5 C"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{sent: true}
			n := newTestNotifier(r)
			if err := tt.call(n); err != nil {
				t.Fatalf("error = %v", err)
			}
			if len(r.states) != 1 || r.states[0] != tt.want {
				t.Errorf("sent %q, want %q", r.states, tt.want)
			}
			if !n.Active() {
				t.Error("Active() = false after delivered message")
			}
		})
	}
}

func TestNotifier_NoSocket(t *testing.T) {
	r := &recorder{sent: false}
	n := newTestNotifier(r)

	if err := n.Ready(); err != nil {
		t.Fatalf("Ready() error = %v", err)
	}
	if n.Active() {
		t.Error("Active() = true without a service manager")
	}
}

func TestNotifier_Error(t *testing.T) {
	r := &recorder{err: errors.New("socket closed")}
	n := newTestNotifier(r)

	err := n.Watchdog()
	if err == nil || !strings.Contains(err.Error(), "WATCHDOG=1") {
		t.Errorf("Watchdog() error = %v, want wrapped sd_notify error", err)
	}
}

func TestNotifier_Nil(t *testing.T) {
	var n *Notifier
	if err := n.Ready(); err != nil {
		t.Errorf("Ready() on nil error = %v", err)
	}
	if err := n.Status("x"); err != nil {
		t.Errorf("Status() on nil error = %v", err)
	}
	if n.Active() {
		t.Error("Active() on nil = true")
	}
}

func TestWatchdogInterval_Unset(t *testing.T) {
	t.Setenv("WATCHDOG_USEC", "")
	t.Setenv("WATCHDOG_PID", "")
	if got := WatchdogInterval(); got != 0 {
		t.Errorf("WatchdogInterval() = %v, want 0", got)
	}
}
