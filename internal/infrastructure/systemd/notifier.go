package systemd

import (
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/mozillazg/go-unidecode"
)

// statusTimeFormat prefixes every STATUS line.
const statusTimeFormat = "2006-01-02 15:04:05"

// notifyFunc matches daemon.SdNotify.
type notifyFunc func(unsetEnvironment bool, state string) (bool, error)

// Notifier wraps sd_notify.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Notifier struct {
	notify notifyFunc
	now    func() time.Time

	mu     sync.Mutex
	active bool
}

// NewNotifier returns a notifier bound to $NOTIFY_SOCKET.
func NewNotifier() *Notifier {
	return &Notifier{notify: daemon.SdNotify, now: time.Now}
}

// Ready sends READY=1.
func (n *Notifier) Ready() error {
	return n.send(daemon.SdNotifyReady)
}

// Status sends STATUS=<timestamp> - <msg>.
//
// The message is folded to ASCII; journal and systemctl status show
// transliterated sensor names rather than mangled bytes.
func (n *Notifier) Status(msg string) error {
	if n == nil {
		return nil
	}
	line := fmt.Sprintf("STATUS=%s - %s", n.now().Format(statusTimeFormat), unidecode.Unidecode(msg))
	return n.send(line)
}

// Watchdog sends WATCHDOG=1.
func (n *Notifier) Watchdog() error {
	return n.send(daemon.SdNotifyWatchdog)
}

// Stopping sends STOPPING=1.
func (n *Notifier) Stopping() error {
	return n.send(daemon.SdNotifyStopping)
}

// Active reports whether the last message reached a service manager.
func (n *Notifier) Active() bool {
	if n == nil {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.active
}

// WatchdogInterval returns how often Watchdog should be called, or zero
// when the unit has no watchdog configured.
func WatchdogInterval() time.Duration {
	d, err := daemon.SdWatchdogEnabled(false)
	if err != nil || d <= 0 {
		return 0
	}
	// systemd recommends pinging at half the timeout.
	return d / 2
}

func (n *Notifier) send(state string) error {
	if n == nil {
		return nil
	}
	sent, err := n.notify(false, state)
	if err != nil {
		return fmt.Errorf("sd_notify %q: %w", state, err)
	}
	n.mu.Lock()
	n.active = sent
	n.mu.Unlock()
	return nil
}
