// Package systemd sends sd_notify messages to the service manager.
//
// When the gateway runs under a Type=notify unit it reports READY once
// discovery has been announced and the radio is scanning, a STATUS line
// on every heartbeat, WATCHDOG=1 when WatchdogSec is configured, and
// STOPPING on shutdown. Outside systemd (no NOTIFY_SOCKET) every call is
// a no-op.
package systemd
