// Package systemd reports service state to the systemd service manager.
package systemd

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/smazurov/lockkeys/internal/logging"
)

// NotifyFunc sends a notification; daemon.SdNotify is the default.
type NotifyFunc func(unsetEnvironment bool, state string) (bool, error)

// Notifier sends readiness, status and watchdog notifications. Every method is a
// no-op outside a systemd unit of Type=notify.
type Notifier struct {
	notify NotifyFunc
	logger logging.Logger
}

// NewNotifier creates a Notifier using daemon.SdNotify.
func NewNotifier(logger logging.Logger) *Notifier {
	return &Notifier{notify: daemon.SdNotify, logger: logger}
}

func (n *Notifier) send(state string) bool {
	sent, err := n.notify(false, state)
	if err != nil {
		n.logger.Warn("systemd notification failed", "state", state, "error", err)
		return false
	}
	return sent
}

// Ready reports that startup finished.
func (n *Notifier) Ready() bool {
	sent := n.send(daemon.SdNotifyReady)
	if sent {
		n.logger.Debug("Notified systemd of readiness")
	}
	return sent
}

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(status string) bool {
	return n.send("STATUS=" + status)
}

// Stopping reports that shutdown began.
func (n *Notifier) Stopping() bool {
	return n.send(daemon.SdNotifyStopping)
}

// Watchdog pings the watchdog at half the configured interval until ctx is done.
// It returns at once when the unit has no watchdog.
func (n *Notifier) Watchdog(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		n.logger.Warn("Failed to read systemd watchdog settings", "error", err)
		return
	}
	if interval <= 0 {
		return
	}
	n.watchdog(ctx, interval/2)
}

func (n *Notifier) watchdog(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.send(daemon.SdNotifyWatchdog)
		}
	}
}
