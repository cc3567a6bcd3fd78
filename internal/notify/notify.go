// Package notify shows desktop notifications for pipeline failures.
package notify

import (
	"log/slog"

	"github.com/gen2brain/beeep"
)

const title = "VaibVoice"

// Notifier shows desktop notifications when enabled.
type Notifier struct {
	enabled bool
	log     *slog.Logger
	show    func(title, message string) error
}

// New returns a Notifier. A disabled Notifier only logs.
func New(enabled bool, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{enabled: enabled, log: log, show: notify}
}

// Notify shows message. Failures to display are logged and otherwise ignored.
func (n *Notifier) Notify(message string) {
	if n == nil || !n.enabled {
		return
	}
	if err := n.show(title, message); err != nil {
		n.log.Debug("notification failed", slog.Any("error", err))
	}
}

func notify(title, message string) error {
	return beeep.Notify(title, message, "")
}
