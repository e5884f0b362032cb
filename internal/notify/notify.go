// Package notify sends desktop notifications for finished transcriptions.
package notify

import (
	"github.com/gen2brain/beeep"

	"github.com/remberq/simple-voice-transcribe/pkg/logger"
)

const title = "Dictate"

// Notifier posts a message to the desktop.
type Notifier interface {
	Notify(message string)
}

// Desktop sends notifications through the platform notification service.
type Desktop struct {
	enabled bool
	send    func(title, message, icon string) error
	log     *logger.Logger
}

// NewDesktop returns a notifier. When enabled is false messages are only logged.
func NewDesktop(enabled bool, log *logger.Logger) *Desktop {
	return &Desktop{enabled: enabled, send: beeep.Notify, log: log.Named("notify")}
}

func (d *Desktop) Notify(message string) {
	if !d.enabled {
		d.log.Debug("notification suppressed", logger.String("message", message))
		return
	}
	if err := d.send(title, message, ""); err != nil {
		d.log.Warn("notification failed", logger.Error(err))
	}
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(string) {}
