package notify

import (
	"errors"
	"testing"

	"github.com/remberq/simple-voice-transcribe/pkg/logger"
)

func TestDesktopSends(t *testing.T) {
	var got []string
	d := NewDesktop(true, logger.NewNop())
	d.send = func(title, message, icon string) error {
		got = append(got, title+": "+message)
		return nil
	}

	d.Notify("Inserted into input")
	if len(got) != 1 || got[0] != "Dictate: Inserted into input" {
		t.Errorf("sent = %v", got)
	}
}

func TestDesktopDisabled(t *testing.T) {
	d := NewDesktop(false, logger.NewNop())
	d.send = func(title, message, icon string) error {
		t.Error("disabled notifier sent a message")
		return nil
	}
	d.Notify("hello")
}

func TestDesktopSendFailureIsSwallowed(t *testing.T) {
	d := NewDesktop(true, logger.NewNop())
	d.send = func(title, message, icon string) error { return errors.New("no dbus") }
	d.Notify("hello")
}
