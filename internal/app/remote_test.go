package app

import (
	"context"
	"testing"
	"time"

	"github.com/remberq/simple-voice-transcribe/internal/daemon"

	tea "github.com/charmbracelet/bubbletea"
)

func TestRemoteNotAttached(t *testing.T) {
	r := NewRemote(daemon.NewHub())
	resp := r.Handle(context.Background(), daemon.Command{Cmd: daemon.CmdStatus})
	if resp.OK || resp.Error != errNotAttached.Error() {
		t.Errorf("resp = %+v", resp)
	}
}

func TestRemoteRoutesThroughModel(t *testing.T) {
	h := newHarness(t)
	r := NewRemote(daemon.NewHub())

	// Stands in for the program loop: one message at a time.
	msgs := make(chan tea.Msg)
	r.Attach(func(msg tea.Msg) { msgs <- msg })
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.send(<-msgs)
	}()

	resp := r.Handle(context.Background(), daemon.Command{Cmd: daemon.CmdToggle})
	<-done
	if !resp.OK || resp.State != "recording" || resp.Visible == nil || !*resp.Visible {
		t.Errorf("resp = %+v", resp)
	}
}

func TestRemoteHonorsContext(t *testing.T) {
	r := NewRemote(daemon.NewHub())
	r.Attach(func(tea.Msg) {})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	resp := r.Handle(ctx, daemon.Command{Cmd: daemon.CmdStatus})
	if resp.OK || resp.Error != context.DeadlineExceeded.Error() {
		t.Errorf("resp = %+v", resp)
	}
}

func TestRemotePublishesToSubscribers(t *testing.T) {
	r := NewRemote(daemon.NewHub())
	events, unsubscribe := r.Subscribe()
	defer unsubscribe()

	r.Publish(daemon.Event{Event: daemon.EventToast, Toast: "hi"})
	select {
	case ev := <-events:
		if ev.Toast != "hi" {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event")
	}
}
