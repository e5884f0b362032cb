package app

import (
	"context"
	"errors"
	"time"

	"github.com/remberq/simple-voice-transcribe/internal/daemon"

	tea "github.com/charmbracelet/bubbletea"
)

const replyTimeout = 5 * time.Second

var errNotAttached = errors.New("controller is not running")

// Remote answers trigger socket commands by routing them through the
// bubbletea event loop, and streams the controller's events.
type Remote struct {
	hub  *daemon.Hub
	send func(tea.Msg)
}

// NewRemote returns a remote publishing through hub. Attach must be called
// before commands are handled.
func NewRemote(hub *daemon.Hub) *Remote {
	return &Remote{hub: hub}
}

// Attach sets the function that injects messages, normally
// (*tea.Program).Send.
func (r *Remote) Attach(send func(tea.Msg)) {
	r.send = send
}

// Publish forwards a controller event to subscribers.
func (r *Remote) Publish(ev daemon.Event) {
	r.hub.Publish(ev)
}

func (r *Remote) Handle(ctx context.Context, cmd daemon.Command) daemon.Response {
	if r.send == nil {
		return daemon.Fail(errNotAttached)
	}
	reply := make(chan daemon.Response, 1)
	// Send blocks until the program runs; don't hold the connection on it.
	go r.send(TriggerMsg{Command: cmd, Reply: reply})

	timer := time.NewTimer(replyTimeout)
	defer timer.Stop()
	select {
	case resp := <-reply:
		return resp
	case <-ctx.Done():
		return daemon.Fail(ctx.Err())
	case <-timer.C:
		return daemon.Fail(errors.New("timed out waiting for the controller"))
	}
}

func (r *Remote) Subscribe() (<-chan daemon.Event, func()) {
	return r.hub.Subscribe()
}
