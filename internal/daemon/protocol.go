// Package daemon implements the trigger socket: NDJSON commands sent over a
// Unix socket by hotkey daemons and the dictate CLI, and job/state events
// streamed back to subscribers.
package daemon

import "github.com/remberq/simple-voice-transcribe/internal/ledger"

// Command names.
const (
	CmdToggle    = "toggle"
	CmdActivate  = "activate"
	CmdStop      = "stop"
	CmdTap       = "tap"
	CmdUpload    = "upload"
	CmdCancel    = "cancel"
	CmdRetry     = "retry"
	CmdDelete    = "delete"
	CmdClear     = "clear"
	CmdCopy      = "copy"
	CmdStatus    = "status"
	CmdJobs      = "jobs"
	CmdSubscribe = "subscribe"
)

// Event names.
const (
	EventState = "state"
	EventJobs  = "jobs"
	EventToast = "toast"
)

// Command is sent from a client to the server.
type Command struct {
	Cmd   string `json:"cmd"`
	Path  string `json:"path,omitempty"`
	JobID string `json:"jobId,omitempty"`
}

// Response is returned after processing a command.
type Response struct {
	OK         bool         `json:"ok"`
	State      string       `json:"state,omitempty"`
	Visible    *bool        `json:"visible,omitempty"`
	ActiveJobs *int         `json:"activeJobs,omitempty"`
	JobID      string       `json:"jobId,omitempty"`
	Jobs       []ledger.Job `json:"jobs,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// Event is streamed to subscribed clients.
type Event struct {
	Event   string       `json:"event"`
	State   string       `json:"state,omitempty"`
	Visible *bool        `json:"visible,omitempty"`
	Jobs    []ledger.Job `json:"jobs,omitempty"`
	Toast   string       `json:"toast,omitempty"`
}

// BoolPtr returns a pointer to a bool value.
func BoolPtr(b bool) *bool { return &b }

// IntPtr returns a pointer to an int value.
func IntPtr(n int) *int { return &n }

// Fail builds an error response.
func Fail(err error) Response {
	return Response{Error: err.Error()}
}
