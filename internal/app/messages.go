package app

import (
	"github.com/remberq/simple-voice-transcribe/internal/capture"
	"github.com/remberq/simple-voice-transcribe/internal/daemon"
	"github.com/remberq/simple-voice-transcribe/internal/dispatch"
	"github.com/remberq/simple-voice-transcribe/internal/ledger"
)

// ActivateMsg starts a recording when idle.
type ActivateMsg struct{}

// StopMsg stops the current recording.
type StopMsg struct{}

// ToggleMsg shows the overlay (activating when idle), stops a recording,
// or hides the overlay.
type ToggleMsg struct{}

// TapMsg is a click on the overlay; its meaning depends on the state.
type TapMsg struct{}

// HideMsg hides the overlay, discarding any recording in progress.
type HideMsg struct{}

// UploadMsg dispatches an existing audio file.
type UploadMsg struct {
	Path string
}

// TriggerMsg carries a socket command into the event loop. The response
// is sent on Reply, which must be buffered.
type TriggerMsg struct {
	Command daemon.Command
	Reply   chan<- daemon.Response
}

// LevelMsg carries the microphone level in [0,1].
type LevelMsg struct {
	Level float64
}

// LedgerChangedMsg carries a fresh job snapshot.
type LedgerChangedMsg struct {
	Jobs []ledger.Job
}

// JobFinishedMsg reports the outcome of a dispatched job.
type JobFinishedMsg struct {
	Result dispatch.Result
}

// captureStartedMsg reports the device open result of session gen.
type captureStartedMsg struct {
	gen int
	err error
}

// captureStoppedMsg delivers the artifact of session gen (nil on failure).
type captureStoppedMsg struct {
	gen      int
	artifact *capture.Artifact
}

// settingsOpenedMsg reports the result of opening the OS settings.
type settingsOpenedMsg struct {
	err error
}

type clearToastMsg struct {
	seq int
}
