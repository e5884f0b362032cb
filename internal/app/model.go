package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/remberq/simple-voice-transcribe/internal/capture"
	"github.com/remberq/simple-voice-transcribe/internal/daemon"
	"github.com/remberq/simple-voice-transcribe/internal/dispatch"
	"github.com/remberq/simple-voice-transcribe/internal/focus"
	"github.com/remberq/simple-voice-transcribe/internal/ledger"
	"github.com/remberq/simple-voice-transcribe/internal/transcribe"
	"github.com/remberq/simple-voice-transcribe/internal/ui"
	"github.com/remberq/simple-voice-transcribe/pkg/logger"

	tea "github.com/charmbracelet/bubbletea"
)

// State is the interaction state of the controller.
type State int

const (
	StateIdle State = iota
	StateRecording
	StatePaused // reserved; no transition leads here
	StateTranscribing
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	case StateTranscribing:
		return "transcribing"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	errCaptureBusy  = errors.New("microphone is busy")
	errJobIDMissing = errors.New("job id required")
	errNoResult     = errors.New("job has no result to copy")
)

const toastDuration = 3 * time.Second

// Recorder is the audio capture used by the controller.
type Recorder interface {
	Start(onStarted func(error)) bool
	StopFunc(done func(*capture.Artifact))
	Discard()
	Levels() <-chan float64
}

// Focus captures the user's focus context and writes to the clipboard.
type Focus interface {
	CaptureInteractionAnchor() focus.Snapshot
	CalculateOverlayPosition() focus.Point
	CaptureInitialFocus()
	Copy(text string) error
}

// Dispatcher runs transcription jobs.
type Dispatcher interface {
	Start(art capture.Artifact) (ledger.Job, <-chan dispatch.Result)
	Upload(path string) (ledger.Job, <-chan dispatch.Result, error)
	Retry(id string) (ledger.Job, <-chan dispatch.Result, error)
	Cancel(id string) error
}

// History is the job ledger as seen by the controller.
type History interface {
	Jobs() []ledger.Job
	Job(id string) (ledger.Job, bool)
	DeleteJob(id string)
	ClearHistory()
	MarkCopied(id string) error
	CopiedJobID() string
	ActiveCount() int
	Subscribe() (<-chan []ledger.Job, func())
}

// Deps are the collaborators of the controller.
type Deps struct {
	Recorder    Recorder
	Permissions capture.Permissions
	Focus       Focus
	Dispatcher  Dispatcher
	History     History
	// Provider names the active provider for the header. Optional.
	Provider func() string
	// Publish receives state, job and toast events. Optional.
	Publish func(daemon.Event)
	Log     *logger.Logger
}

// Model is the root bubbletea model: the interaction state machine and
// the history view.
type Model struct {
	recorder   Recorder
	perms      capture.Permissions
	focus      Focus
	dispatcher Dispatcher
	history    History
	provider   func() string
	publish    func(daemon.Event)
	log        *logger.Logger

	jobsCh      <-chan []ledger.Job
	unsubscribe func()

	// Interaction state
	state   State
	visible bool
	overlay focus.Point
	gen     int // capture session generation
	level   float64

	// Stops whose artifact has not arrived yet, and a quit waiting on them.
	pendingStops int
	quitting     bool

	// Errors
	errorMessage      string
	permissionMissing bool
	settingsOpened    bool

	// History
	jobs         []ledger.Job
	copiedID     string
	selected     int
	confirmClear bool

	toast    string
	toastSeq int

	width  int
	height int
}

// New creates a Model in the Idle state.
func New(d Deps) Model {
	log := d.Log
	if log == nil {
		log = logger.NewNop()
	}
	publish := d.Publish
	if publish == nil {
		publish = func(daemon.Event) {}
	}
	provider := d.Provider
	if provider == nil {
		provider = func() string { return "" }
	}
	jobsCh, unsubscribe := d.History.Subscribe()
	return Model{
		recorder:    d.Recorder,
		perms:       d.Permissions,
		focus:       d.Focus,
		dispatcher:  d.Dispatcher,
		history:     d.History,
		provider:    provider,
		publish:     publish,
		log:         log.Named("controller"),
		jobsCh:      jobsCh,
		unsubscribe: unsubscribe,
		jobs:        d.History.Jobs(),
		copiedID:    d.History.CopiedJobID(),
	}
}

// State returns the current interaction state.
func (m Model) State() State { return m.state }

// Close releases the ledger subscription.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init starts listening for levels and ledger changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		listenLevelsCmd(m.recorder.Levels()),
		listenJobsCmd(m.jobsCh),
	)
}

func listenLevelsCmd(ch <-chan float64) tea.Cmd {
	return func() tea.Msg {
		level, ok := <-ch
		if !ok {
			return nil
		}
		return LevelMsg{Level: level}
	}
}

func listenJobsCmd(ch <-chan []ledger.Job) tea.Cmd {
	return func() tea.Msg {
		jobs, ok := <-ch
		if !ok {
			return nil
		}
		return LedgerChangedMsg{Jobs: jobs}
	}
}

// waitStartCmd reports the outcome of the device open for session gen.
func waitStartCmd(started <-chan error, gen int) tea.Cmd {
	return func() tea.Msg {
		return captureStartedMsg{gen: gen, err: <-started}
	}
}

// stopCaptureCmd stops the recording, waiting for a device that is still
// opening.
func stopCaptureCmd(rec Recorder, gen int) tea.Cmd {
	return func() tea.Msg {
		done := make(chan *capture.Artifact, 1)
		rec.StopFunc(func(art *capture.Artifact) { done <- art })
		return captureStoppedMsg{gen: gen, artifact: <-done}
	}
}

func discardCaptureCmd(rec Recorder) tea.Cmd {
	return func() tea.Msg {
		rec.Discard()
		return nil
	}
}

func openSettingsCmd(perms capture.Permissions) tea.Cmd {
	return func() tea.Msg {
		return settingsOpenedMsg{err: perms.OpenSettings()}
	}
}

// waitResultCmd waits for a dispatched job to finish.
func waitResultCmd(results <-chan dispatch.Result) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-results
		if !ok {
			return nil
		}
		return JobFinishedMsg{Result: r}
	}
}

func clearToastCmd(seq int) tea.Cmd {
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return clearToastMsg{seq: seq}
	})
}

// Update processes messages and returns the updated model and any commands.
// State and visibility changes are published after every message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	prevState, prevVisible := m.state, m.visible
	next, cmd := m.update(msg)
	if next.state != prevState || next.visible != prevVisible {
		next.publish(daemon.Event{
			Event:   daemon.EventState,
			State:   next.state.String(),
			Visible: daemon.BoolPtr(next.visible),
		})
	}
	return next, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case ActivateMsg:
		return m.handleActivate()

	case StopMsg:
		return m.handleStop()

	case ToggleMsg:
		return m.handleToggle()

	case TapMsg:
		return m.handleTap()

	case HideMsg:
		return m.handleHide()

	case UploadMsg:
		next, cmd, _, _ := m.handleUpload(msg.Path)
		return next, cmd

	case TriggerMsg:
		return m.handleTrigger(msg)

	case captureStartedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		if msg.err == nil {
			return m, nil
		}
		m.log.Error("capture failed to start", logger.Error(msg.err))
		if m.state == StateRecording || m.state == StateTranscribing {
			m.enterError("Could not start recording: "+msg.err.Error(), false)
		}
		return m, nil

	case captureStoppedMsg:
		return m.handleCaptureStopped(msg)

	case settingsOpenedMsg:
		if msg.err != nil {
			m.log.Warn("could not open settings", logger.Error(msg.err))
			return m.showToast("Could not open system settings")
		}
		return m, nil

	case LevelMsg:
		m.level = msg.Level
		return m, listenLevelsCmd(m.recorder.Levels())

	case LedgerChangedMsg:
		m.jobs = msg.Jobs
		m.copiedID = m.history.CopiedJobID()
		if m.selected >= len(m.jobs) {
			m.selected = max(0, len(m.jobs)-1)
		}
		m.publish(daemon.Event{Event: daemon.EventJobs, Jobs: msg.Jobs})
		return m, listenJobsCmd(m.jobsCh)

	case JobFinishedMsg:
		r := msg.Result
		switch {
		case r.Cancelled:
			return m, nil
		case r.Err != nil:
			return m.showToast("Transcription failed: " + transcribe.Describe(r.Err))
		default:
			return m.showToast(r.Toast)
		}

	case clearToastMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil
	}

	return m, nil
}

// show captures the focus context and places the overlay.
func (m *Model) show() {
	m.focus.CaptureInteractionAnchor()
	m.overlay = m.focus.CalculateOverlayPosition()
	m.visible = true
}

func (m *Model) enterError(message string, permission bool) {
	m.state = StateError
	m.errorMessage = message
	m.permissionMissing = permission
	m.settingsOpened = false
}

func (m *Model) dismissError() {
	m.state = StateIdle
	m.errorMessage = ""
	m.permissionMissing = false
	m.settingsOpened = false
}

func (m Model) showToast(text string) (Model, tea.Cmd) {
	if text == "" {
		return m, nil
	}
	m.toast = text
	m.toastSeq++
	m.publish(daemon.Event{Event: daemon.EventToast, Toast: text})
	return m, clearToastCmd(m.toastSeq)
}

// handleActivate starts a recording from Idle.
func (m Model) handleActivate() (Model, tea.Cmd) {
	if m.state != StateIdle {
		return m, nil
	}
	m.show()
	if !m.perms.MicrophoneAuthorized() {
		m.log.Warn("microphone not authorized")
		m.enterError("Microphone access is not available. Tap to open settings.", true)
		return m, nil
	}
	// Start returns at once; the device opens in the background. Calling it
	// here orders it before any stop or discard issued afterwards.
	started := make(chan error, 1)
	if !m.recorder.Start(func(err error) { started <- err }) {
		m.log.Warn("capture busy")
		m.enterError("Could not start recording: "+errCaptureBusy.Error(), false)
		return m, nil
	}
	m.focus.CaptureInitialFocus()
	m.gen++
	m.level = 0
	m.state = StateRecording
	m.log.Info("recording requested", logger.Int("session", m.gen))
	return m, waitStartCmd(started, m.gen)
}

// handleStop stops the recording. Outside Recording it does nothing.
func (m Model) handleStop() (Model, tea.Cmd) {
	if m.state != StateRecording {
		return m, nil
	}
	m.state = StateTranscribing
	m.pendingStops++
	return m, stopCaptureCmd(m.recorder, m.gen)
}

func (m Model) handleToggle() (Model, tea.Cmd) {
	switch {
	case !m.visible && m.state == StateIdle:
		return m.handleActivate()
	case !m.visible:
		m.show()
		return m, nil
	case m.state == StateRecording:
		return m.handleStop()
	default:
		return m.handleHide()
	}
}

func (m Model) handleTap() (Model, tea.Cmd) {
	switch m.state {
	case StateIdle:
		return m.handleActivate()
	case StateRecording:
		return m.handleStop()
	case StateTranscribing:
		// The pending stop still dispatches the artifact.
		m.state = StateIdle
		m.visible = false
		return m, nil
	case StateError:
		if m.permissionMissing && !m.settingsOpened && !m.perms.MicrophoneAuthorized() {
			m.settingsOpened = true
			return m, openSettingsCmd(m.perms)
		}
		m.dismissError()
		return m, nil
	}
	return m, nil
}

// handleHide hides the overlay. A recording in progress is discarded.
func (m Model) handleHide() (Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.state {
	case StateRecording:
		m.gen++
		m.state = StateIdle
		m.level = 0
		m.log.Info("recording discarded")
		cmd = discardCaptureCmd(m.recorder)
	case StateTranscribing:
		m.state = StateIdle
	case StateError:
		m.dismissError()
	}
	m.visible = false
	return m, cmd
}

// handleCaptureStopped dispatches every stopped recording, including one
// from an earlier session. Only the current session moves the state.
func (m Model) handleCaptureStopped(msg captureStoppedMsg) (Model, tea.Cmd) {
	m.pendingStops = max(0, m.pendingStops-1)
	current := msg.gen == m.gen && m.state == StateTranscribing

	var cmd tea.Cmd
	if msg.artifact == nil {
		if current {
			m.enterError("Recording failed. No audio was captured.", false)
		}
	} else {
		job, results := m.dispatcher.Start(*msg.artifact)
		m.log.Info("recording dispatched",
			logger.String("job_id", job.ID),
			logger.Int("session", msg.gen),
			logger.Int64("size", msg.artifact.Size))
		if current {
			m.state = StateIdle
		}
		cmd = waitResultCmd(results)
	}

	if m.quitting && m.pendingStops == 0 {
		return m, tea.Quit
	}
	return m, cmd
}

func (m Model) handleUpload(path string) (Model, tea.Cmd, string, error) {
	job, results, err := m.dispatcher.Upload(path)
	if err != nil {
		m.log.Warn("upload rejected", logger.String("path", path), logger.Error(err))
		next, cmd := m.showToast("Upload rejected: " + err.Error())
		return next, cmd, "", err
	}
	return m, waitResultCmd(results), job.ID, nil
}

func (m Model) retryJob(id string) (Model, tea.Cmd, error) {
	_, results, err := m.dispatcher.Retry(id)
	if err != nil {
		return m, nil, err
	}
	return m, waitResultCmd(results), nil
}

func (m Model) copyJob(id string) (Model, tea.Cmd, error) {
	job, ok := m.history.Job(id)
	if !ok {
		return m, nil, ledger.ErrJobNotFound
	}
	if job.Result() == "" {
		return m, nil, errNoResult
	}
	if err := m.focus.Copy(job.Result()); err != nil {
		return m, nil, fmt.Errorf("copy: %w", err)
	}
	if err := m.history.MarkCopied(id); err != nil {
		return m, nil, err
	}
	m.copiedID = id
	next, cmd := m.showToast(focus.ToastCopied)
	return next, cmd, nil
}

// handleTrigger runs a socket command and replies with the resulting state.
func (m Model) handleTrigger(msg TriggerMsg) (Model, tea.Cmd) {
	var (
		resp daemon.Response
		cmd  tea.Cmd
		err  error
	)
	id := msg.Command.JobID
	needsID := func() bool {
		if id == "" {
			err = errJobIDMissing
			return false
		}
		return true
	}

	switch msg.Command.Cmd {
	case daemon.CmdToggle:
		m, cmd = m.handleToggle()
	case daemon.CmdActivate:
		m, cmd = m.handleActivate()
	case daemon.CmdStop:
		m, cmd = m.handleStop()
	case daemon.CmdTap:
		m, cmd = m.handleTap()
	case daemon.CmdUpload:
		m, cmd, resp.JobID, err = m.handleUpload(msg.Command.Path)
	case daemon.CmdCancel:
		if needsID() {
			err = m.dispatcher.Cancel(id)
		}
	case daemon.CmdRetry:
		if needsID() {
			m, cmd, err = m.retryJob(id)
			resp.JobID = id
		}
	case daemon.CmdDelete:
		if needsID() {
			m.history.DeleteJob(id)
		}
	case daemon.CmdClear:
		m.history.ClearHistory()
	case daemon.CmdCopy:
		if needsID() {
			m, cmd, err = m.copyJob(id)
		}
	case daemon.CmdJobs:
		resp.Jobs = m.history.Jobs()
	case daemon.CmdStatus:
	default:
		err = fmt.Errorf("unknown command %q", msg.Command.Cmd)
	}

	if err != nil {
		resp = daemon.Fail(err)
	} else {
		resp.OK = true
	}
	resp.State = m.state.String()
	resp.Visible = daemon.BoolPtr(m.visible)
	resp.ActiveJobs = daemon.IntPtr(m.history.ActiveCount())

	select {
	case msg.Reply <- resp:
	default:
		m.log.Warn("trigger reply dropped", logger.String("cmd", msg.Command.Cmd))
	}
	return m, cmd
}

func (m Model) selectedJob() (ledger.Job, bool) {
	if m.selected < 0 || m.selected >= len(m.jobs) {
		return ledger.Job{}, false
	}
	return m.jobs[m.selected], true
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	key := msg.String()
	if key != KeyConfirm && key != KeyClear {
		m.confirmClear = false
	}

	switch key {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		if m.state == StateRecording {
			m.gen++
			m.state = StateIdle
			return m, tea.Sequence(discardCaptureCmd(m.recorder), tea.Quit)
		}
		if m.pendingStops > 0 {
			// Quit once the stopped recording is handed to the dispatcher;
			// shutdown records it as interrupted so it can be retried.
			m.quitting = true
			return m, nil
		}
		return m, tea.Quit

	case KeySpace:
		return m.handleTap()

	case KeyEnter:
		return m.handleStop()

	case KeyToggle:
		return m.handleToggle()

	case KeyEsc:
		return m.handleHide()

	case KeyUp, KeyK:
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case KeyDown, KeyJ:
		if m.selected < len(m.jobs)-1 {
			m.selected++
		}
		return m, nil

	case KeyCopy:
		job, ok := m.selectedJob()
		if !ok {
			return m, nil
		}
		next, cmd, err := m.copyJob(job.ID)
		if err != nil {
			return next.showToast(err.Error())
		}
		return next, cmd

	case KeyRetry:
		job, ok := m.selectedJob()
		if !ok || !job.Status.Terminal() || job.Status == ledger.StatusCompleted {
			return m, nil
		}
		next, cmd, err := m.retryJob(job.ID)
		if err != nil {
			return next.showToast(err.Error())
		}
		return next, cmd

	case KeyCancel:
		if job, ok := m.selectedJob(); ok && !job.Status.Terminal() {
			if err := m.dispatcher.Cancel(job.ID); err != nil {
				return m.showToast(err.Error())
			}
		}
		return m, nil

	case KeyDelete:
		if job, ok := m.selectedJob(); ok {
			m.history.DeleteJob(job.ID)
		}
		return m, nil

	case KeyClear:
		if len(m.jobs) == 0 {
			return m, nil
		}
		m.confirmClear = true
		return m.showToast("Press y to clear all history")

	case KeyConfirm:
		if m.confirmClear {
			m.confirmClear = false
			m.history.ClearHistory()
			m.selected = 0
		}
		return m, nil
	}

	return m, nil
}

func (m Model) historyVisibleLines() int {
	if m.height == 0 {
		return 10
	}
	// Reserve: header(1) + status(1) + overlay(1) + dividers(2) + title(1) + detail(2) + error(1) + toast(1) + footer(1)
	reserved := 11
	return max(3, m.height-reserved)
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string

	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, m.renderOverlayLine())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderHistory())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	if m.errorMessage != "" {
		sections = append(sections, m.renderErrorBar())
	}
	if m.toast != "" {
		sections = append(sections, ui.ToastStyle.Render(m.toast))
	}

	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("DICTATE")
	if name := m.provider(); name != "" {
		title += ui.DimStyle.Render(" · " + name)
	}
	return title
}

func (m Model) renderStatusBar() string {
	var indicator string
	switch m.state {
	case StateRecording:
		indicator = ui.RecordingDotStyle.Render("● REC") + "  " + renderLevelMeter(m.level)
	case StateTranscribing:
		indicator = ui.TranscribingStyle.Render("⟳ TRANSCRIBING")
	case StateError:
		indicator = ui.ErrorStyle.Render("✖ ERROR")
	default:
		indicator = ui.IdleDotStyle.Render("○ IDLE")
	}

	if active := m.activeJobs(); active > 0 {
		indicator += "  " + ui.DimStyle.Render(fmt.Sprintf("%d active", active))
	}
	return indicator
}

func (m Model) activeJobs() int {
	n := 0
	for _, j := range m.jobs {
		if !j.Status.Terminal() {
			n++
		}
	}
	return n
}

func (m Model) renderOverlayLine() string {
	if !m.visible {
		return ui.DimStyle.Render("Overlay hidden")
	}
	return ui.DimStyle.Render(fmt.Sprintf("Overlay at (%.0f, %.0f)", m.overlay.X, m.overlay.Y))
}

func renderLevelMeter(level float64) string {
	const barLen = 10
	filled := min(int(level*barLen), barLen)

	var bar string
	for i := 0; i < barLen; i++ {
		if i < filled {
			if float64(i)/barLen > 0.6 {
				bar += ui.LevelYellowStyle.Render("█")
			} else {
				bar += ui.LevelGreenStyle.Render("█")
			}
		} else {
			bar += ui.LevelGrayStyle.Render("░")
		}
	}
	return ui.DimStyle.Render("MIC ") + bar
}

func (m Model) renderHistory() string {
	lines := []string{ui.PanelTitleStyle.Render(fmt.Sprintf("HISTORY (%d)", len(m.jobs)))}

	if len(m.jobs) == 0 {
		lines = append(lines, ui.DimStyle.Render("  No transcriptions yet. Press Space to record."))
		return strings.Join(lines, "\n")
	}

	visible := m.historyVisibleLines()
	start := 0
	if m.selected >= visible {
		start = m.selected - visible + 1
	}
	end := min(start+visible, len(m.jobs))
	for i := start; i < end; i++ {
		lines = append(lines, m.renderJobLine(m.jobs[i], i == m.selected))
	}

	if job, ok := m.selectedJob(); ok {
		detail := job.Result()
		if job.Status == ledger.StatusFailed {
			detail = job.Error()
		}
		if detail != "" {
			wrapped := wrapText(detail, max(10, m.width-4))
			for _, wl := range wrapped[:min(2, len(wrapped))] {
				lines = append(lines, ui.DimStyle.Render("    "+wl))
			}
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderJobLine(j ledger.Job, selected bool) string {
	ts := ui.TimestampStyle.Render(j.CreatedAt.Local().Format("[15:04:05]"))

	status := string(j.Status)
	if j.Status == ledger.StatusUploading {
		status = fmt.Sprintf("uploading %3.0f%%", j.UploadProgress*100)
	}
	status = ui.JobStatusStyle(string(j.Status)).Render(padRight(status, 14))

	meta := fmt.Sprintf("%-5s %8s  %s", j.FileFormat, formatSize(j.FileSize), j.ProviderName)
	line := ts + " " + status + " " + meta
	if j.ID == m.copiedID {
		line += ui.ToastStyle.Render("  ✓ copied")
	}

	if selected {
		return ui.SelectedStyle.Render("> ") + truncateToWidth(line, m.width-2)
	}
	return "  " + truncateToWidth(line, m.width-2)
}

func (m Model) renderErrorBar() string {
	return ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(m.errorMessage)
}

func (m Model) renderFooter() string {
	var parts []string

	switch m.state {
	case StateRecording:
		parts = append(parts, ui.FooterKeyStyle.Render("Space")+ui.FooterDescStyle.Render(" Stop"))
		parts = append(parts, ui.FooterKeyStyle.Render("Esc")+ui.FooterDescStyle.Render(" Discard"))
	case StateError:
		parts = append(parts, ui.FooterKeyStyle.Render("Space")+ui.FooterDescStyle.Render(" Dismiss"))
	default:
		parts = append(parts, ui.FooterKeyStyle.Render("Space")+ui.FooterDescStyle.Render(" Record"))
	}
	parts = append(parts, ui.FooterKeyStyle.Render("t")+ui.FooterDescStyle.Render(" Toggle"))
	if len(m.jobs) > 0 {
		parts = append(parts, ui.FooterKeyStyle.Render("↑↓")+ui.FooterDescStyle.Render(" Select"))
		parts = append(parts, ui.FooterKeyStyle.Render("c")+ui.FooterDescStyle.Render(" Copy"))
		parts = append(parts, ui.FooterKeyStyle.Render("r")+ui.FooterDescStyle.Render(" Retry"))
		parts = append(parts, ui.FooterKeyStyle.Render("x")+ui.FooterDescStyle.Render(" Cancel"))
		parts = append(parts, ui.FooterKeyStyle.Render("d")+ui.FooterDescStyle.Render(" Delete"))
		parts = append(parts, ui.FooterKeyStyle.Render("X")+ui.FooterDescStyle.Render(" Clear"))
	}
	parts = append(parts, ui.FooterKeyStyle.Render("q")+ui.FooterDescStyle.Render(" Quit"))

	return strings.Join(parts, "  ")
}

// Helpers

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.0f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func padRight(s string, width int) string {
	// Get visible length (ignoring ANSI codes)
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

// truncateToWidth cuts styled text to width cells without splitting escape
// sequences.
func truncateToWidth(s string, width int) string {
	if width <= 1 || lipgloss.Width(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "…")
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			if current == "" {
				current = word
			} else if len(current)+1+len(word) <= width {
				current += " " + word
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		if current != "" {
			lines = append(lines, current)
		} else {
			lines = append(lines, "")
		}
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
