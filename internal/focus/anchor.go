// Package focus remembers where the user was when dictation started: it
// places the overlay near the caret and decides whether pasting the result
// back is safe.
package focus

import (
	"sync"

	"github.com/remberq/simple-voice-transcribe/pkg/logger"
)

// Overlay placement constants, in screen pixels.
const (
	anchorGap     = 16
	pointerOffset = 24
	footprint     = 80
	margin        = 12
)

// Fallback is used when nothing else is known.
var Fallback = Point{X: 100, Y: 100}

// Toast messages returned by HandleTranscription.
const (
	ToastCopied       = "Copied to clipboard"
	ToastInserted     = "Inserted into input"
	ToastFocusChanged = "Focus changed. Copied only"
	ToastNoClipboard  = "Clipboard unavailable"
)

// Point is a screen location with the origin at the top-left.
type Point struct{ X, Y float64 }

// Rect is a screen rectangle with the origin at the top-left.
type Rect struct{ X, Y, W, H float64 }

func (r Rect) MaxX() float64 { return r.X + r.W }
func (r Rect) MaxY() float64 { return r.Y + r.H }
func (r Rect) MidY() float64 { return r.Y + r.H/2 }

// usable reports whether the rect has any extent.
func (r *Rect) usable() bool { return r != nil && (r.W > 0 || r.H > 0) }

// AppID identifies the frontmost application (a process id on X11).
type AppID string

// Element is the focused UI element as reported by the inspector.
type Element struct {
	Role          string
	Frame         *Rect
	Caret         *Rect
	ValueSettable bool
}

// Inspector reads focus state from the desktop. Every method is best-effort.
type Inspector interface {
	FrontmostApp() (AppID, bool)
	PointerLocation() (Point, bool)
	// FocusedElement queries app, or the whole desktop when app is "".
	FocusedElement(app AppID) (Element, bool)
	VisibleBounds() (Rect, bool)
}

// Clipboard writes plain text to the system clipboard.
type Clipboard interface {
	WriteText(text string) error
}

// Paster simulates the paste key combination.
type Paster interface {
	Paste() error
}

// Policy decides how results are delivered.
type Policy struct {
	AlwaysCopy        bool
	AutoInsert        bool
	PasteWhenEditable bool
	EditableRoles     []string
}

// Snapshot is the focus context captured at activation.
type Snapshot struct {
	App     AppID
	Pointer *Point
	Caret   *Rect
	Element *Rect
}

// Anchor captures focus context and delivers text back to it.
type Anchor struct {
	inspector Inspector
	clipboard Clipboard
	paster    Paster
	policy    Policy
	log       *logger.Logger

	mu         sync.Mutex
	snapshot   Snapshot
	initialApp AppID
	hasInitial bool
}

// NewAnchor wires the desktop capabilities.
func NewAnchor(inspector Inspector, clipboard Clipboard, paster Paster, policy Policy, log *logger.Logger) *Anchor {
	return &Anchor{
		inspector: inspector,
		clipboard: clipboard,
		paster:    paster,
		policy:    policy,
		log:       log.Named("focus"),
	}
}

// CaptureInteractionAnchor records the pointer and the caret or focused
// element frame. The frontmost application is asked first, then the whole
// desktop.
func (a *Anchor) CaptureInteractionAnchor() Snapshot {
	var s Snapshot
	if p, ok := a.inspector.PointerLocation(); ok {
		s.Pointer = &p
	}

	app, hasApp := a.inspector.FrontmostApp()
	if hasApp {
		s.App = app
	}
	var el Element
	found := false
	if hasApp {
		el, found = a.inspector.FocusedElement(app)
	}
	if !found {
		el, found = a.inspector.FocusedElement("")
	}
	if found {
		s.Caret = el.Caret
		s.Element = el.Frame
	}

	a.mu.Lock()
	a.snapshot = s
	a.mu.Unlock()
	return s
}

// CalculateOverlayPosition picks caret, then element, then pointer, then
// Fallback, and clamps the result to the visible screen.
func (a *Anchor) CalculateOverlayPosition() Point {
	a.mu.Lock()
	s := a.snapshot
	a.mu.Unlock()

	var p Point
	switch {
	case s.Caret.usable():
		p = Point{X: s.Caret.MaxX() + anchorGap, Y: s.Caret.MidY()}
	case s.Element.usable():
		p = Point{X: s.Element.MaxX() + anchorGap, Y: s.Element.MidY()}
	case s.Pointer != nil:
		p = Point{X: s.Pointer.X + pointerOffset, Y: s.Pointer.Y + pointerOffset}
	default:
		p = Fallback
	}

	bounds, ok := a.inspector.VisibleBounds()
	if !ok {
		return p
	}
	return Point{
		X: clamp(p.X, bounds.X+margin, bounds.MaxX()-footprint-margin),
		Y: clamp(p.Y, bounds.Y+margin, bounds.MaxY()-footprint-margin),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// CaptureInitialFocus records the frontmost application as the paste target.
func (a *Anchor) CaptureInitialFocus() {
	app, ok := a.inspector.FrontmostApp()

	a.mu.Lock()
	a.initialApp, a.hasInitial = app, ok
	a.mu.Unlock()

	if ok {
		a.log.Debug("captured initial focus", logger.String("app", string(app)))
	}
}

// Copy puts text on the clipboard.
func (a *Anchor) Copy(text string) error {
	return a.clipboard.WriteText(text)
}

// HandleTranscription delivers text according to the policy and returns a
// short message for the user. Safety failures downgrade to copy-only.
func (a *Anchor) HandleTranscription(text string) string {
	copied := false
	if a.policy.AlwaysCopy || !a.policy.AutoInsert {
		if err := a.clipboard.WriteText(text); err != nil {
			a.log.Warn("clipboard write failed", logger.Error(err))
			return ToastNoClipboard
		}
		copied = true
	}
	if !a.policy.AutoInsert {
		return ToastCopied
	}

	a.mu.Lock()
	baseline, hasBaseline := a.initialApp, a.hasInitial
	a.mu.Unlock()

	if hasBaseline {
		if current, ok := a.inspector.FrontmostApp(); ok && current != baseline {
			a.log.Info("focus changed; not pasting",
				logger.String("from", string(baseline)), logger.String("to", string(current)))
			return a.copiedOnly(text, copied, ToastFocusChanged)
		}
	}

	if !a.focusedEditable() {
		a.log.Info("focused element is not editable; not pasting")
		return a.copiedOnly(text, copied, ToastCopied)
	}
	if !a.policy.PasteWhenEditable {
		return a.copiedOnly(text, copied, ToastCopied)
	}

	// Paste sends whatever the clipboard holds.
	if !copied {
		if err := a.clipboard.WriteText(text); err != nil {
			a.log.Warn("clipboard write failed", logger.Error(err))
			return ToastNoClipboard
		}
	}
	if err := a.paster.Paste(); err != nil {
		a.log.Warn("paste failed", logger.Error(err))
		return ToastCopied
	}
	return ToastInserted
}

// copiedOnly makes sure a downgraded delivery still lands on the clipboard.
func (a *Anchor) copiedOnly(text string, copied bool, toast string) string {
	if !copied {
		if err := a.clipboard.WriteText(text); err != nil {
			a.log.Warn("clipboard write failed", logger.Error(err))
			return ToastNoClipboard
		}
	}
	return toast
}

func (a *Anchor) focusedEditable() bool {
	el, ok := a.inspector.FocusedElement("")
	if !ok {
		return false
	}
	for _, r := range a.policy.EditableRoles {
		if el.Role == r {
			return true
		}
	}
	return el.ValueSettable
}
