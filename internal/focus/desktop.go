package focus

import (
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

// Runner executes a command and returns its trimmed stdout.
type Runner func(name string, args ...string) (string, error)

func execRunner(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Xdotool inspects an X11 desktop through the xdotool command. It reports
// the active window's class as the element role; caret rectangles are not
// available.
type Xdotool struct {
	run Runner
}

// NewXdotool returns an inspector that shells out to xdotool.
func NewXdotool() *Xdotool {
	return &Xdotool{run: execRunner}
}

func (x *Xdotool) FrontmostApp() (AppID, bool) {
	out, err := x.run("xdotool", "getactivewindow", "getwindowpid")
	if err != nil || out == "" {
		return "", false
	}
	return AppID(out), true
}

func (x *Xdotool) PointerLocation() (Point, bool) {
	out, err := x.run("xdotool", "getmouselocation", "--shell")
	if err != nil {
		return Point{}, false
	}
	vals := parseShell(out)
	px, okX := vals["X"]
	py, okY := vals["Y"]
	if !okX || !okY {
		return Point{}, false
	}
	return Point{X: px, Y: py}, true
}

// FocusedElement reports the active window. X11 has no per-widget focus
// query, so app is only used to confirm the window belongs to it.
func (x *Xdotool) FocusedElement(app AppID) (Element, bool) {
	if app != "" {
		if cur, ok := x.FrontmostApp(); !ok || cur != app {
			return Element{}, false
		}
	}
	out, err := x.run("xdotool", "getactivewindow", "getwindowgeometry", "--shell")
	if err != nil {
		return Element{}, false
	}
	vals := parseShell(out)
	el := Element{}
	if w, ok := vals["WIDTH"]; ok {
		el.Frame = &Rect{X: vals["X"], Y: vals["Y"], W: w, H: vals["HEIGHT"]}
	}
	if class, err := x.run("xdotool", "getactivewindow", "getwindowclassname"); err == nil {
		el.Role = strings.ToLower(class)
	}
	return el, true
}

func (x *Xdotool) VisibleBounds() (Rect, bool) {
	out, err := x.run("xdotool", "getdisplaygeometry")
	if err != nil {
		return Rect{}, false
	}
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return Rect{}, false
	}
	w, errW := strconv.ParseFloat(fields[0], 64)
	h, errH := strconv.ParseFloat(fields[1], 64)
	if errW != nil || errH != nil {
		return Rect{}, false
	}
	return Rect{W: w, H: h}, true
}

// parseShell reads KEY=number lines as printed by xdotool --shell.
func parseShell(out string) map[string]float64 {
	vals := make(map[string]float64)
	for _, line := range strings.Split(out, "\n") {
		k, v, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			vals[k] = f
		}
	}
	return vals
}

// SystemClipboard is the desktop clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteText(text string) error {
	return clipboard.WriteAll(text)
}

// KeyboardPaster presses Ctrl+V through a virtual keyboard.
type KeyboardPaster struct {
	once sync.Once
	kb   keybd_event.KeyBonding
	err  error
}

func (k *KeyboardPaster) init() {
	k.kb, k.err = keybd_event.NewKeyBonding()
	if k.err != nil {
		k.err = fmt.Errorf("create virtual keyboard: %w", k.err)
		return
	}
	// The uinput device needs a moment before the first event is accepted.
	if runtime.GOOS == "linux" {
		time.Sleep(2 * time.Second)
	}
}

func (k *KeyboardPaster) Paste() error {
	k.once.Do(k.init)
	if k.err != nil {
		return k.err
	}
	k.kb.Clear()
	k.kb.HasCTRL(true)
	k.kb.SetKeys(keybd_event.VK_V)
	return k.kb.Launching()
}
