package capture

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-audio/wav"

	"github.com/remberq/simple-voice-transcribe/pkg/logger"
)

// fakeOpener opens fakeDevices. When gate is non-nil Open blocks until it
// is closed, simulating slow device warm-up.
type fakeOpener struct {
	gate    chan struct{}
	openErr error
	opens   atomic.Int32
	last    atomic.Pointer[fakeDevice]
}

func (o *fakeOpener) Open(sampleRate, channels, frames int) (Device, error) {
	o.opens.Add(1)
	if o.gate != nil {
		<-o.gate
	}
	if o.openErr != nil {
		return nil, o.openErr
	}
	d := &fakeDevice{buf: make([]int16, frames*channels)}
	for i := range d.buf {
		d.buf[i] = 8000
	}
	o.last.Store(d)
	return d, nil
}

type fakeDevice struct {
	buf    []int16
	closed atomic.Bool
}

func (d *fakeDevice) Start() error { return nil }

func (d *fakeDevice) Read() ([]int16, error) {
	time.Sleep(2 * time.Millisecond)
	return d.buf, nil
}

func (d *fakeDevice) Stop() error { return nil }

func (d *fakeDevice) Close() error {
	d.closed.Store(true)
	return nil
}

func newTestRecorder(t *testing.T, o *fakeOpener) *Recorder {
	t.Helper()
	return NewRecorder(o, t.TempDir(), logger.NewNop())
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStartStopWritesWAV(t *testing.T) {
	o := &fakeOpener{}
	r := newTestRecorder(t, o)

	started := make(chan error, 1)
	if !r.Start(func(err error) { started <- err }) {
		t.Fatal("Start returned false")
	}
	if err := <-started; err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	art := r.Stop()
	if art == nil {
		t.Fatal("Stop returned nil artifact")
	}
	if !strings.HasPrefix(filepath.Base(art.Path), "dictate_") || filepath.Ext(art.Path) != ".wav" {
		t.Errorf("artifact name = %q", art.Path)
	}
	if !o.last.Load().closed.Load() {
		t.Error("device not closed")
	}

	f, err := os.Open(art.Path)
	if err != nil {
		t.Fatalf("open artifact: %v", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("artifact is not a valid WAV file")
	}
	if dec.SampleRate != SampleRate || dec.NumChans != Channels || dec.BitDepth != BitDepth {
		t.Errorf("format = %d Hz, %d ch, %d bit; want 16000 Hz mono 16 bit",
			dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(buf.Data) == 0 {
		t.Error("artifact has no samples")
	}
	if info, _ := os.Stat(art.Path); info.Size() != art.Size {
		t.Errorf("Size = %d, file has %d", art.Size, info.Size())
	}
}

func TestStartIsIgnoredWhileActive(t *testing.T) {
	o := &fakeOpener{gate: make(chan struct{})}
	r := newTestRecorder(t, o)

	if !r.Start(nil) {
		t.Fatal("first Start returned false")
	}
	if r.Start(nil) {
		t.Error("Start while preparing should be ignored")
	}

	close(o.gate)
	waitFor(t, "recording", r.Recording)
	if r.Start(nil) {
		t.Error("Start while recording should be ignored")
	}
	if n := o.opens.Load(); n != 1 {
		t.Errorf("opens = %d, want 1", n)
	}
	r.Discard()
}

func TestPendingStopDeliversArtifactOnce(t *testing.T) {
	o := &fakeOpener{gate: make(chan struct{})}
	r := newTestRecorder(t, o)
	r.Start(nil)

	if art := r.Stop(); art != nil {
		t.Fatalf("Stop while preparing = %+v, want nil", art)
	}

	var mu sync.Mutex
	var got []*Artifact
	r.StopFunc(func(a *Artifact) {
		mu.Lock()
		got = append(got, a)
		mu.Unlock()
	})

	close(o.gate)
	waitFor(t, "pending stop", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	})
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("callback invoked %d times, want 1", len(got))
	}
	if got[0] == nil {
		t.Fatal("callback received nil, want artifact")
	}
	if _, err := os.Stat(got[0].Path); err != nil {
		t.Errorf("artifact missing: %v", err)
	}
	if r.Recording() || r.Preparing() {
		t.Error("recorder should be idle after pending stop")
	}
}

func TestPendingStopLastCallerWins(t *testing.T) {
	o := &fakeOpener{gate: make(chan struct{})}
	r := newTestRecorder(t, o)
	r.Start(nil)

	var first, second atomic.Int32
	r.StopFunc(func(*Artifact) { first.Add(1) })
	r.StopFunc(func(*Artifact) { second.Add(1) })

	close(o.gate)
	waitFor(t, "second callback", func() bool { return second.Load() == 1 })
	if first.Load() != 0 {
		t.Error("replaced callback should not be invoked")
	}
}

func TestPendingStopReceivesNilOnFailure(t *testing.T) {
	o := &fakeOpener{gate: make(chan struct{}), openErr: errors.New("no device")}
	r := newTestRecorder(t, o)

	startErr := make(chan error, 1)
	r.Start(func(err error) { startErr <- err })

	done := make(chan *Artifact, 2)
	r.StopFunc(func(a *Artifact) { done <- a })
	close(o.gate)

	if err := <-startErr; err == nil {
		t.Error("expected start error")
	}
	select {
	case a := <-done:
		if a != nil {
			t.Errorf("artifact = %+v, want nil", a)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending callback dropped")
	}
	if r.Start(nil) == false {
		t.Error("recorder should accept a new start after failure")
	}
}

func TestStopWithoutSession(t *testing.T) {
	r := newTestRecorder(t, &fakeOpener{})
	if art := r.Stop(); art != nil {
		t.Errorf("Stop = %+v, want nil", art)
	}

	called := false
	r.StopFunc(func(a *Artifact) {
		called = true
		if a != nil {
			t.Errorf("artifact = %+v, want nil", a)
		}
	})
	if !called {
		t.Error("StopFunc without a session should call back immediately")
	}
}

func TestDiscardRemovesArtifact(t *testing.T) {
	o := &fakeOpener{}
	r := newTestRecorder(t, o)
	r.Start(nil)
	waitFor(t, "recording", r.Recording)

	r.Discard()

	entries, _ := os.ReadDir(r.dir)
	if len(entries) != 0 {
		t.Errorf("temp dir has %d files after discard, want 0", len(entries))
	}
}

func TestLevelsPublishedAndReset(t *testing.T) {
	o := &fakeOpener{}
	r := newTestRecorder(t, o)
	r.Start(nil)
	waitFor(t, "recording", r.Recording)

	var level float64
	waitFor(t, "non-zero level", func() bool {
		select {
		case level = <-r.Levels():
		default:
		}
		return level > 0
	})
	// 8000/32768 full scale is about -12 dBFS.
	if level < 0.7 || level > 0.8 {
		t.Errorf("level = %v, want about 0.76", level)
	}

	r.Stop()
	select {
	case level = <-r.Levels():
	default:
		t.Fatal("no level after stop")
	}
	if level != 0 {
		t.Errorf("level after stop = %v, want 0", level)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		db, want float64
	}{
		{-80, 0},
		{FloorDB, 0},
		{-25, 0.5},
		{0, 1},
		{6, 1},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := Normalize(tt.db); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Normalize(%v) = %v, want %v", tt.db, got, tt.want)
		}
	}
}

func TestPowerDB(t *testing.T) {
	if got := PowerDB(make([]int16, 100)); got != FloorDB {
		t.Errorf("silence = %v, want floor", got)
	}
	full := []int16{32767, -32768, 32767, -32768}
	if got := PowerDB(full); got < -0.01 || got > 0.01 {
		t.Errorf("full scale = %v, want ~0 dB", got)
	}
}

func TestArtifactFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memo.m4a")
	if err := os.WriteFile(path, []byte("abcd"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	art, err := ArtifactFromFile(path)
	if err != nil {
		t.Fatalf("ArtifactFromFile: %v", err)
	}
	if art.Size != 4 {
		t.Errorf("Size = %d, want 4", art.Size)
	}
	if _, err := ArtifactFromFile(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("expected error for missing file")
	}
}
