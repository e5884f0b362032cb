package capture

import (
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/remberq/simple-voice-transcribe/pkg/logger"
)

// MeterInterval is the amplitude sampling period (30 Hz).
const MeterInterval = time.Second / 30

type recState int

const (
	stateIdle recState = iota
	statePreparing
	stateRecording
	stateStopping
)

// Recorder owns the single microphone session. Start opens the device
// asynchronously; a stop requested before the device is ready is queued
// and resolved once start completes.
type Recorder struct {
	opener Opener
	dir    string
	log    *logger.Logger
	levels chan float64

	mu          sync.Mutex
	state       recState
	session     *session
	pendingStop bool
	onPending   func(*Artifact)
}

type session struct {
	dev     Device
	path    string
	created time.Time

	mu      sync.Mutex
	samples []int16

	level    atomic.Uint64 // float64 bits, dBFS of the latest buffer
	stop     chan struct{}
	readDone chan struct{}
	metDone  chan struct{}
}

// NewRecorder creates a recorder writing artifacts into dir.
func NewRecorder(opener Opener, dir string, log *logger.Logger) *Recorder {
	return &Recorder{
		opener: opener,
		dir:    dir,
		log:    log.Named("capture"),
		levels: make(chan float64, 1),
	}
}

// Levels delivers normalized amplitude in [0,1] while recording, and 0
// when recording stops. Only the latest value is buffered.
func (r *Recorder) Levels() <-chan float64 {
	return r.levels
}

// Recording reports whether the device is open and capturing.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == stateRecording
}

// Preparing reports whether a start is still in flight.
func (r *Recorder) Preparing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == statePreparing
}

// Start begins opening the device. onStarted (may be nil) is called from
// the opening goroutine with the result. It returns false, doing nothing,
// when a session is already preparing or active.
func (r *Recorder) Start(onStarted func(error)) bool {
	r.mu.Lock()
	if r.state != stateIdle {
		r.mu.Unlock()
		r.log.Debug("start ignored; session already active")
		return false
	}
	r.state = statePreparing
	r.pendingStop = false
	r.onPending = nil
	r.mu.Unlock()

	go r.open(onStarted)
	return true
}

func (r *Recorder) open(onStarted func(error)) {
	s, err := r.openSession()

	r.mu.Lock()
	pending, done := r.pendingStop, r.onPending
	r.pendingStop, r.onPending = false, nil
	if err != nil {
		r.state = stateIdle
	} else {
		r.state = stateRecording
		r.session = s
		go r.read(s)
		go r.meter(s)
	}
	r.mu.Unlock()

	if err != nil {
		r.log.Error("failed to start capture", logger.Error(err))
	} else {
		r.log.Info("capture started", logger.String("path", s.path))
	}
	if onStarted != nil {
		onStarted(err)
	}

	if !pending {
		return
	}
	var art *Artifact
	if err == nil {
		art = r.Stop()
	}
	if done != nil {
		done(art)
	} else if art != nil {
		r.log.Info("pending stop finished without a receiver", logger.String("path", art.Path))
	}
}

func (r *Recorder) openSession() (*session, error) {
	dev, err := r.opener.Open(SampleRate, Channels, FramesPerRead)
	if err != nil {
		return nil, err
	}
	if err := dev.Start(); err != nil {
		dev.Close()
		return nil, err
	}
	s := &session{
		dev:      dev,
		path:     filepath.Join(r.dir, "dictate_"+uuid.NewString()+".wav"),
		created:  time.Now(),
		stop:     make(chan struct{}),
		readDone: make(chan struct{}),
		metDone:  make(chan struct{}),
	}
	s.level.Store(math.Float64bits(FloorDB))
	return s, nil
}

func (r *Recorder) read(s *session) {
	defer close(s.readDone)
	for {
		select {
		case <-s.stop:
			return
		default:
		}
		buf, err := s.dev.Read()
		if err != nil {
			r.log.Warn("capture read failed", logger.Error(err))
			select {
			case <-s.stop:
				return
			case <-time.After(10 * time.Millisecond):
			}
			continue
		}
		s.level.Store(math.Float64bits(PowerDB(buf)))
		s.mu.Lock()
		s.samples = append(s.samples, buf...)
		s.mu.Unlock()
	}
}

func (r *Recorder) meter(s *session) {
	defer close(s.metDone)
	ticker := time.NewTicker(MeterInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			r.publish(Normalize(math.Float64frombits(s.level.Load())))
		}
	}
}

func (r *Recorder) publish(level float64) {
	select {
	case <-r.levels:
	default:
	}
	select {
	case r.levels <- level:
	default:
	}
}

// Stop finalizes the active recording and returns its artifact. While the
// device is still opening it queues a stop and returns nil; with no
// session it returns nil.
func (r *Recorder) Stop() *Artifact {
	r.mu.Lock()
	switch r.state {
	case statePreparing:
		r.pendingStop = true
		r.mu.Unlock()
		return nil
	case stateRecording:
	default:
		r.mu.Unlock()
		return nil
	}
	s := r.session
	r.session = nil
	r.state = stateStopping
	r.mu.Unlock()

	art := r.finish(s)

	r.mu.Lock()
	r.state = stateIdle
	r.mu.Unlock()
	return art
}

// StopFunc stops and hands the artifact (nil on failure) to done. If the
// device is still opening, done is queued and called once start completes.
// Only one queued callback is kept; a later call replaces an earlier one.
func (r *Recorder) StopFunc(done func(*Artifact)) {
	r.mu.Lock()
	if r.state == statePreparing {
		if r.onPending != nil {
			r.log.Warn("replacing queued stop callback")
		}
		r.pendingStop = true
		r.onPending = done
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	done(r.Stop())
}

// Discard stops the recording and deletes its artifact. A recording that is
// still starting is discarded as soon as it opens.
func (r *Recorder) Discard() {
	r.mu.Lock()
	if r.state == statePreparing {
		r.pendingStop = true
		r.onPending = removeArtifact
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	removeArtifact(r.Stop())
}

func removeArtifact(art *Artifact) {
	if art != nil {
		os.Remove(art.Path)
	}
}

func (r *Recorder) finish(s *session) *Artifact {
	close(s.stop)
	<-s.readDone
	<-s.metDone
	r.publish(0)

	if err := s.dev.Stop(); err != nil {
		r.log.Warn("failed to stop device", logger.Error(err))
	}
	if err := s.dev.Close(); err != nil {
		r.log.Warn("failed to close device", logger.Error(err))
	}

	s.mu.Lock()
	samples := s.samples
	s.mu.Unlock()

	if err := writeWAV(s.path, samples); err != nil {
		r.log.Error("failed to write artifact", logger.Error(err))
		os.Remove(s.path)
		return nil
	}
	info, err := os.Stat(s.path)
	if err != nil {
		r.log.Error("artifact missing after write", logger.Error(err))
		return nil
	}

	r.log.Info("capture stopped",
		logger.String("path", s.path),
		logger.Int64("bytes", info.Size()),
		logger.Duration("duration", time.Since(s.created)))
	return &Artifact{Path: s.path, Size: info.Size(), CreatedAt: s.created}
}
