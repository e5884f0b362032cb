// Package capture records microphone audio into WAV artifacts and publishes
// a live amplitude level while recording.
package capture

import (
	"fmt"
	"os"
	"time"
)

// Recording format of every artifact.
const (
	SampleRate    = 16000
	Channels      = 1
	BitDepth      = 16
	FramesPerRead = 512
)

// Device is an open input stream.
type Device interface {
	Start() error
	// Read blocks until a buffer of samples is available. The returned
	// slice is only valid until the next call.
	Read() ([]int16, error)
	Stop() error
	Close() error
}

// Opener opens the default input device.
type Opener interface {
	Open(sampleRate, channels, frames int) (Device, error)
}

// Permissions reports and remediates microphone access.
type Permissions interface {
	MicrophoneAuthorized() bool
	OpenSettings() error
}

// Artifact is a finalized recording.
type Artifact struct {
	Path      string
	Size      int64
	CreatedAt time.Time
}

// ArtifactFromFile describes an existing audio file, e.g. one picked for
// upload.
func ArtifactFromFile(path string) (Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Artifact{}, fmt.Errorf("%s is a directory", path)
	}
	return Artifact{Path: path, Size: info.Size(), CreatedAt: info.ModTime()}, nil
}
