package transcribe

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxUploadSize is the largest file accepted for upload (25 MB).
const MaxUploadSize int64 = 25 * 1024 * 1024

// AllowedExtensions lists the audio types accepted for upload.
var AllowedExtensions = []string{"wav", "mp3", "m4a", "mp4", "webm", "mpga", "mpeg", "ogg", "flac"}

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrFileTooLarge      = errors.New("file too large")
)

// ValidateUpload checks a user-supplied audio file before it is dispatched.
func ValidateUpload(path string) error {
	ext := extOf(path)
	supported := false
	for _, a := range AllowedExtensions {
		if ext == a {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("%w: %q (allowed: %s)", ErrUnsupportedFormat, ext, strings.Join(AllowedExtensions, ", "))
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmptyArtifact, err)
	}
	if info.Size() == 0 {
		return ErrEmptyArtifact
	}
	if info.Size() > MaxUploadSize {
		return fmt.Errorf("%w (%.1f MB); the limit is 25 MB", ErrFileTooLarge, float64(info.Size())/(1024*1024))
	}
	return nil
}

// MIMEType returns the content type for an audio file path.
func MIMEType(path string) string {
	switch extOf(path) {
	case "mp3", "mpga":
		return "audio/mpeg"
	case "m4a", "mp4", "mpeg":
		return "audio/mp4"
	case "wav":
		return "audio/wav"
	case "webm":
		return "audio/webm"
	case "ogg":
		return "audio/ogg"
	case "flac":
		return "audio/flac"
	default:
		return "application/octet-stream"
	}
}

// AudioFormat returns the input_audio.format value for chat-completion
// endpoints.
func AudioFormat(path string) string {
	switch ext := extOf(path); ext {
	case "mp3", "mpga":
		return "mp3"
	case "mp4", "mpeg":
		return "mp4"
	case "m4a", "webm", "ogg", "flac", "wav":
		return ext
	default:
		return "wav"
	}
}

func extOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
