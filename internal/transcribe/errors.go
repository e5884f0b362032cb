package transcribe

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrMissingCredential  = errors.New("missing credential")
	ErrEmptyArtifact      = errors.New("empty or unreadable audio artifact")
	ErrNetwork            = errors.New("network failure")
	ErrUnparsableResponse = errors.New("unparsable transcription response")
)

// RemoteError is an HTTP-level failure reported by a provider.
type RemoteError struct {
	StatusCode int
	Detail     string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error (HTTP %d): %s", e.StatusCode, e.Detail)
}

// Describe turns a transcription failure into the message stored on the job.
func Describe(err error) string {
	var remote *RemoteError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredential):
		return "API key is missing or invalid. Set it with: dictate key set <provider-id>"
	case errors.Is(err, ErrEmptyArtifact):
		return "Audio file is empty or could not be read."
	case errors.Is(err, ErrNetwork):
		return "Network error. Check your internet connection."
	case errors.Is(err, ErrUnparsableResponse):
		return "Could not parse transcription from API response."
	case errors.As(err, &remote):
		return "API error: " + remote.Detail
	case errors.Is(err, context.Canceled):
		return "Cancelled."
	default:
		return err.Error()
	}
}
