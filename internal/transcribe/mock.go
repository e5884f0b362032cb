package transcribe

import (
	"context"
	"fmt"
	"os"
	"time"
)

// MockText is the result returned by the mock provider.
const MockText = "This is a mocked transcription result."

// Mock waits a fixed delay and returns MockText. It only checks that the
// artifact exists.
type Mock struct {
	Delay time.Duration
	Text  string
}

// NewMock returns a mock provider with the given delay.
func NewMock(delay time.Duration) *Mock {
	return &Mock{Delay: delay, Text: MockText}
}

func (m *Mock) Name() string { return "Mock" }

func (m *Mock) Transcribe(ctx context.Context, artifactPath string, onProgress ProgressFunc) (string, error) {
	report(onProgress, 1)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(m.Delay):
	}

	if _, err := os.Stat(artifactPath); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEmptyArtifact, err)
	}
	return finishText(m.Text)
}
