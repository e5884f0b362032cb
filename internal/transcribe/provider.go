// Package transcribe turns audio artifacts into text through pluggable
// speech-to-text providers.
package transcribe

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// wavHeaderSize is the size of a canonical WAV header; a WAV file no larger
// than this holds no audio.
const wavHeaderSize = 44

// ProgressFunc receives upload progress in [0,1]. It may be called from any
// goroutine and out of order.
type ProgressFunc func(fraction float64)

// Provider transcribes one artifact per call.
type Provider interface {
	// Name is shown in job history.
	Name() string
	Transcribe(ctx context.Context, artifactPath string, onProgress ProgressFunc) (string, error)
}

// readArtifact loads the artifact, failing with ErrEmptyArtifact when it is
// missing, unreadable or holds no audio.
func readArtifact(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptyArtifact, err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyArtifact
	}
	if strings.EqualFold(filepath.Ext(path), ".wav") && len(data) <= wavHeaderSize {
		return nil, ErrEmptyArtifact
	}
	return data, nil
}

// checkKey rejects absent or obviously truncated API keys.
func checkKey(key string) error {
	if len(strings.TrimSpace(key)) <= 5 {
		return ErrMissingCredential
	}
	return nil
}

// finishText trims the provider output and rejects empty results.
func finishText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrUnparsableResponse
	}
	return trimmed, nil
}

// progressReader reports the fraction of its content read so far.
type progressReader struct {
	r          io.Reader
	total      int64
	onProgress ProgressFunc

	mu   sync.Mutex
	read int64

	name        string
	contentType string
}

func newProgressReader(r io.Reader, total int64, onProgress ProgressFunc) *progressReader {
	return &progressReader{r: r, total: total, onProgress: onProgress}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.onProgress != nil && p.total > 0 {
		p.mu.Lock()
		p.read += int64(n)
		frac := float64(p.read) / float64(p.total)
		p.mu.Unlock()
		p.onProgress(frac)
	}
	return n, err
}

// Filename and ContentType let multipart encoders name the file part.
func (p *progressReader) Filename() string    { return p.name }
func (p *progressReader) ContentType() string { return p.contentType }

func report(onProgress ProgressFunc, fraction float64) {
	if onProgress != nil {
		onProgress(fraction)
	}
}
