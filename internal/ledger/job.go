// Package ledger keeps the bounded, persisted history of transcription jobs
// and the cancellation tokens of their in-flight work.
package ledger

import (
	"path/filepath"
	"strings"
	"time"
)

// Status is the lifecycle stage of a job.
type Status string

const (
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further automatic transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

func (s Status) valid() bool {
	switch s {
	case StatusUploading, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

func (s Status) rank() int {
	switch s {
	case StatusUploading:
		return 0
	case StatusProcessing:
		return 1
	default:
		return 2
	}
}

// canAdvance reports whether from -> to is a forward transition.
func canAdvance(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	return to.rank() >= from.rank()
}

// Job is one transcription attempt.
type Job struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"createdAt"`
	FileSize       int64     `json:"fileSize"`
	FileFormat     string    `json:"fileFormat"`
	ProviderName   string    `json:"providerName"`
	Status         Status    `json:"status"`
	ResultText     *string   `json:"resultText,omitempty"`
	ErrorMessage   *string   `json:"errorMessage,omitempty"`
	UploadProgress float64   `json:"uploadProgress"`
	ArtifactPath   string    `json:"artifactPath,omitempty"`
}

// Result returns the result text or "".
func (j Job) Result() string {
	if j.ResultText == nil {
		return ""
	}
	return *j.ResultText
}

// Error returns the error message or "".
func (j Job) Error() string {
	if j.ErrorMessage == nil {
		return ""
	}
	return *j.ErrorMessage
}

// Meta describes the artifact a job is created for.
type Meta struct {
	ID   string // optional; generated when empty
	Path string
	Size int64
}

// FormatTag returns the upper-case extension of path, or "AUDIO".
func FormatTag(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "AUDIO"
	}
	return strings.ToUpper(ext)
}

// Update is a partial job update. A zero Status and nil pointers leave the
// corresponding fields unchanged.
type Update struct {
	Status       Status
	ResultText   *string
	ErrorMessage *string
}

// String returns a pointer to s, for building updates.
func String(s string) *string { return &s }
