package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/remberq/simple-voice-transcribe/pkg/logger"
)

// MaxJobs is the retention bound of the history.
const MaxJobs = 10

// HistoryKey is the kv key the history is stored under.
const HistoryKey = "transcriptionHistory"

// InterruptedMessage is recorded on jobs found unfinished at load time.
const InterruptedMessage = "Interrupted by application shutdown."

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrJobActive         = errors.New("job is still in flight")
)

// KV is the persistence backend. db.Store satisfies it.
type KV interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
}

// Ledger owns the job sequence. All methods are safe for concurrent use;
// mutations are serialized and readers receive copies.
type Ledger struct {
	mu       sync.Mutex
	jobs     []Job // newest first
	tokens   map[string]*Token
	copiedID string
	subs     map[int]chan []Job
	nextSub  int

	kv  KV
	log *logger.Logger
	now func() time.Time
}

// New returns an empty ledger backed by kv. Call Load to restore history.
func New(kv KV, log *logger.Logger) *Ledger {
	return &Ledger{
		tokens: make(map[string]*Token),
		subs:   make(map[int]chan []Job),
		kv:     kv,
		log:    log.Named("ledger"),
		now:    time.Now,
	}
}

// Load restores persisted history. Undecodable records are skipped and
// unfinished jobs are marked failed. Storage errors leave the history empty.
func (l *Ledger) Load() {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := l.kv.Get(HistoryKey)
	if err != nil {
		l.log.Warn("failed to read history", logger.Error(err))
		return
	}
	if len(data) == 0 {
		return
	}

	jobs, interrupted, err := decodeHistory(data)
	if err != nil {
		l.log.Warn("history is not a list; starting empty", logger.Error(err))
		return
	}
	for _, i := range interrupted {
		l.log.Warn("job interrupted by shutdown", logger.String("job_id", jobs[i].ID))
	}
	l.jobs = jobs

	l.log.Info("history loaded", logger.Int("jobs", len(jobs)), logger.Int("interrupted", len(interrupted)))
	if len(interrupted) > 0 || !bytes.Equal(data, l.encodedLocked()) {
		l.persistLocked()
	}
}

// ReadHistory decodes the persisted history without modifying it, for
// read-only consumers. Unfinished jobs are reported as interrupted.
func ReadHistory(kv KV) ([]Job, error) {
	data, err := kv.Get(HistoryKey)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	jobs, _, err := decodeHistory(data)
	return jobs, err
}

// decodeHistory parses a stored history, skipping unreadable records and
// failing unfinished ones. It returns the indexes of the interrupted jobs.
func decodeHistory(data []byte) ([]Job, []int, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, err
	}

	jobs := make([]Job, 0, len(raw))
	var interrupted []int
	for _, r := range raw {
		var job Job
		if err := json.Unmarshal(r, &job); err != nil || job.ID == "" || !job.Status.valid() {
			continue
		}
		if !job.Status.Terminal() {
			job.Status = StatusFailed
			job.ErrorMessage = String(InterruptedMessage)
			interrupted = append(interrupted, len(jobs))
		}
		jobs = append(jobs, job)
		if len(jobs) == MaxJobs {
			break
		}
	}
	return jobs, interrupted, nil
}

// AddJob inserts a new uploading job at the head and evicts beyond MaxJobs.
func (l *Ledger) AddJob(meta Meta, providerName string) Job {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := meta.ID
	if id == "" {
		id = uuid.NewString()
	}
	job := Job{
		ID:           id,
		CreatedAt:    l.now(),
		FileSize:     meta.Size,
		FileFormat:   FormatTag(meta.Path),
		ProviderName: providerName,
		Status:       StatusUploading,
		ArtifactPath: meta.Path,
	}
	l.jobs = append([]Job{job}, l.jobs...)

	for len(l.jobs) > MaxJobs {
		evicted := l.jobs[len(l.jobs)-1]
		if tok, ok := l.tokens[evicted.ID]; ok {
			tok.fire()
			delete(l.tokens, evicted.ID)
			l.log.Info("cancelled evicted job", logger.String("job_id", evicted.ID))
		}
		if l.copiedID == evicted.ID {
			l.copiedID = ""
		}
		l.jobs = l.jobs[:len(l.jobs)-1]
	}

	l.changedLocked()
	return job
}

// UpdateJob applies a partial update. Status changes must move forward;
// terminal jobs only change through ResetJob. Reaching a terminal status
// deregisters the job's token.
func (l *Ledger) UpdateJob(id string, u Update) (Job, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(id)
	if i < 0 {
		return Job{}, ErrJobNotFound
	}
	job := &l.jobs[i]

	if u.Status != "" {
		if !canAdvance(job.Status, u.Status) {
			return *job, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, u.Status)
		}
		job.Status = u.Status
	}
	if u.ResultText != nil {
		job.ResultText = String(*u.ResultText)
	}
	if u.ErrorMessage != nil {
		job.ErrorMessage = String(*u.ErrorMessage)
	}
	if job.Status.Terminal() {
		l.releaseLocked(id)
	}

	out := *job
	l.changedLocked()
	return out, nil
}

// UpdateProgress stores fraction clamped to [0,1]. Updates to finished jobs
// are dropped.
func (l *Ledger) UpdateProgress(id string, fraction float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(id)
	if i < 0 {
		return ErrJobNotFound
	}
	if l.jobs[i].Status.Terminal() {
		return nil
	}
	l.jobs[i].UploadProgress = clamp(fraction)
	l.changedLocked()
	return nil
}

// ResetJob returns a finished job to uploading with no result, for retry.
func (l *Ledger) ResetJob(id string) (Job, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(id)
	if i < 0 {
		return Job{}, ErrJobNotFound
	}
	job := &l.jobs[i]
	if !job.Status.Terminal() {
		return *job, ErrJobActive
	}
	job.Status = StatusUploading
	job.UploadProgress = 0
	job.ResultText = nil
	job.ErrorMessage = nil

	out := *job
	l.changedLocked()
	return out, nil
}

// CancelJob fires the job's token and marks it cancelled. Cancelling a
// finished job is a no-op.
func (l *Ledger) CancelJob(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(id)
	if i < 0 {
		return ErrJobNotFound
	}
	l.cancelLocked(id)
	if l.jobs[i].Status.Terminal() {
		return nil
	}
	l.jobs[i].Status = StatusCancelled
	l.changedLocked()
	return nil
}

// DeleteJob cancels any in-flight work and removes the job. Deleting an
// unknown id is a no-op.
func (l *Ledger) DeleteJob(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cancelLocked(id)
	i := l.indexLocked(id)
	if i < 0 {
		return
	}
	l.jobs = append(l.jobs[:i], l.jobs[i+1:]...)
	if l.copiedID == id {
		l.copiedID = ""
	}
	l.changedLocked()
}

// ClearHistory cancels all in-flight work and empties the ledger.
func (l *Ledger) ClearHistory() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id := range l.tokens {
		l.cancelLocked(id)
	}
	l.jobs = nil
	l.copiedID = ""
	l.changedLocked()
}

// Track registers a cancellation token for the job's in-flight work. The
// token's context derives from ctx. A previous token for the job is fired.
func (l *Ledger) Track(ctx context.Context, id string) (*Token, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(id)
	if i < 0 {
		return nil, ErrJobNotFound
	}
	if l.jobs[i].Status.Terminal() {
		return nil, fmt.Errorf("%w: job is %s", ErrInvalidTransition, l.jobs[i].Status)
	}
	l.cancelLocked(id)
	tok := newToken(ctx)
	l.tokens[id] = tok
	return tok, nil
}

// Tracked reports whether the job has registered in-flight work.
func (l *Ledger) Tracked(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.tokens[id]
	return ok
}

// Jobs returns a snapshot, newest first.
func (l *Ledger) Jobs() []Job {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// Job returns a copy of one job.
func (l *Ledger) Job(id string) (Job, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(id)
	if i < 0 {
		return Job{}, false
	}
	return l.jobs[i], true
}

// ActiveCount returns the number of unfinished jobs.
func (l *Ledger) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, j := range l.jobs {
		if !j.Status.Terminal() {
			n++
		}
	}
	return n
}

// MarkCopied records the job whose result was last copied by the user.
func (l *Ledger) MarkCopied(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.indexLocked(id) < 0 {
		return ErrJobNotFound
	}
	l.copiedID = id
	l.notifyLocked()
	return nil
}

// CopiedJobID returns the id recorded by MarkCopied, or "".
func (l *Ledger) CopiedJobID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.copiedID
}

// Subscribe returns a channel receiving the latest snapshot after each
// change. Slow readers only see the newest snapshot. Call the returned
// func to unsubscribe.
func (l *Ledger) Subscribe() (<-chan []Job, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextSub
	l.nextSub++
	ch := make(chan []Job, 1)
	l.subs[id] = ch

	return ch, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if c, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(c)
		}
	}
}

func (l *Ledger) indexLocked(id string) int {
	for i := range l.jobs {
		if l.jobs[i].ID == id {
			return i
		}
	}
	return -1
}

func (l *Ledger) cancelLocked(id string) {
	if tok, ok := l.tokens[id]; ok {
		tok.fire()
		delete(l.tokens, id)
	}
}

func (l *Ledger) releaseLocked(id string) {
	if tok, ok := l.tokens[id]; ok {
		tok.release()
		delete(l.tokens, id)
	}
}

func (l *Ledger) snapshotLocked() []Job {
	out := make([]Job, len(l.jobs))
	copy(out, l.jobs)
	return out
}

func (l *Ledger) changedLocked() {
	l.persistLocked()
	l.notifyLocked()
}

func (l *Ledger) encodedLocked() []byte {
	jobs := l.jobs
	if jobs == nil {
		jobs = []Job{}
	}
	data, err := json.Marshal(jobs)
	if err != nil {
		l.log.Error("failed to encode history", logger.Error(err))
		return nil
	}
	return data
}

func (l *Ledger) persistLocked() {
	data := l.encodedLocked()
	if data == nil {
		return
	}
	if err := l.kv.Put(HistoryKey, data); err != nil {
		l.log.Error("failed to persist history", logger.Error(err))
	}
}

func (l *Ledger) notifyLocked() {
	if len(l.subs) == 0 {
		return
	}
	snap := l.snapshotLocked()
	for _, ch := range l.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func clamp(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
