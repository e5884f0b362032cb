package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/remberq/simple-voice-transcribe/pkg/logger"
)

type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
	puts int
}

func newMemKV() *memKV { return &memKV{data: make(map[string][]byte)} }

func (m *memKV) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memKV) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	m.puts++
	return nil
}

func newTestLedger(t *testing.T) (*Ledger, *memKV) {
	t.Helper()
	kv := newMemKV()
	return New(kv, logger.NewNop()), kv
}

func fakeMeta() Meta {
	return Meta{Path: "/tmp/fake_test.m4a", Size: 1024}
}

func TestAddJob(t *testing.T) {
	l, _ := newTestLedger(t)

	job := l.AddJob(fakeMeta(), "openai")
	if job.Status != StatusUploading {
		t.Errorf("status = %q, want %q", job.Status, StatusUploading)
	}
	if job.FileFormat != "M4A" {
		t.Errorf("fileFormat = %q, want %q", job.FileFormat, "M4A")
	}
	if job.UploadProgress != 0 {
		t.Errorf("progress = %v, want 0", job.UploadProgress)
	}

	jobs := l.Jobs()
	if len(jobs) != 1 || jobs[0].ID != job.ID {
		t.Fatalf("jobs = %+v, want the new job", jobs)
	}
	if l.ActiveCount() != 1 {
		t.Errorf("ActiveCount = %d, want 1", l.ActiveCount())
	}
}

func TestFormatTag(t *testing.T) {
	tests := map[string]string{
		"/tmp/a.wav":  "WAV",
		"/tmp/b.Flac": "FLAC",
		"/tmp/noext":  "AUDIO",
	}
	for path, want := range tests {
		if got := FormatTag(path); got != want {
			t.Errorf("FormatTag(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestUpdateProgressClamps(t *testing.T) {
	l, _ := newTestLedger(t)
	job := l.AddJob(fakeMeta(), "openai")

	for _, tt := range []struct{ in, want float64 }{
		{0.55, 0.55},
		{1.5, 1.0},
		{-0.5, 0.0},
	} {
		if err := l.UpdateProgress(job.ID, tt.in); err != nil {
			t.Fatalf("UpdateProgress: %v", err)
		}
		got, _ := l.Job(job.ID)
		if got.UploadProgress != tt.want {
			t.Errorf("progress after %v = %v, want %v", tt.in, got.UploadProgress, tt.want)
		}
	}
}

func TestUpdateJobStatusAndResult(t *testing.T) {
	l, _ := newTestLedger(t)
	job := l.AddJob(fakeMeta(), "openai")

	if _, err := l.UpdateJob(job.ID, Update{Status: StatusProcessing}); err != nil {
		t.Fatalf("UpdateJob processing: %v", err)
	}
	if l.ActiveCount() != 1 {
		t.Errorf("ActiveCount = %d, want 1", l.ActiveCount())
	}

	got, err := l.UpdateJob(job.ID, Update{Status: StatusCompleted, ResultText: String("Test transcription successful")})
	if err != nil {
		t.Fatalf("UpdateJob completed: %v", err)
	}
	if got.Result() != "Test transcription successful" {
		t.Errorf("result = %q", got.Result())
	}
	if got.ErrorMessage != nil {
		t.Errorf("errorMessage = %q, want nil", got.Error())
	}
	if l.ActiveCount() != 0 {
		t.Errorf("ActiveCount = %d, want 0", l.ActiveCount())
	}
}

func TestTerminalStatusIsFinal(t *testing.T) {
	l, _ := newTestLedger(t)
	job := l.AddJob(fakeMeta(), "openai")
	if _, err := l.UpdateJob(job.ID, Update{Status: StatusCompleted, ResultText: String("done")}); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}

	for _, next := range []Status{StatusUploading, StatusProcessing, StatusFailed, StatusCancelled, StatusCompleted} {
		_, err := l.UpdateJob(job.ID, Update{Status: next})
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("completed -> %s: err = %v, want ErrInvalidTransition", next, err)
		}
	}
	got, _ := l.Job(job.ID)
	if got.Status != StatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
}

func TestBackwardTransitionRejected(t *testing.T) {
	l, _ := newTestLedger(t)
	job := l.AddJob(fakeMeta(), "openai")
	l.UpdateJob(job.ID, Update{Status: StatusProcessing})

	if _, err := l.UpdateJob(job.ID, Update{Status: StatusUploading}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestResetJob(t *testing.T) {
	l, _ := newTestLedger(t)
	job := l.AddJob(fakeMeta(), "openai")

	if _, err := l.ResetJob(job.ID); !errors.Is(err, ErrJobActive) {
		t.Errorf("reset active job: err = %v, want ErrJobActive", err)
	}

	l.UpdateProgress(job.ID, 0.7)
	l.UpdateJob(job.ID, Update{Status: StatusFailed, ResultText: String("Partial"), ErrorMessage: String("Error")})

	reset, err := l.ResetJob(job.ID)
	if err != nil {
		t.Fatalf("ResetJob: %v", err)
	}
	if reset.Status != StatusUploading {
		t.Errorf("status = %q, want uploading", reset.Status)
	}
	if reset.UploadProgress != 0 {
		t.Errorf("progress = %v, want 0", reset.UploadProgress)
	}
	if reset.ResultText != nil || reset.ErrorMessage != nil {
		t.Errorf("result/error not cleared: %+v", reset)
	}
}

func TestCancelJobIsIdempotent(t *testing.T) {
	l, _ := newTestLedger(t)
	job := l.AddJob(fakeMeta(), "openai")

	tok, err := l.Track(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Track: %v", err)
	}

	if err := l.CancelJob(job.ID); err != nil {
		t.Fatalf("CancelJob: %v", err)
	}
	if !tok.Cancelled() {
		t.Error("token not cancelled")
	}
	if tok.Context().Err() == nil {
		t.Error("token context not cancelled")
	}
	if l.Tracked(job.ID) {
		t.Error("token still registered after cancel")
	}

	if err := l.CancelJob(job.ID); err != nil {
		t.Fatalf("second CancelJob: %v", err)
	}
	got, _ := l.Job(job.ID)
	if got.Status != StatusCancelled {
		t.Errorf("status = %q, want cancelled", got.Status)
	}
}

func TestCancelCompletedJobIsNoop(t *testing.T) {
	l, _ := newTestLedger(t)
	job := l.AddJob(fakeMeta(), "openai")
	l.UpdateJob(job.ID, Update{Status: StatusCompleted, ResultText: String("hi")})

	if err := l.CancelJob(job.ID); err != nil {
		t.Fatalf("CancelJob: %v", err)
	}
	got, _ := l.Job(job.ID)
	if got.Status != StatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
}

func TestTerminalUpdateReleasesToken(t *testing.T) {
	l, _ := newTestLedger(t)
	job := l.AddJob(fakeMeta(), "openai")
	tok, _ := l.Track(context.Background(), job.ID)

	l.UpdateJob(job.ID, Update{Status: StatusFailed, ErrorMessage: String("boom")})

	if l.Tracked(job.ID) {
		t.Error("token still registered after terminal update")
	}
	if tok.Cancelled() {
		t.Error("terminal update should not mark the work cancelled")
	}
	if _, err := l.Track(context.Background(), job.ID); err == nil {
		t.Error("Track on a failed job should fail")
	}
}

func TestDeleteJobCancelsWork(t *testing.T) {
	l, _ := newTestLedger(t)
	job := l.AddJob(fakeMeta(), "openai")
	tok, _ := l.Track(context.Background(), job.ID)
	l.MarkCopied(job.ID)

	l.DeleteJob(job.ID)

	if _, ok := l.Job(job.ID); ok {
		t.Error("job still present after delete")
	}
	if !tok.Cancelled() {
		t.Error("in-flight work not cancelled")
	}
	if l.CopiedJobID() != "" {
		t.Errorf("CopiedJobID = %q, want empty", l.CopiedJobID())
	}

	// Unknown ids are ignored.
	l.DeleteJob(job.ID)
}

func TestClearHistory(t *testing.T) {
	l, _ := newTestLedger(t)
	a := l.AddJob(fakeMeta(), "openai")
	l.AddJob(fakeMeta(), "openai")
	l.AddJob(fakeMeta(), "gemini")
	tok, _ := l.Track(context.Background(), a.ID)

	l.ClearHistory()

	if n := len(l.Jobs()); n != 0 {
		t.Errorf("got %d jobs, want 0", n)
	}
	if !tok.Cancelled() {
		t.Error("in-flight work not cancelled")
	}
}

func TestMaxJobLimit(t *testing.T) {
	l, _ := newTestLedger(t)

	var first Job
	var firstTok *Token
	for i := 0; i < 12; i++ {
		job := l.AddJob(fakeMeta(), fmt.Sprintf("provider-%d", i))
		if i == 0 {
			first = job
			firstTok, _ = l.Track(context.Background(), job.ID)
		}
	}

	jobs := l.Jobs()
	if len(jobs) != MaxJobs {
		t.Fatalf("got %d jobs, want %d", len(jobs), MaxJobs)
	}
	if jobs[0].ProviderName != "provider-11" {
		t.Errorf("head = %q, want provider-11", jobs[0].ProviderName)
	}
	if jobs[len(jobs)-1].ProviderName != "provider-2" {
		t.Errorf("tail = %q, want provider-2", jobs[len(jobs)-1].ProviderName)
	}
	if !firstTok.Cancelled() {
		t.Error("evicted job's work was not cancelled")
	}
	if l.Tracked(first.ID) {
		t.Error("evicted job still tracked")
	}
}

func TestPersistsEveryMutation(t *testing.T) {
	l, kv := newTestLedger(t)
	job := l.AddJob(fakeMeta(), "openai")
	l.UpdateProgress(job.ID, 0.5)
	l.UpdateJob(job.ID, Update{Status: StatusProcessing})

	if kv.puts != 3 {
		t.Errorf("puts = %d, want 3", kv.puts)
	}

	var stored []Job
	if err := json.Unmarshal(kv.data[HistoryKey], &stored); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(stored) != 1 || stored[0].Status != StatusProcessing || stored[0].UploadProgress != 0.5 {
		t.Errorf("stored = %+v", stored)
	}
}

func TestLoadReclassifiesInterruptedJobs(t *testing.T) {
	kv := newMemKV()
	now := time.Now()
	kv.data[HistoryKey] = mustJSON(t, []any{
		Job{ID: "a", CreatedAt: now, Status: StatusUploading, ProviderName: "openai"},
		Job{ID: "b", CreatedAt: now, Status: StatusProcessing, ProviderName: "openai"},
		map[string]any{"id": 42},
		Job{ID: "c", CreatedAt: now, Status: StatusCompleted, ResultText: String("done")},
	})

	l := New(kv, logger.NewNop())
	l.Load()

	jobs := l.Jobs()
	if len(jobs) != 3 {
		t.Fatalf("got %d jobs, want 3 (bad record skipped)", len(jobs))
	}
	for _, j := range jobs[:2] {
		if j.Status != StatusFailed {
			t.Errorf("job %s status = %q, want failed", j.ID, j.Status)
		}
		if j.Error() != InterruptedMessage {
			t.Errorf("job %s error = %q, want %q", j.ID, j.Error(), InterruptedMessage)
		}
	}
	if jobs[2].Status != StatusCompleted || jobs[2].Result() != "done" {
		t.Errorf("completed job changed: %+v", jobs[2])
	}

	// The reclassification is written back.
	reloaded := New(kv, logger.NewNop())
	reloaded.Load()
	if got, _ := reloaded.Job("a"); got.Status != StatusFailed {
		t.Errorf("reloaded status = %q, want failed", got.Status)
	}
}

func TestReadHistoryLeavesStoreUntouched(t *testing.T) {
	kv := newMemKV()
	kv.data[HistoryKey] = mustJSON(t, []Job{
		{ID: "a", Status: StatusProcessing},
		{ID: "b", Status: StatusCompleted, ResultText: String("hi")},
	})

	jobs, err := ReadHistory(kv)
	if err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	if len(jobs) != 2 || jobs[0].Status != StatusFailed || jobs[1].Result() != "hi" {
		t.Errorf("jobs = %+v", jobs)
	}
	if kv.puts != 0 {
		t.Errorf("puts = %d, want 0", kv.puts)
	}

	empty, err := ReadHistory(newMemKV())
	if err != nil || len(empty) != 0 {
		t.Errorf("empty store: %v, %v", empty, err)
	}
}

func TestLoadCorruptHistoryStartsEmpty(t *testing.T) {
	kv := newMemKV()
	kv.data[HistoryKey] = []byte(`{"not":"a list"}`)

	l := New(kv, logger.NewNop())
	l.Load()

	if n := len(l.Jobs()); n != 0 {
		t.Errorf("got %d jobs, want 0", n)
	}
}

func TestSubscribeReceivesLatestSnapshot(t *testing.T) {
	l, _ := newTestLedger(t)
	ch, unsubscribe := l.Subscribe()

	job := l.AddJob(fakeMeta(), "openai")
	l.UpdateProgress(job.ID, 0.25)

	select {
	case snap := <-ch:
		if len(snap) != 1 || snap[0].UploadProgress != 0.25 {
			t.Errorf("snapshot = %+v, want progress 0.25", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot received")
	}

	unsubscribe()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
}

func TestCopiedJobID(t *testing.T) {
	l, _ := newTestLedger(t)
	job := l.AddJob(fakeMeta(), "openai")

	if err := l.MarkCopied("missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}
	if err := l.MarkCopied(job.ID); err != nil {
		t.Fatalf("MarkCopied: %v", err)
	}
	if l.CopiedJobID() != job.ID {
		t.Errorf("CopiedJobID = %q, want %q", l.CopiedJobID(), job.ID)
	}
}

func TestConcurrentMutations(t *testing.T) {
	l, _ := newTestLedger(t)
	job := l.AddJob(fakeMeta(), "openai")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			l.UpdateProgress(job.ID, float64(i)/50)
		}(i)
		go func() {
			defer wg.Done()
			_ = l.Jobs()
		}()
	}
	wg.Wait()

	got, _ := l.Job(job.ID)
	if got.UploadProgress < 0 || got.UploadProgress > 1 {
		t.Errorf("progress = %v, out of range", got.UploadProgress)
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}
