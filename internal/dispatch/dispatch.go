// Package dispatch runs transcription jobs in the background: it records
// them in the ledger, calls the provider, honours cancellation and delivers
// the result back to the user's focus.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/remberq/simple-voice-transcribe/internal/capture"
	"github.com/remberq/simple-voice-transcribe/internal/ledger"
	"github.com/remberq/simple-voice-transcribe/internal/notify"
	"github.com/remberq/simple-voice-transcribe/internal/transcribe"
	"github.com/remberq/simple-voice-transcribe/pkg/logger"
)

// Source supplies the provider for each new job.
type Source interface {
	ActiveName() string
	Active() transcribe.Provider
}

// Delivery hands finished text to the user and returns a toast message.
type Delivery interface {
	HandleTranscription(text string) string
}

// Result is the outcome of one job, sent once on the channel returned by
// Start, Upload or Retry.
type Result struct {
	JobID     string
	Text      string
	Toast     string
	Err       error
	Cancelled bool
}

// Options tune the dispatcher.
type Options struct {
	// SimulatedDelay, when positive, sleeps before the upload and again
	// before processing.
	SimulatedDelay time.Duration
}

// Dispatcher starts transcription jobs.
type Dispatcher struct {
	ctx      context.Context
	ledger   *ledger.Ledger
	source   Source
	delivery Delivery
	notifier notify.Notifier
	opts     Options
	log      *logger.Logger

	wg sync.WaitGroup
}

// New returns a dispatcher. Jobs inherit ctx; cancelling it interrupts
// every job without marking it cancelled by the user.
func New(ctx context.Context, l *ledger.Ledger, source Source, delivery Delivery, notifier notify.Notifier, opts Options, log *logger.Logger) *Dispatcher {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Dispatcher{
		ctx:      ctx,
		ledger:   l,
		source:   source,
		delivery: delivery,
		notifier: notifier,
		opts:     opts,
		log:      log.Named("dispatch"),
	}
}

// Start records a new job for the artifact and transcribes it in the
// background.
func (d *Dispatcher) Start(art capture.Artifact) (ledger.Job, <-chan Result) {
	job := d.ledger.AddJob(ledger.Meta{Path: art.Path, Size: art.Size}, d.source.ActiveName())
	d.log.Info("job dispatched",
		logger.String("job_id", job.ID),
		logger.String("provider", job.ProviderName),
		logger.Int64("size", art.Size))
	return job, d.launch(job)
}

// Upload validates a user-supplied audio file and dispatches it.
func (d *Dispatcher) Upload(path string) (ledger.Job, <-chan Result, error) {
	if err := transcribe.ValidateUpload(path); err != nil {
		return ledger.Job{}, nil, err
	}
	art, err := capture.ArtifactFromFile(path)
	if err != nil {
		return ledger.Job{}, nil, err
	}
	job, results := d.Start(art)
	return job, results, nil
}

// Retry resets a finished job and transcribes its artifact again.
func (d *Dispatcher) Retry(id string) (ledger.Job, <-chan Result, error) {
	job, err := d.ledger.ResetJob(id)
	if err != nil {
		return job, nil, fmt.Errorf("retry %s: %w", id, err)
	}
	d.log.Info("job retried", logger.String("job_id", id))
	return job, d.launch(job), nil
}

// Cancel cancels an in-flight job.
func (d *Dispatcher) Cancel(id string) error {
	return d.ledger.CancelJob(id)
}

// Wait blocks until every running job has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) launch(job ledger.Job) <-chan Result {
	out := make(chan Result, 1)
	tok, err := d.ledger.Track(d.ctx, job.ID)
	if err != nil {
		// Evicted or cancelled between creation and registration.
		d.log.Info("job gone before start", logger.String("job_id", job.ID), logger.Error(err))
		out <- Result{JobID: job.ID, Cancelled: true}
		close(out)
		return out
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(out)
		out <- d.run(job, tok)
	}()
	return out
}

func (d *Dispatcher) run(job ledger.Job, tok *ledger.Token) Result {
	log := d.log.WithJobID(job.ID)
	cancelled := Result{JobID: job.ID, Cancelled: true}

	if !d.pause(tok) {
		return d.stopped(job.ID, tok, log)
	}

	provider := d.source.Active()
	if tok.Cancelled() {
		log.Info("cancelled before provider call")
		return cancelled
	}

	var processing sync.Once
	toProcessing := func() {
		processing.Do(func() {
			if _, err := d.ledger.UpdateJob(job.ID, ledger.Update{Status: ledger.StatusProcessing}); err != nil {
				log.Debug("processing update skipped", logger.Error(err))
			}
		})
	}
	onProgress := func(fraction float64) {
		if err := d.ledger.UpdateProgress(job.ID, fraction); err != nil {
			return
		}
		if fraction >= 1 {
			toProcessing()
		}
	}

	start := time.Now()
	text, err := provider.Transcribe(tok.Context(), job.ArtifactPath, onProgress)
	if tok.Cancelled() {
		log.Info("cancelled during transcription")
		return cancelled
	}
	if err != nil {
		return d.fail(job.ID, err, log)
	}

	toProcessing()
	if !d.pause(tok) {
		return d.stopped(job.ID, tok, log)
	}

	if _, err := d.ledger.UpdateJob(job.ID, ledger.Update{
		Status:     ledger.StatusCompleted,
		ResultText: ledger.String(text),
	}); err != nil {
		// Deleted or cancelled after the last checkpoint.
		log.Info("completion not recorded", logger.Error(err))
		return cancelled
	}
	log.Info("transcription completed",
		logger.Int("length", len(text)),
		logger.Duration("elapsed", time.Since(start)))

	toast := d.delivery.HandleTranscription(text)
	d.notifier.Notify(toast)
	return Result{JobID: job.ID, Text: text, Toast: toast}
}

func (d *Dispatcher) fail(id string, err error, log *logger.Logger) Result {
	msg := transcribe.Describe(err)
	if errors.Is(err, context.Canceled) && d.ctx.Err() != nil {
		msg = ledger.InterruptedMessage
	}
	log.Warn("transcription failed", logger.Error(err))
	if _, uerr := d.ledger.UpdateJob(id, ledger.Update{
		Status:       ledger.StatusFailed,
		ErrorMessage: ledger.String(msg),
	}); uerr != nil {
		log.Debug("failure not recorded", logger.Error(uerr))
	}
	d.notifier.Notify("Transcription failed: " + msg)
	return Result{JobID: id, Err: err}
}

// stopped ends a job whose pause was cut short: by the user, or by
// shutdown, which is recorded as an interruption.
func (d *Dispatcher) stopped(id string, tok *ledger.Token, log *logger.Logger) Result {
	if tok.Cancelled() || d.ctx.Err() == nil {
		return Result{JobID: id, Cancelled: true}
	}
	return d.fail(id, context.Canceled, log)
}

// pause sleeps for the simulated delay and reports whether the job is still
// wanted.
func (d *Dispatcher) pause(tok *ledger.Token) bool {
	if d.opts.SimulatedDelay <= 0 {
		return !tok.Cancelled()
	}
	t := time.NewTimer(d.opts.SimulatedDelay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-tok.Context().Done():
	}
	return !tok.Cancelled() && tok.Context().Err() == nil
}
