package ledger

import (
	"context"
	"sync/atomic"
)

// Token is the cancellation handle of one job's in-flight work. Work polls
// Cancelled at its checkpoints; Context aborts blocking network calls.
type Token struct {
	cancelled atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
}

func newToken(parent context.Context) *Token {
	ctx, cancel := context.WithCancel(parent)
	return &Token{ctx: ctx, cancel: cancel}
}

// Cancelled reports whether the job was cancelled.
func (t *Token) Cancelled() bool {
	return t.cancelled.Load()
}

// Context is cancelled together with the token.
func (t *Token) Context() context.Context {
	return t.ctx
}

func (t *Token) fire() {
	t.cancelled.Store(true)
	t.cancel()
}

// release frees the context without marking the work cancelled.
func (t *Token) release() {
	t.cancel()
}
