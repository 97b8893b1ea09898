// Package bulk runs interactive multi-site generation with cooperative
// cancellation and live progress.
package bulk

import "sync"

// Token is a one-way cancellation signal. Cancelling never interrupts a
// step in flight; the orchestrator only looks at it between steps.
type Token struct {
	once sync.Once
	done chan struct{}
}

// NewToken returns an uncancelled token
func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// Cancel requests a stop. Calling it more than once is harmless.
func (t *Token) Cancel() {
	t.once.Do(func() { close(t.done) })
}

// Cancelled reports whether Cancel has been called
func (t *Token) Cancelled() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done is closed once Cancel has been called
func (t *Token) Done() <-chan struct{} {
	return t.done
}
