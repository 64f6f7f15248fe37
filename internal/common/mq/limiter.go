package mq

import "context"

// TokenLimiter caps the number of judgment jobs in flight. The consumer
// takes a slot before fetching a message and returns it once the sandbox
// run finishes, so fetching stalls while the worker pool is full.
type TokenLimiter struct {
	slots chan struct{}
}

// NewTokenLimiter creates a limiter admitting up to size concurrent jobs.
// Sizes below one are raised to one so the pool can never starve.
func NewTokenLimiter(size int) *TokenLimiter {
	if size < 1 {
		size = 1
	}
	l := &TokenLimiter{slots: make(chan struct{}, size)}
	for i := 0; i < size; i++ {
		l.slots <- struct{}{}
	}
	return l
}

// Acquire takes a pool slot, blocking until one frees up or ctx ends.
func (l *TokenLimiter) Acquire(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.slots:
		return nil
	}
}

// Release returns a pool slot. Surplus releases are dropped so the pool
// never grows past its size.
func (l *TokenLimiter) Release() {
	select {
	case l.slots <- struct{}{}:
	default:
	}
}
