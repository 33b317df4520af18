package background

import (
	"context"
	"sync"
	"time"
)

// Scope - abstract concurrency scope
type Scope struct {
	ctx       context.Context
	ctxCancel context.CancelFunc
	scope     sync.WaitGroup
}

// NewScope - concurrency scope builder.
// Returned cancel func cancels scope context and waits for all registered workers.
func NewScope() (scope *Scope, cancel func()) {
	ctx, cancelFunc := context.WithCancel(context.Background())
	b := &Scope{
		ctx:       ctx,
		ctxCancel: cancelFunc,
	}
	return b,
		func() {
			b.ctxCancel()
			b.scope.Wait()
		}
}

// Context - return background context
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Cancel - cancels scope context, but does not wait for registered workers.
func (s *Scope) Cancel() {
	s.ctxCancel()
}

// Add - notifies scope to register processes/workers/layers.
// Based on sync.WaitGroup.
func (s *Scope) Add(delta int) {
	s.scope.Add(delta)
}

// Done - notifies scope when process/worker/layer is done.
// Based on sync.WaitGroup.
func (s *Scope) Done() {
	s.scope.Done()
}

// Go - runs f in registered goroutine, f receives scope context.
func (s *Scope) Go(f func(ctx context.Context)) {
	s.scope.Add(1)
	go func() {
		defer s.scope.Done()
		f(s.ctx)
	}()
}

// Wait - waits for registered workers, but no longer than timeout.
// Returns false if timeout is expired before all workers are done.
// Scope context is not cancelled.
func (s *Scope) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.scope.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
