// Package xsync implements the synchronization tools used to follow asynchronous device work:
// Future, a latch carrying a completion status, and StatusJoin, an N-way join with first-error-wins.
package xsync

import (
	"sync"
)

// Future is the completion signal of an asynchronous operation, with its final status.
//
// It is triggered once, with Set, and it never changes state afterward.
type Future struct {
	mu        sync.Mutex
	ready     bool
	done      chan struct{}
	err       error
	callbacks []func(error)
}

// NewFuture returns a Future not yet completed.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// ReadyFuture returns a Future already completed with the given status.
func ReadyFuture(err error) *Future {
	f := NewFuture()
	f.Set(err)
	return f
}

// Set completes the future with the given status. Only the first call has any effect.
//
// Callbacks registered with OnReady are called synchronously, in the order they were registered,
// before waiters of Await are released. So callbacks must not Await on f.
func (f *Future) Set(err error) {
	f.mu.Lock()
	if f.ready {
		f.mu.Unlock()
		return
	}
	f.ready = true
	f.err = err
	callbacks := f.callbacks
	f.callbacks = nil
	f.mu.Unlock()

	for _, callback := range callbacks {
		callback(err)
	}
	close(f.done)
}

// IsReady returns whether the future has completed.
func (f *Future) IsReady() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

// Await blocks until the future completes and returns its status.
func (f *Future) Await() error {
	<-f.done
	return f.err
}

// Done returns a channel closed when the future completes, to be used in a `select`.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// OnReady registers fn to be called with the status once the future completes.
// If it is already completed, fn is called immediately in the caller's goroutine.
func (f *Future) OnReady(fn func(err error)) {
	f.mu.Lock()
	if !f.ready {
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
		return
	}
	err := f.err
	f.mu.Unlock()
	fn(err)
}

// AwaitAll waits for every future, even after a failure, and returns the first error
// in the order given (not in the order of completion).
// Nil futures are skipped.
func AwaitAll(futures ...*Future) error {
	var firstErr error
	for _, f := range futures {
		if f == nil {
			continue
		}
		if err := f.Await(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
