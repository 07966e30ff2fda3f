package xsync

import (
	"sync"

	"github.com/pkg/errors"
)

// StatusJoin joins the completion of a dynamic number of asynchronous operations into one status.
//
// It keeps a pending count, guarded by a mutex, plus the merged status: the first error reported wins,
// and later errors (or successes) don't overwrite it. Wait only returns once every
// operation added has reported, so nothing is left in flight.
type StatusJoin struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending int64
	err     error
}

// NewStatusJoin creates a new StatusJoin with no pending operations.
func NewStatusJoin() *StatusJoin {
	j := &StatusJoin{}
	j.cond = sync.NewCond(&j.mu)
	return j
}

// Add changes the pending counter by the given delta.
// It panics if the counter would go negative.
func (j *StatusJoin) Add(delta int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.addLocked(delta)
}

func (j *StatusJoin) addLocked(delta int) {
	j.pending += int64(delta)
	if j.pending < 0 {
		panic(errors.Errorf("StatusJoin: negative pending counter"))
	}
	if j.pending == 0 {
		j.cond.Broadcast()
	}
}

// Done reports the completion of one operation with its status.
func (j *StatusJoin) Done(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err != nil && j.err == nil {
		j.err = err
	}
	j.addLocked(-1)
}

// Track adds one pending operation that is completed when f completes.
func (j *StatusJoin) Track(f *Future) {
	j.Add(1)
	f.OnReady(j.Done)
}

// Err returns the merged status so far, without waiting.
func (j *StatusJoin) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Wait blocks until every pending operation has completed and returns the merged status.
func (j *StatusJoin) Wait() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	for j.pending > 0 {
		j.cond.Wait()
	}
	return j.err
}
