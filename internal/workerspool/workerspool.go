// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package workerspool runs asynchronous tasks on a bounded number of goroutines.
//
// It is used by the simulated devices to run transfers and executions concurrently with the host.
package workerspool

import (
	"runtime"
	"sync"
)

// Pool of workers. Create it with New.
type Pool struct {
	// maxParallelism is the limit of tasks running in parallel.
	// If 0 tasks run inline, if < 0 parallelism is unlimited.
	maxParallelism int
	mu             sync.Mutex
	cond           sync.Cond // Signaled whenever numRunning is decreased.
	numRunning     int
}

// New returns a new Pool of workers with the given parallelism.
// Use runtime.NumCPU() for the number of cores, 0 to run tasks inline and -1 for unlimited parallelism.
func New(maxParallelism int) *Pool {
	w := &Pool{maxParallelism: maxParallelism}
	w.cond = sync.Cond{L: &w.mu}
	return w
}

// NewDefault returns a Pool with one worker per CPU.
func NewDefault() *Pool {
	return New(runtime.NumCPU())
}

// IsInline returns whether tasks are run inline, in the caller's goroutine (maxParallelism is 0).
func (w *Pool) IsInline() bool {
	return w.maxParallelism == 0
}

// MaxParallelism returns the limit of tasks running in parallel.
func (w *Pool) MaxParallelism() int {
	return w.maxParallelism
}

// lockedIsFull returns whether all available workers are in use.
//
// It must be called with Pool.mu acquired.
func (w *Pool) lockedIsFull() bool {
	if w.maxParallelism < 0 {
		return false
	}
	return w.numRunning >= w.maxParallelism
}

// Run waits until there is a worker available and starts the task on it. It doesn't wait for the task to finish.
//
// If the pool is inline (maxParallelism is 0), it runs the task and returns when it is finished.
func (w *Pool) Run(task func()) {
	if w.IsInline() {
		task()
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.lockedIsFull() {
		w.cond.Wait()
	}
	w.lockedRunTaskInGoroutine(task)
}

// lockedRunTaskInGoroutine and keep tabs on w.numRunning.
//
// It must be called with Pool.mu acquired.
func (w *Pool) lockedRunTaskInGoroutine(task func()) {
	w.numRunning++
	go func() {
		task()
		w.mu.Lock()
		w.numRunning--
		w.cond.Broadcast()
		w.mu.Unlock()
	}()
}

// StartIfAvailable runs the task in a separate goroutine, if there is a worker available.
// It returns true if it started the task, false otherwise.
func (w *Pool) StartIfAvailable(task func()) bool {
	if w.IsInline() {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lockedIsFull() {
		return false
	}
	w.lockedRunTaskInGoroutine(task)
	return true
}

// NumRunning returns the number of tasks currently running.
func (w *Pool) NumRunning() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.numRunning
}

// Wait blocks until no task is running.
func (w *Pool) Wait() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.numRunning > 0 {
		w.cond.Wait()
	}
}
