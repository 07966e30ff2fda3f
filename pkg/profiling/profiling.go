// Package profiling implements Recorder, a runner.Profiler that records the sessions it is asked to start and stop:
// their ids, wall time and host memory allocated while they were open.
//
// It stands in for a device profiler: the runner only ever starts one session per run, around the last repeat.
package profiling

import (
	"fmt"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Session is one start/stop interval recorded by a Recorder.
type Session struct {
	// ID is unique for every session.
	ID string

	Start    time.Time
	Duration time.Duration

	// HostAllocatedBytes is the host memory allocated (runtime.MemStats.TotalAlloc delta) during the session.
	HostAllocatedBytes uint64
}

// String implements fmt.Stringer.
func (s Session) String() string {
	return fmt.Sprintf("session %s: %s, %s allocated on host", s.ID, s.Duration, humanize.Bytes(s.HostAllocatedBytes))
}

// Recorder implements runner.Profiler. It is safe for concurrent use, but only one session can be open at a time.
type Recorder struct {
	tag string

	mu         sync.Mutex
	open       *Session
	startAlloc uint64
	sessions   []Session
	maxKept    int
}

// NewRecorder returns a Recorder that keeps every session.
func NewRecorder() *Recorder {
	return &Recorder{tag: fmt.Sprintf("<profiling.Recorder id=%s>", uuid.NewString())}
}

// KeepLast configures the Recorder to keep only the last n sessions. n <= 0 keeps all of them.
//
// It returns itself, so methods calling can be cascaded.
func (r *Recorder) KeepLast(n int) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxKept = n
	return r
}

// StartSession implements runner.Profiler. It fails if a session is already open.
func (r *Recorder) StartSession() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open != nil {
		return errors.Errorf("%s: can't start a session while session %s is open", r.tag, r.open.ID)
	}
	r.open = &Session{ID: uuid.NewString(), Start: time.Now()}
	r.startAlloc = totalAlloc()
	klog.V(1).Infof("%s: started session %s", r.tag, r.open.ID)
	return nil
}

// StopSession implements runner.Profiler. It fails if no session is open.
func (r *Recorder) StopSession() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open == nil {
		return errors.Errorf("%s: no session open to stop", r.tag)
	}
	s := *r.open
	r.open = nil
	s.Duration = time.Since(s.Start)
	s.HostAllocatedBytes = totalAlloc() - r.startAlloc
	r.sessions = append(r.sessions, s)
	if r.maxKept > 0 && len(r.sessions) > r.maxKept {
		r.sessions = slices.Delete(r.sessions, 0, len(r.sessions)-r.maxKept)
	}
	klog.V(1).Infof("%s: stopped %s", r.tag, s)
	return nil
}

// IsOpen returns whether a session is open.
func (r *Recorder) IsOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open != nil
}

// Sessions returns a copy of the sessions recorded so far, oldest first.
func (r *Recorder) Sessions() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.sessions)
}

// Last returns the most recent session, and false if none was recorded.
func (r *Recorder) Last() (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sessions) == 0 {
		return Session{}, false
	}
	return r.sessions[len(r.sessions)-1], true
}

// Summary returns one line per session recorded.
func (r *Recorder) Summary() string {
	var sb strings.Builder
	for ii, s := range r.Sessions() {
		fmt.Fprintf(&sb, "#%d %s\n", ii, s)
	}
	return sb.String()
}

func totalAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.TotalAlloc
}
