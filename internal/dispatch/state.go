package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
)

// State is the lifecycle state of a Coordinator.
type State int32

const (
	// StateIdle is the state before Run.
	StateIdle State = iota
	// StateRunning means workers are dispatching requests.
	StateRunning
	// StateCancelling means the run is stopping and workers are draining.
	StateCancelling
	// StateTerminated means every goroutine has been joined.
	StateTerminated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCancelling:
		return "cancelling"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// runState is the state shared by the workers and the reporter of one run.
type runState struct {
	// mu guards source and dispatched together.
	mu         sync.Mutex
	source     WordSource
	dispatched map[string]struct{}

	requests atomic.Int64
	errors   atomic.Int64
	active   atomic.Int32

	// cancelled is read without a lock; causeMu orders the single write.
	cancelled atomic.Bool
	causeMu   sync.Mutex
	cause     error
	cancel    context.CancelFunc

	lifecycle *atomic.Int32
}

func newRunState(source WordSource, cancel context.CancelFunc, lifecycle *atomic.Int32) *runState {
	return &runState{
		source:     source,
		dispatched: make(map[string]struct{}),
		cancel:     cancel,
		lifecycle:  lifecycle,
	}
}

// claim returns the next word and whether it was dispatched before.
// ok is false once the source is exhausted.
func (s *runState) claim() (word string, duplicate bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	word, ok = s.source.Next()
	if !ok {
		return "", false, false
	}
	if _, seen := s.dispatched[word]; seen {
		return word, true, true
	}
	s.dispatched[word] = struct{}{}
	return word, false, true
}

// abort sets the cancellation flag and records err as the reason. Only the
// first call has an effect; it reports whether this call won. A nil err
// marks normal completion.
func (s *runState) abort(err error) bool {
	s.causeMu.Lock()
	defer s.causeMu.Unlock()

	if !s.cancelled.CompareAndSwap(false, true) {
		return false
	}
	s.cause = err
	s.lifecycle.Store(int32(StateCancelling))
	s.cancel()
	return true
}

// finish marks normal completion unless the run was already cancelled.
func (s *runState) finish() {
	s.abort(nil)
}

// stopped reports whether workers must exit.
func (s *runState) stopped(ctx context.Context) bool {
	return s.cancelled.Load() || ctx.Err() != nil
}

// reason returns the recorded cancellation reason.
func (s *runState) reason() error {
	s.causeMu.Lock()
	defer s.causeMu.Unlock()
	return s.cause
}
