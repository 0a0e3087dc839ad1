package transfer

import (
	"context"
	"sync"
)

// Phase is the lifecycle position of an upload attempt.
type Phase string

const (
	PhaseValidating        Phase = "validating"
	PhaseCheckingDuplicate Phase = "checkingDuplicate"
	PhaseTransferring      Phase = "transferring"
	PhaseCommitting        Phase = "committing"
	PhaseSucceeded         Phase = "succeeded"
	PhaseFailed            Phase = "failed"
	PhaseCancelled         Phase = "cancelled"
)

// Terminal reports whether p is one of the three end states.
func (p Phase) Terminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed || p == PhaseCancelled
}

// Snapshot is the observable copy of a transfer handed to the presentation
// layer. Progress is a fraction in [0,1], monotonically non-decreasing
// while transferring.
type Snapshot struct {
	OwnerID  string
	Name     string
	Phase    Phase
	Progress float64
	Err      error
}

// state is one in-flight (or just-finished) upload attempt. It exists only
// in process memory and is owned exclusively by the Controller.
type state struct {
	mu        sync.Mutex
	snap      Snapshot
	cancel    context.CancelFunc
	cancelled bool
}

func newState(ownerID, name string) *state {
	return &state{snap: Snapshot{OwnerID: ownerID, Name: name, Phase: PhaseValidating}}
}

func (s *state) setPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Phase = p
}

func (s *state) fail(p Phase, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Phase = p
	s.snap.Err = err
}

// setProgress coalesces progress events latest-wins and enforces the
// monotonic non-decrease invariant.
func (s *state) setProgress(written, total int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.Phase != PhaseTransferring || total <= 0 {
		return
	}
	f := float64(written) / float64(total)
	if f > 1 {
		f = 1
	}
	if f > s.snap.Progress {
		s.snap.Progress = f
	}
}

// beginCommit transitions to committing unless a cancel was already
// observed, in a single critical section. Once it returns true,
// requestCancel can no longer succeed, so a Cancel that returned true and
// a committed record are mutually exclusive.
func (s *state) beginCommit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return false
	}
	s.snap.Phase = PhaseCommitting
	return true
}

// requestCancel marks the transfer cancelled and stops the stream.
// Only effective while transferring; idempotent.
func (s *state) requestCancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.Phase != PhaseTransferring || s.cancelled {
		return false
	}
	s.cancelled = true
	if s.cancel != nil {
		s.cancel()
	}
	return true
}

func (s *state) wasCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

func (s *state) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}
