// Package session coordinates one interview connection: audio intake,
// transcription, question detection, matching, and answer delivery.
package session

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a session.
type State int

const (
	// StateIdle - Connected, transcoder not yet started.
	StateIdle State = iota
	// StateListening - Transcoder running, accumulating transcript.
	StateListening
	// StateDetecting - A final transcript is being classified.
	StateDetecting
	// StateAnswering - A detected question is being matched and answered.
	StateAnswering
	// StateClosed - Session is torn down. Terminal.
	StateClosed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateListening:
		return "LISTENING"
	case StateDetecting:
		return "DETECTING"
	case StateAnswering:
		return "ANSWERING"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Errors for invalid state transitions.
var (
	ErrSessionClosed = errors.New("session is closed")
	ErrCycleActive   = errors.New("a detection cycle is already active")
	ErrNotListening  = errors.New("session is not listening")
)

// Lifecycle manages the state machine for a single session.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	IDLE → LISTENING → DETECTING → ANSWERING → LISTENING (loop)
//	  ↑        │            │
//	  └────────┴── Reset() ─┘        any state ── Close() ──→ CLOSED
//
// Rules:
//   - At most one DETECTING/ANSWERING cycle is active at a time.
//   - Reset returns to IDLE from any non-terminal state.
//   - Close is idempotent and allowed from any state.
type Lifecycle struct {
	mu    sync.RWMutex
	state State
}

// NewLifecycle creates a session lifecycle in IDLE state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: StateIdle}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// IsClosed returns true once the session reached its terminal state.
func (l *Lifecycle) IsClosed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateClosed
}

// StartListening transitions IDLE → LISTENING when the transcoder starts.
func (l *Lifecycle) StartListening() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateIdle:
		l.state = StateListening
		return nil
	case StateListening, StateDetecting, StateAnswering:
		// Already past IDLE, nothing to do.
		return nil
	case StateClosed:
		return ErrSessionClosed
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// BeginCycle transitions LISTENING → DETECTING. Only one cycle may run at
// a time; a second final transcript arriving mid-cycle is buffered by the
// caller, never started concurrently.
func (l *Lifecycle) BeginCycle() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateListening:
		l.state = StateDetecting
		return nil
	case StateDetecting, StateAnswering:
		return ErrCycleActive
	case StateClosed:
		return ErrSessionClosed
	default:
		return ErrNotListening
	}
}

// BeginAnswering transitions DETECTING → ANSWERING once a complete
// question is confirmed.
func (l *Lifecycle) BeginAnswering() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateDetecting:
		l.state = StateAnswering
		return nil
	case StateClosed:
		return ErrSessionClosed
	default:
		return fmt.Errorf("cannot answer from state %v", l.state)
	}
}

// EndCycle returns to LISTENING after a cycle completes, whether it
// produced an answer or bailed out early. No-op when closed.
func (l *Lifecycle) EndCycle() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == StateDetecting || l.state == StateAnswering {
		l.state = StateListening
	}
}

// Reset returns to IDLE, the post-clear state. No-op when closed.
func (l *Lifecycle) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateClosed {
		l.state = StateIdle
	}
}

// Close transitions to CLOSED. Can be called from any state. Idempotent.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = StateClosed
}
