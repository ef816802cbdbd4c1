package session

import (
	"errors"
	"testing"
)

func TestLifecycle_HappyPath(t *testing.T) {
	l := NewLifecycle()
	if l.State() != StateIdle {
		t.Fatalf("initial state = %v, want IDLE", l.State())
	}

	if err := l.StartListening(); err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	if l.State() != StateListening {
		t.Errorf("state = %v, want LISTENING", l.State())
	}

	if err := l.BeginCycle(); err != nil {
		t.Fatalf("BeginCycle: %v", err)
	}
	if l.State() != StateDetecting {
		t.Errorf("state = %v, want DETECTING", l.State())
	}

	if err := l.BeginAnswering(); err != nil {
		t.Fatalf("BeginAnswering: %v", err)
	}
	if l.State() != StateAnswering {
		t.Errorf("state = %v, want ANSWERING", l.State())
	}

	l.EndCycle()
	if l.State() != StateListening {
		t.Errorf("state after cycle = %v, want LISTENING", l.State())
	}
}

func TestLifecycle_SingleCycleGate(t *testing.T) {
	l := NewLifecycle()
	l.StartListening()
	l.BeginCycle()

	if err := l.BeginCycle(); !errors.Is(err, ErrCycleActive) {
		t.Errorf("second BeginCycle = %v, want ErrCycleActive", err)
	}

	l.BeginAnswering()
	if err := l.BeginCycle(); !errors.Is(err, ErrCycleActive) {
		t.Errorf("BeginCycle while answering = %v, want ErrCycleActive", err)
	}
}

func TestLifecycle_BeginCycleFromIdle(t *testing.T) {
	l := NewLifecycle()
	if err := l.BeginCycle(); !errors.Is(err, ErrNotListening) {
		t.Errorf("BeginCycle from IDLE = %v, want ErrNotListening", err)
	}
}

func TestLifecycle_Reset(t *testing.T) {
	l := NewLifecycle()
	l.StartListening()
	l.BeginCycle()

	l.Reset()
	if l.State() != StateIdle {
		t.Errorf("state after reset = %v, want IDLE", l.State())
	}

	// Reset never resurrects a closed session.
	l.Close()
	l.Reset()
	if l.State() != StateClosed {
		t.Errorf("state = %v, want CLOSED", l.State())
	}
}

func TestLifecycle_CloseIdempotent(t *testing.T) {
	l := NewLifecycle()
	l.Close()
	l.Close()
	if !l.IsClosed() {
		t.Error("not closed after Close")
	}

	if err := l.StartListening(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("StartListening after close = %v, want ErrSessionClosed", err)
	}
	if err := l.BeginCycle(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("BeginCycle after close = %v, want ErrSessionClosed", err)
	}
}

func TestLifecycle_EndCycleNoOpWhenListening(t *testing.T) {
	l := NewLifecycle()
	l.StartListening()
	l.EndCycle()
	if l.State() != StateListening {
		t.Errorf("state = %v, want LISTENING", l.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "IDLE"},
		{StateListening, "LISTENING"},
		{StateDetecting, "DETECTING"},
		{StateAnswering, "ANSWERING"},
		{StateClosed, "CLOSED"},
		{State(99), "UNKNOWN(99)"},
	}
	for _, tc := range tests {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("State(%d).String() = %q, want %q", tc.state, got, tc.want)
		}
	}
}
