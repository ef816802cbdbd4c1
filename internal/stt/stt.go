// Package stt defines the interface for streaming transcription backends.
//
// Backends publish typed events on a channel supplied at Start instead of
// invoking registered callbacks; the session's run loop is the single
// consumer, which keeps ordering and cancellation explicit.
package stt

import "context"

// EventKind discriminates backend events.
type EventKind int

const (
	// EventTranscript carries an interim or final transcript.
	EventTranscript EventKind = iota
	// EventError carries a backend error. The stream is dead after one.
	EventError
	// EventClosed signals the backend finished delivering results.
	EventClosed
)

// Event is one transcription backend event.
type Event struct {
	Kind       EventKind
	Text       string
	IsFinal    bool
	Confidence float64
	Err        error
}

// Config holds backend-agnostic session configuration.
type Config struct {
	LanguageCode   string
	SampleRateHz   int
	InterimResults bool
}

// Backend is one streaming transcription session.
type Backend interface {
	// Start begins the streaming session. Events are delivered on the
	// given channel until EventClosed or EventError.
	Start(ctx context.Context, events chan<- Event) error

	// SendPCM sends one decoded PCM frame to the backend.
	SendPCM(ctx context.Context, frame []byte) error

	// Close ends the session and releases resources. Idempotent.
	Close() error
}

// Factory creates one Backend per session.
type Factory interface {
	NewBackend(ctx context.Context, cfg Config) (Backend, error)
}
