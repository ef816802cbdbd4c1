// Package mock provides a mock transcription backend for testing without
// cloud credentials. It simulates realistic interviewer speech with
// progressive interim transcripts and exactly one final transcript per
// utterance.
package mock

import (
	"context"
	"sync"
	"time"

	"ai-interview-copilot/internal/stt"
)

// SimulatedUtterance represents a mock utterance with progressive transcripts.
type SimulatedUtterance struct {
	Interims   []string // Progressive interim transcripts
	Final      string   // Final transcript text
	Confidence float64  // Confidence score for the final
}

// DefaultUtterances provides sample interviewer utterances for simulation.
var DefaultUtterances = []SimulatedUtterance{
	{
		Interims:   []string{"Tell me", "Tell me about", "Tell me about your"},
		Final:      "Tell me about yourself?",
		Confidence: 0.96,
	},
	{
		Interims:   []string{"What would", "What would you do if", "What would you do if a teammate"},
		Final:      "What would you do if a teammate missed a deadline?",
		Confidence: 0.93,
	},
	{
		Interims:   []string{"Why do you", "Why do you want"},
		Final:      "Why do you want to work here?",
		Confidence: 0.95,
	},
	{
		Interims:   []string{"Describe a time", "Describe a time you had"},
		Final:      "Describe a time you had a conflict with a coworker.",
		Confidence: 0.9,
	},
}

// Backend implements stt.Backend with scripted responses. Each PCM frame
// advances the script by one interim; once all interims are sent the final
// transcript follows, mimicking end-of-turn detection.
type Backend struct {
	mu           sync.Mutex
	events       chan<- stt.Event
	utterance    SimulatedUtterance
	interimIndex int
	finalSent    bool
	closed       bool
	delay        time.Duration
}

// Factory creates mock backends, cycling through DefaultUtterances.
type Factory struct {
	mu      sync.Mutex
	counter int
}

// NewBackend creates a new mock backend.
func (f *Factory) NewBackend(ctx context.Context, cfg stt.Config) (stt.Backend, error) {
	f.mu.Lock()
	idx := f.counter % len(DefaultUtterances)
	f.counter++
	f.mu.Unlock()

	return &Backend{
		utterance: DefaultUtterances[idx],
		delay:     50 * time.Millisecond,
	}, nil
}

// NewScripted creates a mock backend that plays the given utterance with no
// artificial delay. Used by tests.
func NewScripted(utt SimulatedUtterance) *Backend {
	return &Backend{utterance: utt}
}

// Start records the event channel.
func (b *Backend) Start(ctx context.Context, events chan<- stt.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = events
	return nil
}

// SendPCM simulates receiving audio and advances the utterance script.
func (b *Backend) SendPCM(ctx context.Context, frame []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.events == nil {
		return nil
	}

	if b.interimIndex < len(b.utterance.Interims) {
		text := b.utterance.Interims[b.interimIndex]
		b.interimIndex++
		b.emit(stt.Event{Kind: stt.EventTranscript, Text: text})
		return nil
	}

	if !b.finalSent {
		b.finalSent = true
		b.emit(stt.Event{
			Kind:       stt.EventTranscript,
			Text:       b.utterance.Final,
			IsFinal:    true,
			Confidence: b.utterance.Confidence,
		})
	}
	return nil
}

// Close ends the mock session. If the final wasn't reached (stream ended
// early), it is delivered now before EventClosed.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	if !b.finalSent && b.events != nil {
		b.finalSent = true
		b.emit(stt.Event{
			Kind:       stt.EventTranscript,
			Text:       b.utterance.Final,
			IsFinal:    true,
			Confidence: b.utterance.Confidence,
		})
	}
	if b.events != nil {
		b.emit(stt.Event{Kind: stt.EventClosed})
	}
	return nil
}

// emit delivers an event after the configured delay without blocking the
// caller. Called with b.mu held; the goroutine copies what it needs first.
func (b *Backend) emit(ev stt.Event) {
	events := b.events
	delay := b.delay
	go func() {
		if delay > 0 {
			time.Sleep(delay)
		}
		events <- ev
	}()
}
