// Package google provides a Google Cloud Speech-to-Text backend.
package google

import (
	"context"
	"io"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "google.golang.org/genproto/googleapis/cloud/speech/v1"

	"ai-interview-copilot/internal/stt"
)

// Backend implements stt.Backend using Google Cloud Speech-to-Text.
type Backend struct {
	client *speech.Client
	stream speechpb.Speech_StreamingRecognizeClient
	cfg    stt.Config
}

// Factory creates Google STT backends. Requires
// GOOGLE_APPLICATION_CREDENTIALS to be set.
type Factory struct{}

// NewBackend creates a new Google STT backend.
func (Factory) NewBackend(ctx context.Context, cfg stt.Config) (stt.Backend, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Backend{client: c, cfg: cfg}, nil
}

// Start begins a streaming recognition session, sends the initial config,
// and launches the receive loop that publishes events.
func (b *Backend) Start(ctx context.Context, events chan<- stt.Event) error {
	stream, err := b.client.StreamingRecognize(ctx)
	if err != nil {
		return err
	}
	b.stream = stream

	err = stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz: int32(b.cfg.SampleRateHz),
					LanguageCode:    b.cfg.LanguageCode,
				},
				InterimResults: b.cfg.InterimResults,
			},
		},
	})
	if err != nil {
		return err
	}

	go b.listen(events)
	return nil
}

// SendPCM sends one decoded PCM frame to Google Speech-to-Text.
func (b *Backend) SendPCM(ctx context.Context, frame []byte) error {
	return b.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: frame,
		},
	})
}

// Close ends the streaming session.
func (b *Backend) Close() error {
	if b.stream != nil {
		if err := b.stream.CloseSend(); err != nil {
			return err
		}
	}
	return b.client.Close()
}

// listen receives transcript responses and publishes them as events.
func (b *Backend) listen(events chan<- stt.Event) {
	for {
		resp, err := b.stream.Recv()
		if err == io.EOF {
			events <- stt.Event{Kind: stt.EventClosed}
			return
		}
		if err != nil {
			events <- stt.Event{Kind: stt.EventError, Err: err}
			return
		}

		for _, r := range resp.Results {
			if len(r.Alternatives) == 0 {
				continue
			}
			alt := r.Alternatives[0]
			events <- stt.Event{
				Kind:       stt.EventTranscript,
				Text:       alt.Transcript,
				IsFinal:    r.IsFinal,
				Confidence: float64(alt.Confidence),
			}
		}
	}
}
