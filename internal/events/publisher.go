// Package events publishes session lifecycle and usage events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"ai-interview-copilot/internal/models"
	"ai-interview-copilot/internal/observability/metrics"
)

// Publisher publishes usage and session-closed events to separate topics.
// When disabled it degrades to log-only mode so the pipeline never depends
// on Kafka being up.
type Publisher struct {
	writerUsage    *kafka.Writer
	writerSessions *kafka.Writer
	principal      string
	topicUsage     string
	topicSessions  string
	enabled        bool
	metrics        *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers       []string
	TopicUsage    string
	TopicSessions string
	Principal     string
	Enabled       bool
}

// SessionClosed is the event emitted when a session ends.
type SessionClosed struct {
	SessionID     string    `json:"session_id"`
	UserID        string    `json:"user_id,omitempty"`
	Turns         int       `json:"turns"`
	QuestionCount int       `json:"question_count"`
	StartedAt     time.Time `json:"started_at"`
	ClosedAt      time.Time `json:"closed_at"`
}

// usageEnvelope wraps a usage event with its session scope.
type usageEnvelope struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id,omitempty"`
	models.UsageEvent
}

// New creates a Kafka event publisher.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil || !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		p := &Publisher{enabled: false, metrics: m}
		if cfg != nil {
			p.principal = cfg.Principal
			p.topicUsage = cfg.TopicUsage
			p.topicSessions = cfg.TopicSessions
		}
		return p
	}

	// Longer dial timeouts for DNS resolution in Kubernetes.
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicUsage", cfg.TopicUsage).
		Str("topicSessions", cfg.TopicSessions).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerUsage:    newWriter(cfg.TopicUsage),
		writerSessions: newWriter(cfg.TopicSessions),
		principal:      cfg.Principal,
		topicUsage:     cfg.TopicUsage,
		topicSessions:  cfg.TopicSessions,
		enabled:        true,
		metrics:        m,
	}
}

// PublishUsage publishes one usage event, keyed by session so per-session
// ordering is preserved.
func (p *Publisher) PublishUsage(ctx context.Context, sessionID, userID string, event models.UsageEvent) error {
	return p.publish(ctx, p.writerUsage, p.topicUsage, "usage", sessionID, usageEnvelope{
		SessionID:  sessionID,
		UserID:     userID,
		UsageEvent: event,
	})
}

// PublishSessionClosed publishes the end-of-session summary.
func (p *Publisher) PublishSessionClosed(ctx context.Context, event SessionClosed) error {
	return p.publish(ctx, p.writerSessions, p.topicSessions, "session_closed", event.SessionID, event)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerUsage != nil {
		if e := p.writerUsage.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing usage writer")
			err = e
		}
	}
	if p.writerSessions != nil {
		if e := p.writerSessions.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing sessions writer")
			err = e
		}
	}
	return err
}
