// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ai_interview_copilot"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsTotal   prometheus.Counter
	SessionsActive  prometheus.Gauge
	SessionDuration prometheus.Histogram

	// Audio metrics
	AudioBytesReceived  prometheus.Counter
	AudioChunksReceived prometheus.Counter
	DecoderRestarts     prometheus.Counter
	BridgeUnhealthy     prometheus.Counter
	ForwardRetries      prometheus.Counter

	// Transcript metrics
	TranscriptsInterim prometheus.Counter
	TranscriptsFinal   prometheus.Counter

	// Detection metrics
	QuestionsDetected    *prometheus.CounterVec
	QuestionsIncomplete  prometheus.Counter
	Stage2Classification prometheus.Counter

	// Matching metrics
	Matches          *prometheus.CounterVec
	SemanticSearches prometheus.Counter
	SearchTimeouts   prometheus.Counter

	// Answer metrics
	AnswersDirect      prometheus.Counter
	AnswersSynthesized prometheus.Counter
	GenerationFailover prometheus.Counter
	GenerationFailed   prometheus.Counter
	AnswerLatency      *prometheus.HistogramVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of interview sessions started",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently active interview sessions",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of interview sessions in seconds",
			Buckets:   []float64{10, 30, 60, 300, 600, 1800, 3600},
		}),

		AudioBytesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_received_total",
			Help:      "Total audio bytes received from clients",
		}),
		AudioChunksReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_chunks_received_total",
			Help:      "Total audio chunks received from clients",
		}),
		DecoderRestarts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decoder_restarts_total",
			Help:      "Total number of decoder process restarts",
		}),
		BridgeUnhealthy: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_unhealthy_total",
			Help:      "Times the transcoder bridge gave up after consecutive forward failures",
		}),
		ForwardRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forward_retries_total",
			Help:      "Total PCM frame forward retries",
		}),

		TranscriptsInterim: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_interim_total",
			Help:      "Total number of interim transcripts received",
		}),
		TranscriptsFinal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_final_total",
			Help:      "Total number of final transcripts received",
		}),

		QuestionsDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_detected_total",
			Help:      "Total questions detected, by type",
		}, []string{"question_type"}),
		QuestionsIncomplete: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_incomplete_total",
			Help:      "Questions held back by the completeness gate",
		}),
		Stage2Classification: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage2_classifications_total",
			Help:      "Low-confidence detections escalated to the external classifier",
		}),

		Matches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Knowledge matches, by match kind",
		}, []string{"kind"}),
		SemanticSearches: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "semantic_searches_total",
			Help:      "Semantic sub-question searches issued",
		}),
		SearchTimeouts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_timeouts_total",
			Help:      "Semantic sub-searches that timed out or failed",
		}),

		AnswersDirect: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_direct_total",
			Help:      "Answers served verbatim from prepared material",
		}),
		AnswersSynthesized: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_synthesized_total",
			Help:      "Answers generated by a language backend",
		}),
		GenerationFailover: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failover_total",
			Help:      "Times the primary generation backend failed over to the secondary",
		}),
		GenerationFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failed_total",
			Help:      "Times all generation backends failed for one question",
		}),
		AnswerLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_latency_seconds",
			Help:      "Latency from complete question to answer completion",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"source"}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Latency of Kafka publishes in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"topic", "event_type"}),
	}
}

// RecordKafkaPublish records the outcome of one Kafka publish.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, seconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
	m.KafkaPublishLatency.WithLabelValues(topic, eventType).Observe(seconds)
}
