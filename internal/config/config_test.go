package config

import (
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"SERVICE_PRINCIPAL", "HTTP_PORT", "OBSERVABILITY_ADDR",
		"STT_PROVIDER", "STT_LANGUAGE_CODE", "STT_SAMPLE_RATE_HZ", "STT_INTERIM_RESULTS",
		"TRANSCODE_FFMPEG_PATH", "TRANSCODE_FRAME_BYTES", "TRANSCODE_FORWARD_TIMEOUT",
		"TRANSCODE_MAX_FORWARD_ATTEMPTS", "TRANSCODE_FORWARD_RETRY_BACKOFF",
		"TRANSCODE_MAX_CONSECUTIVE_FAILURES",
		"LLM_STRATEGY", "LLM_PRIMARY_MODEL", "LLM_SECONDARY_MODEL", "LLM_GENERATE_TIMEOUT",
		"EMBEDDING_MODEL", "QDRANT_URL", "QDRANT_COLLECTION", "QDRANT_VECTOR_SIZE",
		"MATCH_FUZZY_THRESHOLD", "MATCH_DIRECT_THRESHOLD", "MATCH_TOP_K",
		"ANSWER_BUDGET_SHORT", "ANSWER_BUDGET_STANDARD", "ANSWER_BUDGET_DEEP_DIVE",
		"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_TOPIC_USAGE", "KAFKA_TOPIC_SESSIONS",
		"PROFILE_STORE_URL", "LOG_LEVEL", "LOG_FORMAT",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Service.Principal != "svc-interview-copilot" {
		t.Errorf("expected default principal 'svc-interview-copilot', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "8080" {
		t.Errorf("expected default port '8080', got %s", cfg.Service.HTTPPort)
	}

	if cfg.STT.Provider != "mock" {
		t.Errorf("expected default STT provider 'mock', got %s", cfg.STT.Provider)
	}
	if cfg.STT.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.STT.SampleRateHz)
	}

	if cfg.Transcode.FrameBytes != 2560 {
		t.Errorf("expected default frame bytes 2560, got %d", cfg.Transcode.FrameBytes)
	}
	if cfg.Transcode.ForwardTimeout != 5*time.Second {
		t.Errorf("expected default forward timeout 5s, got %v", cfg.Transcode.ForwardTimeout)
	}
	if cfg.Transcode.MaxForwardAttempts != 3 {
		t.Errorf("expected default max forward attempts 3, got %d", cfg.Transcode.MaxForwardAttempts)
	}
	if cfg.Transcode.MaxConsecutiveFailures != 5 {
		t.Errorf("expected default max consecutive failures 5, got %d", cfg.Transcode.MaxConsecutiveFailures)
	}

	if cfg.LLM.Strategy != "hybrid" {
		t.Errorf("expected default strategy 'hybrid', got %s", cfg.LLM.Strategy)
	}

	if cfg.Matching.FuzzyThreshold != 0.85 {
		t.Errorf("expected default fuzzy threshold 0.85, got %v", cfg.Matching.FuzzyThreshold)
	}
	if cfg.Matching.DirectThreshold != 0.62 {
		t.Errorf("expected default direct threshold 0.62, got %v", cfg.Matching.DirectThreshold)
	}
	if cfg.Matching.ExactFlagThreshold != 0.92 {
		t.Errorf("expected default exact flag threshold 0.92, got %v", cfg.Matching.ExactFlagThreshold)
	}
	if cfg.Matching.TopK != 5 {
		t.Errorf("expected default top K 5, got %d", cfg.Matching.TopK)
	}

	if cfg.Qdrant.Collection != "qa_pairs" {
		t.Errorf("expected default collection 'qa_pairs', got %s", cfg.Qdrant.Collection)
	}
	if cfg.Qdrant.VectorSize != 1536 {
		t.Errorf("expected default vector size 1536, got %d", cfg.Qdrant.VectorSize)
	}

	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled by default")
	}
	if cfg.Kafka.TopicUsage != "interview.session.usage" {
		t.Errorf("expected default usage topic, got %s", cfg.Kafka.TopicUsage)
	}

	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)

	t.Setenv("STT_PROVIDER", "google")
	t.Setenv("LLM_STRATEGY", "primary")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092,broker-2:9092")
	t.Setenv("MATCH_DIRECT_THRESHOLD", "0.7")
	t.Setenv("TRANSCODE_FORWARD_TIMEOUT", "2s")

	cfg := Load()

	if cfg.STT.Provider != "google" {
		t.Errorf("expected STT provider 'google', got %s", cfg.STT.Provider)
	}
	if cfg.LLM.Strategy != "primary" {
		t.Errorf("expected strategy 'primary', got %s", cfg.LLM.Strategy)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected Kafka enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "broker-1:9092" {
		t.Errorf("unexpected brokers: %v", cfg.Kafka.Brokers)
	}
	if cfg.Matching.DirectThreshold != 0.7 {
		t.Errorf("expected direct threshold 0.7, got %v", cfg.Matching.DirectThreshold)
	}
	if cfg.Transcode.ForwardTimeout != 2*time.Second {
		t.Errorf("expected forward timeout 2s, got %v", cfg.Transcode.ForwardTimeout)
	}
}
