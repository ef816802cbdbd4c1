// Package config loads service configuration from the environment.
package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

// Configuration holds the full service configuration, grouped by concern.
type Configuration struct {
	Service       Service
	STT           STT
	Transcode     Transcode
	LLM           LLM
	Embedding     Embedding
	Qdrant        Qdrant
	Matching      Matching
	Answering     Answering
	Kafka         Kafka
	ProfileStore  ProfileStore
	Observability Observability
}

// Service holds process-level settings.
type Service struct {
	Principal         string `env:"SERVICE_PRINCIPAL" envDefault:"svc-interview-copilot"`
	HTTPPort          string `env:"HTTP_PORT" envDefault:"8080"`
	ObservabilityAddr string `env:"OBSERVABILITY_ADDR" envDefault:":9090"`
}

// STT selects and configures the transcription backend.
type STT struct {
	Provider       string `env:"STT_PROVIDER" envDefault:"mock"`
	LanguageCode   string `env:"STT_LANGUAGE_CODE" envDefault:"en-US"`
	SampleRateHz   int    `env:"STT_SAMPLE_RATE_HZ" envDefault:"16000"`
	InterimResults bool   `env:"STT_INTERIM_RESULTS" envDefault:"true"`
}

// Transcode configures the audio decoder bridge.
type Transcode struct {
	FFmpegPath             string        `env:"TRANSCODE_FFMPEG_PATH" envDefault:"ffmpeg"`
	FrameBytes             int           `env:"TRANSCODE_FRAME_BYTES" envDefault:"2560"`
	ForwardTimeout         time.Duration `env:"TRANSCODE_FORWARD_TIMEOUT" envDefault:"5s"`
	MaxForwardAttempts     int           `env:"TRANSCODE_MAX_FORWARD_ATTEMPTS" envDefault:"3"`
	ForwardRetryBackoff    time.Duration `env:"TRANSCODE_FORWARD_RETRY_BACKOFF" envDefault:"100ms"`
	MaxConsecutiveFailures int           `env:"TRANSCODE_MAX_CONSECUTIVE_FAILURES" envDefault:"5"`
}

// Backend configures one generation backend.
type Backend struct {
	APIKey  string
	BaseURL string
	Model   string
}

// LLM configures the primary/secondary generation backends.
type LLM struct {
	Strategy         string        `env:"LLM_STRATEGY" envDefault:"hybrid"`
	PrimaryAPIKey    string        `env:"LLM_PRIMARY_API_KEY"`
	PrimaryBaseURL   string        `env:"LLM_PRIMARY_BASE_URL"`
	PrimaryModel     string        `env:"LLM_PRIMARY_MODEL" envDefault:"glm-4-flash"`
	SecondaryAPIKey  string        `env:"LLM_SECONDARY_API_KEY"`
	SecondaryBaseURL string        `env:"LLM_SECONDARY_BASE_URL"`
	SecondaryModel   string        `env:"LLM_SECONDARY_MODEL" envDefault:"gpt-4o-mini"`
	GenerateTimeout  time.Duration `env:"LLM_GENERATE_TIMEOUT" envDefault:"30s"`
	ClassifyTimeout  time.Duration `env:"LLM_CLASSIFY_TIMEOUT" envDefault:"3s"`
}

// Primary returns the primary backend settings.
func (l LLM) Primary() Backend {
	return Backend{APIKey: l.PrimaryAPIKey, BaseURL: l.PrimaryBaseURL, Model: l.PrimaryModel}
}

// Secondary returns the secondary backend settings.
func (l LLM) Secondary() Backend {
	return Backend{APIKey: l.SecondaryAPIKey, BaseURL: l.SecondaryBaseURL, Model: l.SecondaryModel}
}

// Embedding configures the embedding backend.
type Embedding struct {
	APIKey  string `env:"EMBEDDING_API_KEY"`
	BaseURL string `env:"EMBEDDING_BASE_URL"`
	Model   string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
}

// Qdrant configures the vector store.
type Qdrant struct {
	URL        string        `env:"QDRANT_URL" envDefault:"http://localhost:6333"`
	Collection string        `env:"QDRANT_COLLECTION" envDefault:"qa_pairs"`
	VectorSize int           `env:"QDRANT_VECTOR_SIZE" envDefault:"1536"`
	Timeout    time.Duration `env:"QDRANT_TIMEOUT" envDefault:"5s"`
}

// Matching tunes the knowledge-matching cascade. The thresholds come from
// observed behavior, not a derived accuracy target; validate them against
// real session transcripts before changing defaults.
type Matching struct {
	FuzzyThreshold     float64       `env:"MATCH_FUZZY_THRESHOLD" envDefault:"0.85"`
	DirectThreshold    float64       `env:"MATCH_DIRECT_THRESHOLD" envDefault:"0.62"`
	SemanticThreshold  float64       `env:"MATCH_SEMANTIC_THRESHOLD" envDefault:"0.5"`
	ExactFlagThreshold float64       `env:"MATCH_EXACT_FLAG_THRESHOLD" envDefault:"0.92"`
	TopK               int           `env:"MATCH_TOP_K" envDefault:"5"`
	SearchTimeout      time.Duration `env:"MATCH_SEARCH_TIMEOUT" envDefault:"2s"`
	DecomposeTimeout   time.Duration `env:"MATCH_DECOMPOSE_TIMEOUT" envDefault:"1500ms"`
}

// Answering tunes the orchestrator's output token budgets.
type Answering struct {
	BudgetShort    int `env:"ANSWER_BUDGET_SHORT" envDefault:"120"`
	BudgetStandard int `env:"ANSWER_BUDGET_STANDARD" envDefault:"300"`
	BudgetDeepDive int `env:"ANSWER_BUDGET_DEEP_DIVE" envDefault:"600"`
}

// Kafka configures the session-history event publisher.
type Kafka struct {
	Enabled       bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	Brokers       []string `env:"KAFKA_BROKERS" envSeparator:","`
	TopicUsage    string   `env:"KAFKA_TOPIC_USAGE" envDefault:"interview.session.usage"`
	TopicSessions string   `env:"KAFKA_TOPIC_SESSIONS" envDefault:"interview.session.closed"`
}

// ProfileStore configures the interview-profile loader.
type ProfileStore struct {
	BaseURL string        `env:"PROFILE_STORE_URL"`
	Timeout time.Duration `env:"PROFILE_STORE_TIMEOUT" envDefault:"3s"`
}

// Observability configures logging.
type Observability struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load parses the configuration from the environment.
func Load() *Configuration {
	cfg := &Configuration{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}
