package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ai-interview-copilot/internal/answer"
	"ai-interview-copilot/internal/app"
	"ai-interview-copilot/internal/config"
	"ai-interview-copilot/internal/detect"
	"ai-interview-copilot/internal/embed"
	"ai-interview-copilot/internal/events"
	httpapi "ai-interview-copilot/internal/http"
	"ai-interview-copilot/internal/llm"
	"ai-interview-copilot/internal/match"
	"ai-interview-copilot/internal/observability"
	"ai-interview-copilot/internal/session"
	"ai-interview-copilot/internal/store"
	"ai-interview-copilot/internal/stt"
	sttgoogle "ai-interview-copilot/internal/stt/google"
	sttmock "ai-interview-copilot/internal/stt/mock"
	"ai-interview-copilot/internal/transcode"
	"ai-interview-copilot/internal/vector"
	"ai-interview-copilot/internal/vector/qdrant"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatalf("application start failed: %v", err)
	}
	defer application.Shutdown()
	logger := application.Logger

	strategy, err := llm.ParseStrategy(cfg.LLM.Strategy)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid LLM strategy")
	}

	var primary, secondary llm.Client
	if b := cfg.LLM.Primary(); b.APIKey != "" {
		primary = llm.NewOpenAI("primary", b.APIKey, b.BaseURL, b.Model)
	}
	if b := cfg.LLM.Secondary(); b.APIKey != "" {
		secondary = llm.NewOpenAI("secondary", b.APIKey, b.BaseURL, b.Model)
	}
	if primary == nil && secondary == nil {
		logger.Warn().Msg("No generation backend configured, synthesis will fail over to error chunks")
	}

	var classifier detect.Classifier
	if fast := firstClient(secondary, primary); fast != nil {
		classifier = llm.NewQuestionClassifier(fast, cfg.LLM.ClassifyTimeout)
	}
	detector := detect.New(classifier, logger)

	var embedder embed.Embedder
	var vectorStore vector.Store
	if cfg.Embedding.APIKey != "" {
		embedder = embed.NewOpenAI(cfg.Embedding.APIKey, cfg.Embedding.BaseURL, cfg.Embedding.Model)

		qc := qdrant.New(qdrant.Config{
			BaseURL:    cfg.Qdrant.URL,
			Collection: cfg.Qdrant.Collection,
			VectorSize: cfg.Qdrant.VectorSize,
			Timeout:    cfg.Qdrant.Timeout,
		}, logger)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := qc.Ensure(ctx); err != nil {
			logger.Warn().Err(err).Msg("Vector store unavailable, semantic search disabled")
		} else {
			vectorStore = qc
		}
		cancel()
	} else {
		logger.Info().Msg("No embedding backend configured, semantic search disabled")
	}

	decomposer := match.NewDecomposer(firstClient(secondary, primary), cfg.Matching.DecomposeTimeout)

	orchestrator := answer.New(primary, secondary, strategy, answer.Config{
		DirectThreshold: cfg.Matching.DirectThreshold,
		GenerateTimeout: cfg.LLM.GenerateTimeout,
		Budgets: answer.Budgets{
			Short:    cfg.Answering.BudgetShort,
			Standard: cfg.Answering.BudgetStandard,
			DeepDive: cfg.Answering.BudgetDeepDive,
		},
	}, logger)

	publisher := events.New(&events.Config{
		Enabled:       cfg.Kafka.Enabled,
		Brokers:       cfg.Kafka.Brokers,
		TopicUsage:    cfg.Kafka.TopicUsage,
		TopicSessions: cfg.Kafka.TopicSessions,
		Principal:     cfg.Service.Principal,
	})
	defer publisher.Close()

	var profiles store.ProfileLoader
	if cfg.ProfileStore.BaseURL != "" {
		profiles = store.NewHTTPLoader(cfg.ProfileStore.BaseURL, cfg.ProfileStore.Timeout)
	}

	deps := session.Deps{
		STTFactory: sttFactory(cfg.STT.Provider),
		STTConfig: stt.Config{
			LanguageCode:   cfg.STT.LanguageCode,
			SampleRateHz:   cfg.STT.SampleRateHz,
			InterimResults: cfg.STT.InterimResults,
		},
		BridgeConfig: transcode.Config{
			Command:                transcode.FFmpegCommand(cfg.Transcode.FFmpegPath),
			FrameBytes:             cfg.Transcode.FrameBytes,
			ForwardTimeout:         cfg.Transcode.ForwardTimeout,
			MaxForwardAttempts:     cfg.Transcode.MaxForwardAttempts,
			RetryBackoff:           cfg.Transcode.ForwardRetryBackoff,
			MaxConsecutiveFailures: cfg.Transcode.MaxConsecutiveFailures,
		},
		Detector:     detector,
		Orchestrator: orchestrator,
		Decomposer:   decomposer,
		Embedder:     embedder,
		VectorStore:  vectorStore,
		MatchConfig: match.Config{
			FuzzyThreshold:     cfg.Matching.FuzzyThreshold,
			SemanticThreshold:  cfg.Matching.SemanticThreshold,
			ExactFlagThreshold: cfg.Matching.ExactFlagThreshold,
			TopK:               cfg.Matching.TopK,
			SearchTimeout:      cfg.Matching.SearchTimeout,
		},
		Profiles:  profiles,
		Publisher: publisher,
	}

	obsServer := observability.NewServer(cfg.Service.ObservabilityAddr)
	obsServer.Start()

	router := httpapi.NewRouter(session.NewHandler(deps, logger))

	srv := &http.Server{
		Addr:    ":" + cfg.Service.HTTPPort,
		Handler: router,
	}
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("Interview copilot listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP serve failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP shutdown failed")
	}
	if err := obsServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Observability shutdown failed")
	}
}

// firstClient returns the first non-nil client, preferring the cheaper
// one for classification and decomposition calls.
func firstClient(preferred, fallback llm.Client) llm.Client {
	if preferred != nil {
		return preferred
	}
	return fallback
}

func sttFactory(provider string) stt.Factory {
	switch provider {
	case "google":
		return sttgoogle.Factory{}
	default:
		return &sttmock.Factory{}
	}
}
