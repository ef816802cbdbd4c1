// Package answer turns matched candidates into the text shown to the
// candidate, either by serving a stored answer directly or by synthesizing
// one through a generation backend with failover.
package answer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"ai-interview-copilot/internal/llm"
	"ai-interview-copilot/internal/models"
	"ai-interview-copilot/internal/observability/metrics"
)

// ErrorChunk is the user-visible text emitted when every backend fails.
const ErrorChunk = "⚠️ Error generating answer. Please try again."

// ErrAllBackendsFailed reports that generation failed on every configured
// backend. The caller has already received ErrorChunk by then.
var ErrAllBackendsFailed = errors.New("all generation backends failed")

// deliveryError marks an emit failure so it is not mistaken for a backend
// failure during failover.
type deliveryError struct {
	err error
}

func (d *deliveryError) Error() string { return d.err.Error() }

func (d *deliveryError) Unwrap() error { return d.err }

// Budgets are the token budgets per question class.
type Budgets struct {
	Short    int
	DeepDive int
	Standard int
}

// Config tunes the orchestrator.
type Config struct {
	// DirectThreshold is the similarity above which the best candidate is
	// served verbatim without synthesis.
	DirectThreshold float64
	// GenerateTimeout bounds one backend attempt.
	GenerateTimeout time.Duration
	Budgets         Budgets
}

// Request carries everything synthesis needs for one question.
type Request struct {
	Question     models.DetectedQuestion
	Candidates   []models.MatchCandidate
	Context      *models.CandidateContext
	Profile      *models.InterviewProfile
	History      []models.HistoryEntry
	UsedExamples []string
}

// Orchestrator decides between direct retrieval and synthesis, and runs
// the primary/secondary failover for the latter.
type Orchestrator struct {
	primary   llm.Client
	secondary llm.Client
	strategy  llm.Strategy
	cfg       Config
	log       zerolog.Logger
	metrics   *metrics.Metrics
}

// New creates an orchestrator. Either client may be nil; Synthesize fails
// cleanly when no backend is available.
func New(primary, secondary llm.Client, strategy llm.Strategy, cfg Config, log zerolog.Logger) *Orchestrator {
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = 30 * time.Second
	}
	return &Orchestrator{
		primary:   primary,
		secondary: secondary,
		strategy:  strategy,
		cfg:       cfg,
		log:       log,
		metrics:   metrics.DefaultMetrics,
	}
}

// DirectMatch reports whether the best candidate qualifies for the
// zero-cost retrieval path.
func (o *Orchestrator) DirectMatch(candidates []models.MatchCandidate) (models.MatchCandidate, bool) {
	if len(candidates) == 0 {
		return models.MatchCandidate{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Similarity > best.Similarity {
			best = c
		}
	}
	if best.Similarity >= o.cfg.DirectThreshold {
		return best, true
	}
	return models.MatchCandidate{}, false
}

// Retrieve serves a stored answer directly. Usage memory is untouched on
// this path.
func (o *Orchestrator) Retrieve(question string, match models.MatchCandidate) models.GeneratedAnswer {
	o.metrics.AnswersDirect.Inc()
	return models.GeneratedAnswer{
		Question: question,
		Text:     match.Item.Answer,
		Source:   models.SourceRetrieved,
	}
}

// Synthesize generates an answer, streaming chunks through emit. The
// primary backend streams; on failure the secondary generates the whole
// answer and delivers it as a single chunk. When every backend fails the
// error chunk is emitted and ErrAllBackendsFailed returned.
func (o *Orchestrator) Synthesize(ctx context.Context, req Request, emit func(chunk string) error) (models.GeneratedAnswer, error) {
	messages := buildMessages(req)
	budget := budgetFor(req.Question.Text, o.cfg.Budgets)
	clients := o.strategy.Order(o.primary, o.secondary)

	start := time.Now()
	var full strings.Builder
	for i, client := range clients {
		genCtx, cancel := context.WithTimeout(ctx, o.cfg.GenerateTimeout)

		var err error
		if i == 0 {
			err = client.GenerateStream(genCtx, messages, budget, func(chunk string) error {
				full.WriteString(chunk)
				if emitErr := emit(chunk); emitErr != nil {
					return &deliveryError{emitErr}
				}
				return nil
			})
		} else {
			// Fallback attempts are non-streaming so a mid-stream primary
			// failure never interleaves output from two backends.
			var text string
			text, err = client.Generate(genCtx, messages, budget)
			if err == nil {
				full.Reset()
				full.WriteString(text)
				if emitErr := emit(text); emitErr != nil {
					err = &deliveryError{emitErr}
				}
			}
		}
		cancel()

		// A failed delivery means the client is gone; retrying another
		// backend cannot help.
		var dErr *deliveryError
		if errors.As(err, &dErr) {
			return models.GeneratedAnswer{}, dErr.err
		}

		if err == nil {
			answer := models.GeneratedAnswer{
				Question:     req.Question.Text,
				Text:         full.String(),
				Source:       models.SourceSynthesized,
				ExamplesUsed: ExtractExamples(full.String()),
			}
			o.metrics.AnswersSynthesized.Inc()
			o.observeLatency(models.SourceSynthesized, start)
			return answer, nil
		}

		o.log.Warn().Err(err).Str("backend", client.Name()).Msg("Generation attempt failed")
		if i < len(clients)-1 {
			o.metrics.GenerationFailover.Inc()
			full.Reset()
		}
	}

	o.metrics.GenerationFailed.Inc()
	if err := emit(ErrorChunk); err != nil {
		o.log.Warn().Err(err).Msg("Failed to deliver error chunk")
	}
	return models.GeneratedAnswer{}, ErrAllBackendsFailed
}

func (o *Orchestrator) observeLatency(source models.AnswerSource, start time.Time) {
	o.metrics.AnswerLatency.With(prometheus.Labels{"source": string(source)}).Observe(time.Since(start).Seconds())
}

// stallingTexts are shown immediately while generation is in flight.
var stallingTexts = map[models.QuestionType]string{
	models.QuestionBehavioral:  "Let me think of a good example...",
	models.QuestionTechnical:   "Good question, let me walk through it...",
	models.QuestionSituational: "Let me think through how I'd approach that...",
	models.QuestionGeneral:     "That's a great question...",
}

// StallingText returns a short type-appropriate phrase to display while
// the real answer is produced.
func StallingText(t models.QuestionType) string {
	if s, ok := stallingTexts[t]; ok {
		return s
	}
	return stallingTexts[models.QuestionGeneral]
}
