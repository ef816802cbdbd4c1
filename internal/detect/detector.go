// Package detect classifies finalized transcript text as question or not,
// assigns a type, and gates on completeness before downstream matching.
//
// Detection is two-staged: a compiled rule set handles the fast path, and
// an external classifier is consulted only for uncertain positives.
package detect

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"ai-interview-copilot/internal/models"
	"ai-interview-copilot/internal/observability/metrics"
)

// Classifier confirms or overrides an uncertain rule-set verdict.
// Implementations may call out to a language model; latency is bounded by
// the caller's context.
type Classifier interface {
	ClassifyQuestion(ctx context.Context, text string) (models.DetectedQuestion, error)
}

// Detector runs the two-stage question detection pipeline. Only one
// detection pass runs at a time per session; the session serializes calls.
type Detector struct {
	classifier Classifier
	log        zerolog.Logger
	metrics    *metrics.Metrics
}

// New creates a detector. classifier may be nil, in which case stage 2 is
// skipped and the rule-set verdict stands.
func New(classifier Classifier, log zerolog.Logger) *Detector {
	return &Detector{
		classifier: classifier,
		log:        log,
		metrics:    metrics.DefaultMetrics,
	}
}

// Detect classifies the given final transcript text.
func (d *Detector) Detect(ctx context.Context, text string) models.DetectedQuestion {
	result := DetectFast(text)

	// Stage 2 only for uncertain positives: the expensive call is not
	// worth it when the rule set already matched a pattern, and there is
	// nothing to verify when nothing looked like a question at all.
	if result.Confidence == models.ConfidenceMedium && result.Text != "" && d.classifier != nil {
		d.metrics.Stage2Classification.Inc()
		d.log.Debug().Str("text", text).Msg("Uncertain detection, escalating to classifier")

		verified, err := d.classifier.ClassifyQuestion(ctx, text)
		if err != nil {
			d.log.Warn().Err(err).Msg("Classifier failed, keeping rule-set verdict")
		} else {
			verified.Complete = IsComplete(verified.Text)
			return verified
		}
	}

	return result
}

// DetectFast is the stage-1 rule-set pass.
func DetectFast(text string) models.DetectedQuestion {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return models.DetectedQuestion{Confidence: models.ConfidenceLow}
	}

	hasMark := strings.Contains(trimmed, "?")
	hasLeading := hasLeadingInterrogative(trimmed)
	qType, patternHit := matchRules(trimmed)

	var confidence models.Confidence
	switch {
	case patternHit:
		confidence = models.ConfidenceHigh
	case hasMark || hasLeading:
		confidence = models.ConfidenceMedium
	default:
		confidence = models.ConfidenceLow
	}

	isQuestion := hasMark || hasLeading || patternHit
	if !isQuestion {
		return models.DetectedQuestion{Confidence: confidence}
	}

	return models.DetectedQuestion{
		Text:       trimmed,
		Type:       qType,
		Confidence: confidence,
		Complete:   IsComplete(trimmed),
	}
}

// IsLikelyQuestion is a cheap pre-filter applied before detection to avoid
// running the pipeline on obvious non-questions.
func IsLikelyQuestion(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 5 {
		return false
	}

	lower := strings.ToLower(trimmed)
	if strings.Contains(lower, "?") {
		return true
	}
	padded := " " + lower + " "
	for _, w := range questionWords {
		if strings.HasPrefix(lower, w) || strings.Contains(padded, " "+w+" ") {
			return true
		}
	}

	// Short text with no question indicators is not a question; longer
	// text is ambiguous enough to let the detector decide.
	return len(strings.Fields(trimmed)) >= 8
}

// IsComplete reports whether a question appears finished: a question mark
// ends it, or it is long enough (≥8 words), or it ends in terminal
// punctuation with at least 5 words. Incomplete questions wait for more
// transcript rather than firing early.
func IsComplete(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}

	if strings.HasSuffix(trimmed, "?") {
		return true
	}

	words := len(strings.Fields(trimmed))
	if words >= 8 {
		return true
	}

	terminal := strings.HasSuffix(trimmed, ".") || strings.HasSuffix(trimmed, "!")
	return terminal && words >= 5
}

func hasLeadingInterrogative(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range questionWords {
		if strings.HasPrefix(lower, w) {
			return true
		}
	}
	return false
}

func matchRules(text string) (models.QuestionType, bool) {
	for _, rule := range rules {
		for _, p := range rule.Patterns {
			if p.MatchString(text) {
				return rule.Type, true
			}
		}
	}
	return models.QuestionGeneral, false
}
