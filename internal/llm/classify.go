package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-interview-copilot/internal/models"
)

const classifySystemPrompt = `You classify interviewer speech. Given a transcript fragment, decide whether it contains an interview question. Respond with exactly three lines:
IS_QUESTION: yes or no
QUESTION: the question text, cleaned of filler, or none
TYPE: behavioral, technical, situational, or general`

// QuestionClassifier is the stage-2 verifier for uncertain detections. It
// asks a fast model to confirm the verdict and clean up the question text.
type QuestionClassifier struct {
	client  Client
	timeout time.Duration
}

// NewQuestionClassifier wraps client with a per-call timeout.
func NewQuestionClassifier(client Client, timeout time.Duration) *QuestionClassifier {
	return &QuestionClassifier{client: client, timeout: timeout}
}

// ClassifyQuestion asks the backing model whether text is a question and of
// which type. The verdict carries high confidence since a model confirmed it.
func (q *QuestionClassifier) ClassifyQuestion(ctx context.Context, text string) (models.DetectedQuestion, error) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	raw, err := q.client.Generate(ctx, []Message{
		System(classifySystemPrompt),
		User(text),
	}, 100)
	if err != nil {
		return models.DetectedQuestion{}, fmt.Errorf("classify question: %w", err)
	}

	return parseClassification(raw, text)
}

func parseClassification(raw, original string) (models.DetectedQuestion, error) {
	var isQuestion bool
	question := original
	qType := models.QuestionGeneral

	for _, line := range strings.Split(raw, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(strings.ToUpper(key)) {
		case "IS_QUESTION":
			isQuestion = strings.EqualFold(value, "yes")
		case "QUESTION":
			if value != "" && !strings.EqualFold(value, "none") {
				question = value
			}
		case "TYPE":
			qType = parseQuestionType(value)
		}
	}

	if !isQuestion {
		return models.DetectedQuestion{Confidence: models.ConfidenceLow}, nil
	}
	return models.DetectedQuestion{
		Text:       question,
		Type:       qType,
		Confidence: models.ConfidenceHigh,
	}, nil
}

func parseQuestionType(s string) models.QuestionType {
	switch strings.ToLower(s) {
	case "behavioral":
		return models.QuestionBehavioral
	case "technical":
		return models.QuestionTechnical
	case "situational":
		return models.QuestionSituational
	default:
		return models.QuestionGeneral
	}
}
