package detect

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"ai-interview-copilot/internal/models"
)

func TestIsComplete(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"ok", false},
		{"tell me", false},
		{"Yes?", true},
		{"What would you do if this happened to you", true}, // 8+ words
		{"Describe your last project.", false},              // 4 words, terminal punctuation
		{"Describe your last big project for me.", true},    // 5+ words + terminal punctuation
		{"Tell me about yourself?", true},
		{"", false},
	}
	for _, tc := range tests {
		if got := IsComplete(tc.text); got != tc.want {
			t.Errorf("IsComplete(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestIsLikelyQuestion(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"ok", false},
		{"Thanks for joining today", false},
		{"Tell me about yourself", true},
		{"Is that your final answer?", true},
		{"So the next thing on my list here involves your experience", true}, // long, ambiguous
		{"could you walk me through your resume", true},
	}
	for _, tc := range tests {
		if got := IsLikelyQuestion(tc.text); got != tc.want {
			t.Errorf("IsLikelyQuestion(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestDetectFast_Types(t *testing.T) {
	tests := []struct {
		text string
		want models.QuestionType
	}{
		{"Tell me about a time you failed", models.QuestionBehavioral},
		{"Tell me about yourself", models.QuestionBehavioral},
		{"What would you do if a teammate missed a deadline?", models.QuestionSituational},
		{"How would you handle an angry customer?", models.QuestionSituational},
		{"What is the difference between a mutex and a semaphore?", models.QuestionTechnical},
		{"Explain how garbage collection works", models.QuestionTechnical},
		{"Why do you want this role?", models.QuestionGeneral},
		{"Where do you see yourself in five years?", models.QuestionGeneral},
	}
	for _, tc := range tests {
		got := DetectFast(tc.text)
		if got.Text == "" {
			t.Errorf("DetectFast(%q): not detected as a question", tc.text)
			continue
		}
		if got.Type != tc.want {
			t.Errorf("DetectFast(%q).Type = %s, want %s", tc.text, got.Type, tc.want)
		}
	}
}

func TestDetectFast_Confidence(t *testing.T) {
	// Pattern match: high.
	if got := DetectFast("Tell me about a time you failed"); got.Confidence != models.ConfidenceHigh {
		t.Errorf("pattern match confidence = %s, want high", got.Confidence)
	}
	// Question mark only: medium.
	if got := DetectFast("Node or Deno?"); got.Confidence != models.ConfidenceMedium {
		t.Errorf("mark-only confidence = %s, want medium", got.Confidence)
	}
	// Leading interrogative only: medium.
	if got := DetectFast("what kind of teams energize you the most then"); got.Confidence != models.ConfidenceMedium {
		t.Errorf("leading-word confidence = %s, want medium", got.Confidence)
	}
	// No indicators at all: low, not a question.
	got := DetectFast("I really enjoyed our conversation so far")
	if got.Confidence != models.ConfidenceLow || got.Text != "" {
		t.Errorf("non-question = %+v, want low confidence and empty text", got)
	}
}

type fakeClassifier struct {
	calls  int
	result models.DetectedQuestion
	err    error
}

func (f *fakeClassifier) ClassifyQuestion(ctx context.Context, text string) (models.DetectedQuestion, error) {
	f.calls++
	return f.result, f.err
}

func TestDetect_Stage2OnlyWhenUncertain(t *testing.T) {
	fc := &fakeClassifier{result: models.DetectedQuestion{
		Text:       "Node or Deno?",
		Type:       models.QuestionTechnical,
		Confidence: models.ConfidenceHigh,
		Complete:   true,
	}}
	d := New(fc, zerolog.Nop())

	// High-confidence fast path never escalates.
	d.Detect(context.Background(), "Tell me about a time you failed")
	if fc.calls != 0 {
		t.Errorf("classifier called %d times for high-confidence detection", fc.calls)
	}

	// Non-question doesn't escalate either (nothing to verify).
	d.Detect(context.Background(), "I really enjoyed our conversation so far")
	if fc.calls != 0 {
		t.Errorf("classifier called %d times for non-question", fc.calls)
	}

	// Mark-only positive is uncertain and goes to stage 2.
	got := d.Detect(context.Background(), "Node or Deno?")
	if fc.calls != 1 {
		t.Fatalf("classifier called %d times for uncertain detection, want 1", fc.calls)
	}
	if got.Type != models.QuestionTechnical || got.Confidence != models.ConfidenceHigh {
		t.Errorf("classifier verdict not applied: %+v", got)
	}
}

func TestDetect_ClassifierFailureKeepsVerdict(t *testing.T) {
	fc := &fakeClassifier{err: errors.New("backend down")}
	d := New(fc, zerolog.Nop())

	got := d.Detect(context.Background(), "Node or Deno?")
	if fc.calls != 1 {
		t.Fatalf("classifier called %d times, want 1", fc.calls)
	}
	if got.Text == "" || got.Confidence != models.ConfidenceMedium {
		t.Errorf("rule-set verdict lost after classifier failure: %+v", got)
	}
}

func TestDetect_CompletenessCarried(t *testing.T) {
	d := New(nil, zerolog.Nop())

	got := d.Detect(context.Background(), "Tell me about")
	if got.Text != "" && got.Complete {
		t.Error("short fragment marked complete")
	}

	got = d.Detect(context.Background(), "Tell me about yourself?")
	if !got.Complete {
		t.Error("question ending in ? not marked complete")
	}
}
