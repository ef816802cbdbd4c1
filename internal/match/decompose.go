package match

import (
	"context"
	"strings"
	"time"

	"ai-interview-copilot/internal/llm"
)

const decomposeSystemPrompt = `You split compound interview questions into independent sub-questions. Reply with one sub-question per line and nothing else. If the question is not compound, reply with the question unchanged on a single line.`

// maxSubQuestions caps fan-out per search cycle.
const maxSubQuestions = 3

// Decomposer splits a compound question into sub-questions for parallel
// semantic search. A nil client or any model failure falls back to the
// conjunction heuristic, so decomposition never blocks a search.
type Decomposer struct {
	client  llm.Client
	timeout time.Duration
}

func NewDecomposer(client llm.Client, timeout time.Duration) *Decomposer {
	return &Decomposer{client: client, timeout: timeout}
}

// Decompose returns 1 to maxSubQuestions sub-questions. The original
// question is always a valid result.
func (d *Decomposer) Decompose(ctx context.Context, question string) []string {
	if d.client != nil {
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		raw, err := d.client.Generate(ctx, []llm.Message{
			llm.System(decomposeSystemPrompt),
			llm.User(question),
		}, 200)
		if err == nil {
			if subs := parseSubQuestions(raw); len(subs) > 0 {
				return subs
			}
		}
	}
	return SplitHeuristic(question)
}

func parseSubQuestions(raw string) []string {
	var subs []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*0123456789. "))
		if len(strings.Fields(line)) >= 3 {
			subs = append(subs, line)
		}
		if len(subs) == maxSubQuestions {
			break
		}
	}
	return subs
}

// conjunctions that typically join independent asks in one utterance.
var conjunctions = []string{" and ", " but ", " however ", " also "}

// SplitHeuristic splits on coordinating conjunctions, keeping only
// segments long enough to stand alone as questions.
func SplitHeuristic(question string) []string {
	segments := []string{question}
	for _, conj := range conjunctions {
		var next []string
		for _, seg := range segments {
			next = append(next, strings.Split(seg, conj)...)
		}
		segments = next
	}

	var subs []string
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if len(strings.Fields(seg)) >= 3 {
			subs = append(subs, seg)
		}
		if len(subs) == maxSubQuestions {
			break
		}
	}

	if len(subs) == 0 {
		return []string{question}
	}
	return subs
}
