package answer

import (
	"fmt"
	"strings"

	"ai-interview-copilot/internal/llm"
)

// historyWindow bounds how many past turns feed the prompt.
const historyWindow = 4

// buildMessages assembles the synthesis request for a single question.
func buildMessages(req Request) []llm.Message {
	var sys strings.Builder
	sys.WriteString("You are an interview answer assistant. Answer in first person as the candidate. Be specific and conversational; lead with the direct answer, then one or two supporting points as short bullets.\n")

	if p := req.Profile; p != nil {
		if p.FullName != "" {
			fmt.Fprintf(&sys, "Candidate: %s.\n", p.FullName)
		}
		if p.TargetRole != "" {
			fmt.Fprintf(&sys, "Target role: %s.\n", p.TargetRole)
		}
		if p.TargetCompany != "" {
			fmt.Fprintf(&sys, "Target company: %s.\n", p.TargetCompany)
		}
		if p.Style != "" {
			fmt.Fprintf(&sys, "Preferred answer style: %s.\n", p.Style)
		}
		if p.CustomInstructions != "" {
			fmt.Fprintf(&sys, "Additional instructions: %s.\n", p.CustomInstructions)
		}
	}

	if c := req.Context; c != nil {
		if c.ResumeText != "" {
			sys.WriteString("\nCandidate resume:\n")
			sys.WriteString(c.ResumeText)
			sys.WriteString("\n")
		}
		if len(c.StarStories) > 0 {
			sys.WriteString("\nPrepared STAR stories:\n")
			for _, s := range c.StarStories {
				fmt.Fprintf(&sys, "- %s: situation: %s; task: %s; action: %s; result: %s\n",
					s.Title, s.Situation, s.Task, s.Action, s.Result)
			}
		}
		if len(c.TalkingPoints) > 0 {
			sys.WriteString("\nKey talking points to weave in where natural:\n")
			for _, tp := range c.TalkingPoints {
				fmt.Fprintf(&sys, "- %s\n", tp.Content)
			}
		}
	}

	if len(req.Candidates) > 0 {
		sys.WriteString("\nRelevant prepared answers:\n")
		for i, c := range req.Candidates {
			fmt.Fprintf(&sys, "%d. Q: %s\n   A: %s\n", i+1, c.Item.Question, c.Item.Answer)
		}
		if len(req.Candidates) > 1 {
			sys.WriteString("Combine the relevant prepared answers into one coherent response. Do not concatenate them.\n")
		} else {
			sys.WriteString("Adapt the prepared answer to the question as asked.\n")
		}
	}

	if len(req.UsedExamples) > 0 {
		sys.WriteString("\nExamples already used this interview, do not repeat them:\n")
		for _, ex := range req.UsedExamples {
			fmt.Fprintf(&sys, "- %s\n", ex)
		}
	}

	if isFrustrated(req.Question.Text) {
		sys.WriteString("\nThe interviewer sounds impatient. Answer directly and keep it very short.\n")
	}

	messages := []llm.Message{llm.System(sys.String())}

	history := req.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, h := range history {
		messages = append(messages, llm.User(h.Question), llm.Assistant(h.Answer))
	}

	messages = append(messages, llm.User(req.Question.Text))
	return messages
}

// frustrationMarkers flag interviewer impatience in the question itself.
var frustrationMarkers = []string{
	"just answer", "yes or no", "short answer", "quickly", "briefly",
	"again,", "i asked", "one word", "simple question",
}

func isFrustrated(question string) bool {
	lower := strings.ToLower(question)
	for _, marker := range frustrationMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// yes/no and deep-dive cues for budget classification.
var (
	yesNoPrefixes = []string{
		"do you", "did you", "have you", "are you", "were you", "will you",
		"would you say", "is it", "is that", "can you confirm",
	}
	deepDiveMarkers = []string{
		"walk me through", "in detail", "deep dive", "architecture",
		"end to end", "step by step", "elaborate", "tell me everything",
	}
)

// budgetFor classifies the question into a token budget. Frustration
// language halves whatever the classification yields.
func budgetFor(question string, budgets Budgets) int {
	lower := strings.ToLower(strings.TrimSpace(question))

	budget := budgets.Standard
	for _, m := range deepDiveMarkers {
		if strings.Contains(lower, m) {
			budget = budgets.DeepDive
			break
		}
	}
	if budget == budgets.Standard {
		for _, p := range yesNoPrefixes {
			if strings.HasPrefix(lower, p) {
				budget = budgets.Short
				break
			}
		}
	}

	if isFrustrated(question) {
		budget /= 2
	}
	return budget
}
