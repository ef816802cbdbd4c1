package answer

import "regexp"

// examplePattern picks out capitalized phrases following cue verbs, the
// anecdotes a synthesized answer spends. Tracking them lets later prompts
// steer the model away from repetition.
var examplePattern = regexp.MustCompile(
	`\b(?:built|led|created|developed|designed|launched|managed|implemented|at)\s+([A-Z][\w&-]*(?:(?:\s+(?:of|the|and))?\s+[A-Z][\w&-]*)*)`,
)

// maxTrackedExamples bounds usage memory growth per answer.
const maxTrackedExamples = 5

// ExtractExamples returns the distinct example phrases mentioned in an
// answer, in order of first appearance.
func ExtractExamples(text string) []string {
	matches := examplePattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	var examples []string
	for _, m := range matches {
		phrase := m[1]
		if _, ok := seen[phrase]; ok {
			continue
		}
		seen[phrase] = struct{}{}
		examples = append(examples, phrase)
		if len(examples) == maxTrackedExamples {
			break
		}
	}
	return examples
}
