package detect

import (
	"regexp"

	"ai-interview-copilot/internal/models"
)

// Rule pairs a question type with its ordered pattern family. The families
// are evaluated in order; the first match assigns the type.
type Rule struct {
	Type     models.QuestionType
	Patterns []*regexp.Regexp
}

var rules = []Rule{
	{
		Type: models.QuestionBehavioral,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\btell me about a time\b`),
			regexp.MustCompile(`(?i)\bdescribe a (time|situation)\b`),
			regexp.MustCompile(`(?i)\bgive me an example\b`),
			regexp.MustCompile(`(?i)\bhow did you (handle|deal with|approach)\b`),
			regexp.MustCompile(`(?i)\bshare an experience\b`),
			regexp.MustCompile(`(?i)\bwalk me through a (time|project)\b`),
			regexp.MustCompile(`(?i)\btell me about (yourself|your background|your experience)\b`),
		},
	},
	{
		Type: models.QuestionSituational,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bwhat would you do\b`),
			regexp.MustCompile(`(?i)\bhow would you (handle|approach|respond|deal)\b`),
			regexp.MustCompile(`(?i)\bif you (were|had|found|noticed)\b`),
			regexp.MustCompile(`(?i)\bimagine (you|that|a)\b`),
			regexp.MustCompile(`(?i)\bsuppose (you|that|a)\b`),
		},
	},
	{
		Type: models.QuestionTechnical,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bhow (do|does|would) .{0,40}\bwork\b`),
			regexp.MustCompile(`(?i)\bwhat('s| is) the difference between\b`),
			regexp.MustCompile(`(?i)\bexplain (how|why|what)\b`),
			regexp.MustCompile(`(?i)\bhow would you (implement|design|build|optimize|debug|scale|test)\b`),
			regexp.MustCompile(`(?i)\bwhat happens (when|if)\b`),
			regexp.MustCompile(`(?i)\bwalk me through (your|the) (architecture|design|implementation|code)\b`),
		},
	},
	{
		Type: models.QuestionGeneral,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bwhy (do you want|are you interested|did you apply)\b`),
			regexp.MustCompile(`(?i)\bwhat are your (strengths|weaknesses|goals|expectations)\b`),
			regexp.MustCompile(`(?i)\bwhere do you see yourself\b`),
			regexp.MustCompile(`(?i)\bwhy should we hire you\b`),
			regexp.MustCompile(`(?i)\bwhat do you know about (us|our|the company)\b`),
			regexp.MustCompile(`(?i)\bdo you have any questions\b`),
		},
	},
}

// questionWords are leading interrogatives and cue phrases that mark a
// likely question even without a question mark.
var questionWords = []string{
	"what", "how", "why", "when", "where", "who", "which", "whose",
	"can you", "could you", "would you", "will you", "should you",
	"do you", "did you", "does", "have you", "has",
	"describe", "tell me", "explain", "share", "talk about",
	"give me", "walk me through", "think of",
}
