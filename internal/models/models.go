// Package models defines the data structures shared across the interview
// response pipeline.
package models

import "time"

// QuestionType classifies an interview question.
type QuestionType string

const (
	QuestionBehavioral  QuestionType = "behavioral"
	QuestionTechnical   QuestionType = "technical"
	QuestionSituational QuestionType = "situational"
	QuestionGeneral     QuestionType = "general"
)

// TranscriptEvent is one transcription result for the current turn.
// Interim events supersede each other; a final event closes the turn.
type TranscriptEvent struct {
	Text       string
	IsFinal    bool
	TurnID     int
	Confidence float64
}

// DetectedQuestion is the question detector's verdict on a final transcript.
type DetectedQuestion struct {
	Text       string
	Type       QuestionType
	Confidence Confidence
	Complete   bool
}

// Confidence is the detector's confidence in its classification.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// KnowledgeItem is one prepared answer supplied by the candidate.
// Immutable for the lifetime of a session.
type KnowledgeItem struct {
	ID         string       `json:"id"`
	Question   string       `json:"question"`
	Variations []string     `json:"variations,omitempty"`
	Answer     string       `json:"answer"`
	Type       QuestionType `json:"question_type,omitempty"`
}

// MatchKind identifies which tier of the matching cascade produced a candidate.
type MatchKind string

const (
	MatchExact    MatchKind = "exact"
	MatchFuzzy    MatchKind = "fuzzy"
	MatchSemantic MatchKind = "semantic"
)

// MatchCandidate is one scored knowledge item returned by the matcher.
type MatchCandidate struct {
	Item       KnowledgeItem
	Similarity float64
	Kind       MatchKind
	// ExactMatch flags semantic-tier candidates scoring high enough to be
	// treated as exact for prompting purposes.
	ExactMatch bool
}

// AnswerSource says where an answer came from.
type AnswerSource string

const (
	SourceRetrieved   AnswerSource = "retrieved"
	SourceSynthesized AnswerSource = "synthesized"
)

// GeneratedAnswer is the orchestrator's final output for one question.
type GeneratedAnswer struct {
	Question     string
	Text         string
	Source       AnswerSource
	ExamplesUsed []string
}

// UsageEvent records a question asked and the example anecdotes spent
// answering it, scoped to one session. Append-only.
type UsageEvent struct {
	Question      string    `json:"question"`
	ExamplesUsed  []string  `json:"examples_used,omitempty"`
	MatchedItemID string    `json:"matched_item_id,omitempty"`
	Source        string    `json:"source"`
	Timestamp     time.Time `json:"timestamp"`
}

// StarStory is one prepared Situation/Task/Action/Result anecdote.
type StarStory struct {
	Title     string `json:"title"`
	Situation string `json:"situation"`
	Task      string `json:"task"`
	Action    string `json:"action"`
	Result    string `json:"result"`
}

// TalkingPoint is one key point the candidate wants to land.
type TalkingPoint struct {
	Content string `json:"content"`
}

// CandidateContext is the candidate's prepared material for one session.
type CandidateContext struct {
	ResumeText    string          `json:"resume_text"`
	StarStories   []StarStory     `json:"star_stories"`
	TalkingPoints []TalkingPoint  `json:"talking_points"`
	QAPairs       []KnowledgeItem `json:"qa_pairs"`
}

// InterviewProfile carries per-user personalization for prompt building.
type InterviewProfile struct {
	FullName           string `json:"full_name"`
	TargetRole         string `json:"target_role"`
	TargetCompany      string `json:"target_company"`
	Style              string `json:"style"`
	CustomInstructions string `json:"custom_instructions"`
}

// HistoryEntry is one completed question/answer turn within a session.
type HistoryEntry struct {
	Question string
	Answer   string
	Source   AnswerSource
}
