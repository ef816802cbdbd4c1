package session

import "ai-interview-copilot/internal/models"

// Inbound control message types.
const (
	TypeConfig         = "config"
	TypeContext        = "context"
	TypeClear          = "clear"
	TypeGenerateAnswer = "generate_answer"
	TypeFinalize       = "finalize"
)

// Outbound message types.
const (
	TypeTranscription     = "transcription"
	TypeQuestionDetected  = "question_detected"
	TypeAnswerTemporary   = "answer_temporary"
	TypeAnswerStreamStart = "answer_stream_start"
	TypeAnswerStreamChunk = "answer_stream_chunk"
	TypeAnswerStreamEnd   = "answer_stream_end"
	TypeAnswer            = "answer"
	TypeError             = "error"
	TypeCleared           = "cleared"
	TypeConfigAck         = "config_ack"
	TypeContextAck        = "context_ack"
	TypeFinalized         = "finalized"
)

// ClientMessage is the envelope for all inbound control messages. Fields
// are populated depending on Type.
type ClientMessage struct {
	Type string `json:"type"`

	// config
	Language string `json:"language,omitempty"`

	// context
	UserID        string                 `json:"user_id,omitempty"`
	ResumeText    string                 `json:"resume_text,omitempty"`
	StarStories   []models.StarStory     `json:"star_stories,omitempty"`
	TalkingPoints []models.TalkingPoint  `json:"talking_points,omitempty"`
	QAPairs       []models.KnowledgeItem `json:"qa_pairs,omitempty"`

	// generate_answer
	Question     string `json:"question,omitempty"`
	QuestionType string `json:"question_type,omitempty"`
}

// ServerMessage is the envelope for all outbound messages.
type ServerMessage struct {
	Type string `json:"type"`

	// transcription
	Text            string `json:"text,omitempty"`
	AccumulatedText string `json:"accumulated_text,omitempty"`
	IsFinal         bool   `json:"is_final,omitempty"`

	// question_detected, answer_*
	Question     string `json:"question,omitempty"`
	QuestionType string `json:"question_type,omitempty"`

	// answer paths
	Answer        string `json:"answer,omitempty"`
	Chunk         string `json:"chunk,omitempty"`
	Source        string `json:"source,omitempty"`
	MatchedItemID string `json:"matched_item_id,omitempty"`

	// error
	Message string `json:"message,omitempty"`

	// context_ack
	HasProfile bool `json:"has_profile,omitempty"`
}

func transcriptionMsg(text, accumulated string, isFinal bool) ServerMessage {
	return ServerMessage{
		Type:            TypeTranscription,
		Text:            text,
		AccumulatedText: accumulated,
		IsFinal:         isFinal,
	}
}

func questionDetectedMsg(q models.DetectedQuestion) ServerMessage {
	return ServerMessage{
		Type:         TypeQuestionDetected,
		Question:     q.Text,
		QuestionType: string(q.Type),
	}
}

func answerTemporaryMsg(text string) ServerMessage {
	return ServerMessage{Type: TypeAnswerTemporary, Answer: text}
}

func answerMsg(question string, answer models.GeneratedAnswer, matchedItemID string) ServerMessage {
	return ServerMessage{
		Type:          TypeAnswer,
		Question:      question,
		Answer:        answer.Text,
		Source:        string(answer.Source),
		MatchedItemID: matchedItemID,
	}
}

func streamStartMsg(question string) ServerMessage {
	return ServerMessage{
		Type:     TypeAnswerStreamStart,
		Question: question,
		Source:   string(models.SourceSynthesized),
	}
}

func streamChunkMsg(chunk string) ServerMessage {
	return ServerMessage{Type: TypeAnswerStreamChunk, Chunk: chunk}
}

func streamEndMsg(question string) ServerMessage {
	return ServerMessage{
		Type:     TypeAnswerStreamEnd,
		Question: question,
		Source:   string(models.SourceSynthesized),
	}
}

func errorMsg(message string) ServerMessage {
	return ServerMessage{Type: TypeError, Message: message}
}
