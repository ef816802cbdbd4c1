// Package llm provides chat-completion clients and the failover strategy
// used by answer generation. Backends are OpenAI-compatible; the base URL
// selects the actual provider.
package llm

import "context"

// Message is a single chat turn sent to a backend.
type Message struct {
	Role    string
	Content string
}

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Client is a chat-completion backend. Generate returns the full response
// at once; GenerateStream delivers it incrementally through emit, which is
// called once per content delta. A non-nil error from emit aborts the
// stream and is returned unwrapped.
type Client interface {
	Name() string
	Generate(ctx context.Context, messages []Message, maxTokens int) (string, error)
	GenerateStream(ctx context.Context, messages []Message, maxTokens int, emit func(chunk string) error) error
}

func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

func User(content string) Message { return Message{Role: RoleUser, Content: content} }

func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }
