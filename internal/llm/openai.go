package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient talks to any OpenAI-compatible chat-completion endpoint.
// BaseURL overrides allow pointing the same client at GLM, OpenRouter or a
// local proxy.
type OpenAIClient struct {
	client *openai.Client
	name   string
	model  string
}

// NewOpenAI builds a client for the given backend. name is used in logs
// and failover reporting, not on the wire.
func NewOpenAI(name, apiKey, baseURL, model string) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		name:   name,
		model:  model,
	}
}

func (c *OpenAIClient) Name() string { return c.name }

// Generate runs a non-streaming chat completion.
func (c *OpenAIClient) Generate(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  toOpenAIMessages(messages),
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response from %s", c.name)
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateStream runs a streaming chat completion, invoking emit for every
// content delta in arrival order.
func (c *OpenAIClient) GenerateStream(ctx context.Context, messages []Message, maxTokens int, emit func(chunk string) error) error {
	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  toOpenAIMessages(messages),
		MaxTokens: maxTokens,
		Stream:    true,
	})
	if err != nil {
		return fmt.Errorf("chat completion stream: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stream recv: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if err := emit(delta); err != nil {
			return err
		}
	}
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
