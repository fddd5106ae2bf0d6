package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Generator produces a text reply for a prompt under a system instruction.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
	Model() string
}

// ChatModel adapts a langchaingo model to Generator. Every call is bounded
// by the configured timeout.
type ChatModel struct {
	llm         llms.Model
	name        string
	timeout     time.Duration
	temperature float64
	maxTokens   int
}

var _ Generator = (*ChatModel)(nil)

// NewChatModel wraps an existing langchaingo model.
func NewChatModel(model llms.Model, name string, timeout time.Duration) *ChatModel {
	return &ChatModel{
		llm:         model,
		name:        name,
		timeout:     timeout,
		temperature: 0.8,
		maxTokens:   800,
	}
}

// NewOpenAIChat creates the remote chat model. An empty baseURL uses the
// public API.
func NewOpenAIChat(apiKey, baseURL, model string, timeout time.Duration) (*ChatModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key required")
	}
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai model: %w", err)
	}
	return NewChatModel(llm, "openai:"+model, timeout), nil
}

// NewOllamaChat creates the local chat model.
func NewOllamaChat(serverURL, model string, timeout time.Duration) (*ChatModel, error) {
	llm, err := ollama.New(
		ollama.WithModel(model),
		ollama.WithServerURL(serverURL),
	)
	if err != nil {
		return nil, fmt.Errorf("create ollama model: %w", err)
	}
	return NewChatModel(llm, "ollama:"+model, timeout), nil
}

func (m *ChatModel) Model() string {
	return m.name
}

// Generate sends the system instruction and prompt as a two-message chat.
func (m *ChatModel) Generate(ctx context.Context, system, prompt string) (string, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	var messages []llms.MessageContent
	if system != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, prompt))

	resp, err := m.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(m.temperature),
		llms.WithMaxTokens(m.maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", fmt.Errorf("generate: empty response")
	}
	return resp.Choices[0].Content, nil
}
