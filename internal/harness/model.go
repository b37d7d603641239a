package harness

import (
	"context"

	"github.com/xiaot623/gogo/harness/internal/adapter/llm"
)

// Model binds a client to the model name and sampling settings used by
// every agent of a session.
type Model struct {
	Client      llm.LLMClient
	Name        string
	Temperature float64
}

func (m Model) request(messages []llm.ChatMessage, tools []llm.Tool) *llm.ChatCompletionRequest {
	temperature := m.Temperature
	return &llm.ChatCompletionRequest{
		Model:       m.Name,
		Messages:    messages,
		Temperature: &temperature,
		Tools:       tools,
	}
}

func (m Model) complete(ctx context.Context, messages []llm.ChatMessage) (string, error) {
	resp, err := m.Client.CreateChatCompletion(ctx, m.request(messages, nil))
	if err != nil {
		return "", err
	}
	return resp.Content(), nil
}

// stream runs a streaming completion, calling onDelta with each text
// fragment, and returns the reassembled message.
func (m Model) stream(ctx context.Context, messages []llm.ChatMessage, tools []llm.Tool, onDelta func(string)) (*llm.StreamAccumulator, error) {
	acc := llm.NewStreamAccumulator()
	_, err := m.Client.CreateChatCompletionStream(ctx, m.request(messages, tools), func(chunk *llm.StreamChunk) error {
		if delta := acc.Add(chunk); delta != "" {
			onDelta(delta)
		}
		return nil
	})
	if err != nil {
		return acc, err
	}
	return acc, nil
}
