package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MockClient is a deterministic LLMClient for offline runs. It recognizes
// the harness prompts and answers each with a well-formed reply.
type MockClient struct{}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements LLMClient interface.
var _ LLMClient = (*MockClient)(nil)

// CreateChatCompletion returns a mock response.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	responseContent := m.generateMockResponse(req)

	resp := &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{
			{
				Index: 0,
				Message: &ChatMessage{
					Role:    "assistant",
					Content: responseContent,
				},
				FinishReason: "stop",
			},
		},
		Usage: m.usage(req, responseContent),
	}
	if req.SearchParameters != nil && req.SearchParameters.ReturnCitations {
		resp.Citations = []json.RawMessage{json.RawMessage(`"https://www.legislation.gov.uk/"`)}
	}
	return resp, nil
}

// CreateChatCompletionStream simulates a streaming response.
func (m *MockClient) CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) (*Usage, error) {
	responseContent := m.generateMockResponse(req)
	id := fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano())
	created := time.Now().Unix()

	// Simulate streaming by sending content in chunks
	chunks := m.splitIntoChunks(responseContent, 10)

	for i, chunk := range chunks {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		finishReason := ""
		if i == len(chunks)-1 {
			finishReason = "stop"
		}

		streamChunk := &StreamChunk{
			ID:      id,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   req.Model,
			Choices: []Choice{
				{
					Index: 0,
					Delta: &ChatMessage{
						Role:    "assistant",
						Content: chunk,
					},
					FinishReason: finishReason,
				},
			},
		}

		if err := callback(streamChunk); err != nil {
			return nil, err
		}
	}

	return m.usage(req, responseContent), nil
}

// generateMockResponse picks a canned reply by looking at the system prompt.
func (m *MockClient) generateMockResponse(req *ChatCompletionRequest) string {
	system := ""
	if len(req.Messages) > 0 && req.Messages[0].Role == "system" {
		system = req.Messages[0].Content
	}
	lastUserMessage := m.lastUserMessage(req)

	switch {
	case strings.Contains(system, "Task Creator Agent"):
		return `Thanks, that is specific enough to work with. {"action":"create_tasks","reasoning":"[MOCK] The request names a legal area and jurisdiction.","ready":true}`
	case strings.Contains(system, "expert task planner"):
		return `[
  {"id": 1, "description": "Test knowledge of the limitation period for the claim", "priority": "high", "category": "limitation periods"},
  {"id": 2, "description": "Test understanding of the main defences available", "priority": "medium", "category": "defences"}
]`
	case strings.Contains(system, "Task Executor Agent"):
		plan, _ := json.Marshal(map[string]interface{}{
			"question":        fmt.Sprintf("[MOCK] %s. What does the law say?", truncate(firstLine(lastUserMessage), 80)),
			"reasoning":       "[MOCK] Probes the task directly.",
			"expected_topics": []string{"legislation", "case law"},
		})
		return string(plan)
	case strings.Contains(system, "determine if the task has been fully tested"):
		return `{"continue": false, "reason": "[MOCK] The lawyer covered the expected topics.", "followUpQuestion": null}`
	case strings.Contains(system, "expert legal evaluator"):
		return `{"coverage": "yes", "accuracy": "good", "completeness": "complete", "score": 7}`
	case strings.Contains(system, "legal research assistant"):
		return fmt.Sprintf("## [MOCK] Research results\n\n- Findings for %q", truncate(lastUserMessage, 100))
	case len(req.Tools) > 0:
		return fmt.Sprintf("[MOCK] Lawyer answer to: %q", truncate(lastUserMessage, 100))
	}

	if lastUserMessage == "" {
		return "[MOCK] This is a mock response from the LLM client."
	}
	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(lastUserMessage, 100))
}

func (m *MockClient) lastUserMessage(req *ChatCompletionRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].Content
		}
	}
	return ""
}

func (m *MockClient) usage(req *ChatCompletionRequest, content string) *Usage {
	prompt := m.estimateTokens(req)
	return &Usage{
		PromptTokens:     prompt,
		CompletionTokens: len(content) / 4,
		TotalTokens:      prompt + len(content)/4,
	}
}

// estimateTokens provides a rough token count estimate.
func (m *MockClient) estimateTokens(req *ChatCompletionRequest) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	return total
}

// splitIntoChunks splits a string into chunks of approximately the given size.
func (m *MockClient) splitIntoChunks(s string, chunkSize int) []string {
	if len(s) == 0 {
		return []string{""}
	}

	var chunks []string
	for i := 0; i < len(s); i += chunkSize {
		end := i + chunkSize
		if end > len(s) {
			end = len(s)
		}
		chunks = append(chunks, s[i:end])
	}
	return chunks
}

func firstLine(s string) string {
	s = strings.TrimPrefix(s, "Task to execute: ")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
