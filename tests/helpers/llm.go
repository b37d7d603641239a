package helpers

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/xiaot623/gogo/harness/internal/adapter/llm"
)

// Reply is one scripted model answer.
type Reply struct {
	Content   string
	ToolCalls []llm.ToolCall
	Citations []json.RawMessage
	Err       error
	// Hook runs when the reply is picked, before anything is returned.
	Hook func()
}

type rule struct {
	match   string
	replies []Reply
	next    int
}

// ScriptedLLM is an llm.LLMClient that answers by matching a substring of
// the system prompt. Replies for a rule are consumed in order; the last one
// repeats.
type ScriptedLLM struct {
	mu        sync.Mutex
	rules     []*rule
	fallback  Reply
	requests  []llm.ChatCompletionRequest
	ChunkSize int
}

var _ llm.LLMClient = (*ScriptedLLM)(nil)

// NewScriptedLLM creates a scripted client whose unmatched calls return fallback text.
func NewScriptedLLM(fallback string) *ScriptedLLM {
	return &ScriptedLLM{fallback: Reply{Content: fallback}, ChunkSize: 8}
}

// On registers replies for requests whose system prompt contains match.
func (s *ScriptedLLM) On(match string, replies ...Reply) *ScriptedLLM {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, &rule{match: match, replies: replies})
	return s
}

// Text is shorthand for a plain content reply.
func Text(content string) Reply {
	return Reply{Content: content}
}

// ToolCall builds a streamed tool call reply preceded by draft text.
func ToolCall(draft, name, arguments string) Reply {
	return Reply{Content: draft, ToolCalls: []llm.ToolCall{{
		ID:       "call_1",
		Type:     "function",
		Function: llm.ToolCallFunction{Name: name, Arguments: arguments},
	}}}
}

// Requests returns every request received so far.
func (s *ScriptedLLM) Requests() []llm.ChatCompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.ChatCompletionRequest(nil), s.requests...)
}

// RequestsMatching returns requests whose system prompt contains match.
func (s *ScriptedLLM) RequestsMatching(match string) []llm.ChatCompletionRequest {
	var out []llm.ChatCompletionRequest
	for _, req := range s.Requests() {
		if strings.Contains(systemOf(req), match) {
			out = append(out, req)
		}
	}
	return out
}

func (s *ScriptedLLM) pick(req *llm.ChatCompletionRequest) Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, *req)
	system := systemOf(*req)
	for _, r := range s.rules {
		if !strings.Contains(system, r.match) || len(r.replies) == 0 {
			continue
		}
		reply := r.replies[r.next]
		if r.next < len(r.replies)-1 {
			r.next++
		}
		return reply
	}
	return s.fallback
}

func systemOf(req llm.ChatCompletionRequest) string {
	if len(req.Messages) > 0 && req.Messages[0].Role == "system" {
		return req.Messages[0].Content
	}
	return ""
}

func (s *ScriptedLLM) answer(ctx context.Context, req *llm.ChatCompletionRequest) (Reply, error) {
	reply := s.pick(req)
	if reply.Hook != nil {
		reply.Hook()
	}
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}
	return reply, reply.Err
}

// CreateChatCompletion returns the next scripted reply. A done ctx fails
// the call like a real transport would.
func (s *ScriptedLLM) CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	reply, err := s.answer(ctx, req)
	if err != nil {
		return nil, err
	}
	return &llm.ChatCompletionResponse{
		Choices: []llm.Choice{{Message: &llm.ChatMessage{
			Role:      "assistant",
			Content:   reply.Content,
			ToolCalls: reply.ToolCalls,
		}}},
		Citations: reply.Citations,
	}, nil
}

// CreateChatCompletionStream streams the next scripted reply in ChunkSize
// pieces, followed by its tool calls split into two argument fragments.
func (s *ScriptedLLM) CreateChatCompletionStream(ctx context.Context, req *llm.ChatCompletionRequest, callback llm.StreamCallback) (*llm.Usage, error) {
	reply, err := s.answer(ctx, req)
	if err != nil {
		return nil, err
	}

	size := s.ChunkSize
	if size <= 0 {
		size = len(reply.Content) + 1
	}
	content := []rune(reply.Content)
	for i := 0; i < len(content); i += size {
		end := i + size
		if end > len(content) {
			end = len(content)
		}
		if err := callback(deltaChunk(llm.ChatMessage{Content: string(content[i:end])}, reply.Citations)); err != nil {
			return nil, err
		}
	}

	for i, tc := range reply.ToolCalls {
		idx := i
		args := tc.Function.Arguments
		half := len(args) / 2
		first := llm.ToolCall{Index: &idx, ID: tc.ID, Type: tc.Type, Function: llm.ToolCallFunction{Name: tc.Function.Name, Arguments: args[:half]}}
		second := llm.ToolCall{Index: &idx, Function: llm.ToolCallFunction{Arguments: args[half:]}}
		for _, part := range []llm.ToolCall{first, second} {
			if err := callback(deltaChunk(llm.ChatMessage{ToolCalls: []llm.ToolCall{part}}, nil)); err != nil {
				return nil, err
			}
		}
	}
	return &llm.Usage{}, nil
}

func deltaChunk(delta llm.ChatMessage, citations []json.RawMessage) *llm.StreamChunk {
	return &llm.StreamChunk{
		Object:    "chat.completion.chunk",
		Choices:   []llm.Choice{{Delta: &delta}},
		Citations: citations,
	}
}
