package llm

import (
	"encoding/json"
	"sort"
	"strings"
)

// StreamAccumulator rebuilds a complete assistant message from stream
// chunks. Tool call fragments are merged by their delta index.
type StreamAccumulator struct {
	content   strings.Builder
	calls     map[int]*ToolCall
	order     []int
	citations []json.RawMessage
}

// NewStreamAccumulator creates an empty accumulator.
func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{calls: make(map[int]*ToolCall)}
}

// Add merges chunk and returns the text delta it carried.
func (a *StreamAccumulator) Add(chunk *StreamChunk) string {
	if len(chunk.Citations) > 0 {
		a.citations = chunk.Citations
	}
	var text strings.Builder
	for _, choice := range chunk.Choices {
		if choice.Delta == nil {
			continue
		}
		text.WriteString(choice.Delta.Content)
		for i, tc := range choice.Delta.ToolCalls {
			idx := i
			if tc.Index != nil {
				idx = *tc.Index
			}
			call, ok := a.calls[idx]
			if !ok {
				call = &ToolCall{Type: "function"}
				a.calls[idx] = call
				a.order = append(a.order, idx)
			}
			if tc.ID != "" {
				call.ID = tc.ID
			}
			if tc.Type != "" {
				call.Type = tc.Type
			}
			if tc.Function.Name != "" {
				call.Function.Name = tc.Function.Name
			}
			call.Function.Arguments += tc.Function.Arguments
		}
	}
	a.content.WriteString(text.String())
	return text.String()
}

// Content returns all text received so far.
func (a *StreamAccumulator) Content() string {
	return a.content.String()
}

// ToolCalls returns the merged tool calls ordered by index.
func (a *StreamAccumulator) ToolCalls() []ToolCall {
	idx := append([]int(nil), a.order...)
	sort.Ints(idx)
	calls := make([]ToolCall, 0, len(idx))
	for _, i := range idx {
		calls = append(calls, *a.calls[i])
	}
	return calls
}

// Citations returns the last citation metadata seen on the stream.
func (a *StreamAccumulator) Citations() []json.RawMessage {
	return a.citations
}
