package harness

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/xiaot623/gogo/harness/internal/adapter/llm"
	"github.com/xiaot623/gogo/harness/internal/protocol"
	"github.com/xiaot623/gogo/harness/internal/tools"
)

const lawyerHistoryWindow = 10

// LawyerAgent adapts the lawyer chat agent under test. It keeps its own
// rolling history and runs at most one tool call per message.
type LawyerAgent struct {
	model        Model
	agentType    string
	country      string
	systemPrompt string
	tools        *tools.Registry
	history      []llm.ChatMessage
}

// NewLawyerAgent creates an agent for agentType and country with an empty history.
func NewLawyerAgent(model Model, agentType, country, systemPrompt string, registry *tools.Registry) *LawyerAgent {
	if registry == nil {
		registry = tools.NewRegistry(nil)
	}
	return &LawyerAgent{
		model:        model,
		agentType:    agentType,
		country:      country,
		systemPrompt: systemPrompt,
		tools:        registry,
	}
}

// AgentType returns the agent family this adapter was built for.
func (a *LawyerAgent) AgentType() string { return a.agentType }

// Country returns the jurisdiction this adapter was built for.
func (a *LawyerAgent) Country() string { return a.country }

// History returns the rolling conversation history.
func (a *LawyerAgent) History() []llm.ChatMessage {
	return append([]llm.ChatMessage(nil), a.history...)
}

// ResetConversation clears the rolling history.
func (a *LawyerAgent) ResetConversation() {
	a.history = nil
	log.Printf("INFO: Lawyer AI: conversation history reset")
}

// SendMessage sends text to the agent and returns its final answer. Model
// failures come back as an error string.
func (a *LawyerAgent) SendMessage(ctx context.Context, emit Emitter, text string) string {
	log.Printf("INFO: Lawyer AI (%s, %s): processing message: %s", a.agentType, a.country, preview(text, 100))

	messages := []llm.ChatMessage{{Role: "system", Content: a.systemPrompt}}
	window := a.history
	if len(window) > lawyerHistoryWindow {
		window = window[len(window)-lawyerHistoryWindow:]
	}
	messages = append(messages, window...)
	messages = append(messages, llm.ChatMessage{Role: "user", Content: text})

	drafted := false
	acc, err := a.model.stream(ctx, messages, a.tools.Declarations(), func(delta string) {
		drafted = true
		emit.Emit(protocol.LawyerStream(delta))
	})
	if err != nil {
		log.Printf("ERROR: Lawyer AI error: %v", err)
		answer := fmt.Sprintf("Error communicating with agent: %s", err.Error())
		if drafted {
			emit.Emit(protocol.ClearStream(protocol.AgentHomeChatAI))
		}
		emit.Emit(protocol.LawyerMessage(answer, nil))
		return answer
	}

	answer, handled := a.runToolCall(ctx, emit, acc.ToolCalls())
	if !handled {
		answer = acc.Content()
		emit.Emit(protocol.LawyerMessage(answer, acc.Citations()))
	}

	a.history = append(a.history,
		llm.ChatMessage{Role: "user", Content: text},
		llm.ChatMessage{Role: "assistant", Content: answer},
	)
	log.Printf("INFO: Lawyer AI: generated response (%d chars)", len(answer))
	return answer
}

// runToolCall executes the first requested tool call. It reports false when
// there is none, or when the call cannot be parsed, is refused by policy, or
// names no registered tool; the streamed text then stands as the answer.
func (a *LawyerAgent) runToolCall(ctx context.Context, emit Emitter, calls []llm.ToolCall) (string, bool) {
	if len(calls) == 0 {
		return "", false
	}
	call := calls[0]

	query, err := tools.ParseQuery(call.Function.Arguments)
	if err != nil {
		log.Printf("ERROR: [LAWYER_AI] Failed to parse tool call args for %s: %v", call.Function.Name, err)
		return "", false
	}

	inv := tools.Invocation{Name: call.Function.Name, Query: query, Country: a.country}
	if err := a.tools.Authorize(ctx, inv); err != nil {
		if errors.Is(err, tools.ErrBlocked) {
			log.Printf("WARN: [LAWYER_AI] %v", err)
		} else {
			log.Printf("ERROR: [LAWYER_AI] %v", err)
		}
		return "", false
	}
	if !a.tools.Has(inv.Name) {
		log.Printf("WARN: [LAWYER_AI] no executor registered for %s", inv.Name)
		return "", false
	}

	log.Printf("INFO: [LAWYER_AI] Detected %s tool call, query: %s", inv.Name, preview(query, 100))
	emit.Emit(protocol.ClearStream(protocol.AgentHomeChatAI))
	emit.Emit(protocol.LawyerToolCall(inv.Name, query))

	out, err := a.tools.Execute(ctx, inv)
	if err != nil {
		out = tools.Output{Error: err.Error()}
	}
	if !out.Success {
		log.Printf("ERROR: [LAWYER_AI] %s failed: %s", inv.Name, out.Error)
		answer := fmt.Sprintf("I attempted to search for legal information but encountered an error: %s", out.Error)
		emit.Emit(protocol.LawyerMessage(answer, nil))
		return answer, true
	}

	log.Printf("INFO: [LAWYER_AI] %s returned %d characters", inv.Name, len(out.Content))
	emit.Emit(protocol.LawyerMessage(out.Content, out.Sources))
	return out.Content, true
}
