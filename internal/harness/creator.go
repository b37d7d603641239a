package harness

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/xiaot623/gogo/harness/internal/adapter/llm"
	"github.com/xiaot623/gogo/harness/internal/domain"
	"github.com/xiaot623/gogo/harness/internal/protocol"
)

const (
	creatorContextWindow = 10
	readyMessage         = "I have gathered enough information. Creating test tasks now..."
)

// Decision is the Task Creator's verdict on the dialogue so far.
type Decision struct {
	Action    domain.CreatorAction `json:"action"`
	Question  string               `json:"question,omitempty"`
	Reasoning string               `json:"reasoning"`
}

// CreatorOutcome tells the orchestrator whether to wait for the operator.
type CreatorOutcome struct {
	NeedsMoreInfo bool
	Question      string
}

type historyEntry struct {
	msg domain.Message
	at  time.Time
}

// TaskCreator holds the clarification dialogue with the operator and turns
// it into tasks.
type TaskCreator struct {
	model   Model
	history []historyEntry
}

// NewTaskCreator creates a Task Creator with an empty history.
func NewTaskCreator(model Model) *TaskCreator {
	return &TaskCreator{model: model}
}

// History returns the dialogue in conversation order.
func (c *TaskCreator) History() []domain.Message {
	out := make([]domain.Message, len(c.history))
	for i, e := range c.history {
		out[i] = e.msg
	}
	return out
}

// Transcript returns the dialogue with the time each message was recorded.
func (c *TaskCreator) Transcript() []domain.TranscriptMessage {
	out := make([]domain.TranscriptMessage, len(c.history))
	for i, e := range c.history {
		out[i] = domain.TranscriptMessage{Role: e.msg.Role, Content: e.msg.Content, Timestamp: e.at}
	}
	return out
}

func (c *TaskCreator) append(role domain.Role, content string) {
	c.history = append(c.history, historyEntry{msg: domain.Message{Role: role, Content: content}, at: time.Now().UTC()})
}

// Decide appends userMessage and asks the model whether enough is known to
// create tasks. Any failure to obtain or parse a decision counts as ready.
func (c *TaskCreator) Decide(ctx context.Context, emit Emitter, userMessage, agentType, country string) CreatorOutcome {
	log.Printf("INFO: Task Creator: conducting conversation (agent=%s, country=%s)", agentType, country)

	c.append(domain.RoleUser, userMessage)

	messages := []llm.ChatMessage{{Role: "system", Content: creatorDecisionPrompt(agentType, country)}}
	window := c.history
	if len(window) > creatorContextWindow {
		window = window[len(window)-creatorContextWindow:]
	}
	for _, e := range window {
		messages = append(messages, llm.ChatMessage{Role: string(e.msg.Role), Content: e.msg.Content})
	}

	var full strings.Builder
	jsonStarted, drafted := false, false
	_, err := c.model.stream(ctx, messages, nil, func(delta string) {
		full.WriteString(delta)
		if jsonStarted {
			return
		}
		if i := strings.IndexByte(delta, '{'); i >= 0 {
			jsonStarted = true
			delta = delta[:i]
		}
		if delta != "" {
			drafted = true
			emit.Emit(protocol.AgentStream(protocol.AgentTaskCreator, delta))
		}
	})
	if err != nil {
		log.Printf("ERROR: Task Creator conversation error: %v", err)
		if drafted {
			emit.Emit(protocol.ClearStream(protocol.AgentTaskCreator))
		}
		return CreatorOutcome{}
	}

	var decision Decision
	parsed := decodeObject(full.String(), &decision)
	if parsed || drafted {
		emit.Emit(protocol.ClearStream(protocol.AgentTaskCreator))
	}
	if !parsed {
		log.Printf("WARN: Task Creator: no parseable decision, proceeding to task creation")
		return CreatorOutcome{}
	}
	log.Printf("INFO: Task Creator decision: %s", decision.Action)

	switch decision.Action {
	case domain.ActionAskQuestion:
		if strings.TrimSpace(decision.Question) == "" {
			log.Printf("WARN: Task Creator asked an empty question, proceeding to task creation")
			return CreatorOutcome{}
		}
		emit.Emit(protocol.AgentMessageWithReasoning(protocol.AgentTaskCreator, protocol.MessageTypeQuestion, decision.Question, decision.Reasoning))
		c.append(domain.RoleAssistant, decision.Question)
		return CreatorOutcome{NeedsMoreInfo: true, Question: decision.Question}
	case domain.ActionCreateTasks:
		emit.Emit(protocol.AgentMessageWithReasoning(protocol.AgentTaskCreator, protocol.MessageTypeStatus, readyMessage, decision.Reasoning))
	}
	return CreatorOutcome{}
}

// FallbackTask is produced when no task list can be obtained from the model.
func FallbackTask() domain.Task {
	return domain.Task{
		ID:          "1",
		Description: "general legal question test",
		Priority:    domain.PriorityHigh,
		Category:    "general",
	}
}

// Materialize converts the whole dialogue into an ordered task list. It
// returns exactly one FallbackTask when the reply has no parseable array.
func (c *TaskCreator) Materialize(ctx context.Context) []domain.Task {
	log.Printf("INFO: Task Creator: creating tasks from %d messages", len(c.history))

	content, err := c.model.complete(ctx, []llm.ChatMessage{
		{Role: "system", Content: materializePrompt},
		{Role: "user", Content: materializeUserPrompt(c.History())},
	})
	if err != nil {
		log.Printf("ERROR: Task Creator error: %v", err)
		return []domain.Task{FallbackTask()}
	}

	var tasks []domain.Task
	if !decodeArray(content, &tasks) {
		log.Printf("WARN: Task Creator: failed to parse task list")
		return []domain.Task{FallbackTask()}
	}
	for i := range tasks {
		if tasks[i].ID == "" {
			tasks[i].ID = domain.TaskID(strconv.Itoa(i + 1))
		}
	}
	log.Printf("INFO: Task Creator: created %d tasks", len(tasks))
	return tasks
}
