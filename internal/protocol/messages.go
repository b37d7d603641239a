// Package protocol defines the WebSocket message protocol between the
// operator console and the harness.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/xiaot623/gogo/harness/internal/domain"
)

// Message types from client to harness
const (
	TypeUserInput = "user_input"
	TypeReset     = "reset"
	TypePing      = "ping"
)

// Message types from harness to client
const (
	TypeConnected                 = "connected"
	TypePong                      = "pong"
	TypeStatus                    = "status"
	TypeAgentStream               = "agent_stream"
	TypeClearStream               = "clear_stream"
	TypeAgentMessageWithReasoning = "agent_message_with_reasoning"
	TypeAgentMessage              = "agent_message"
	TypeTasksCreated              = "tasks_created"
	TypeTaskConversationStart     = "task_conversation_start"
	TypeTaskConversationEnd       = "task_conversation_end"
	TypeLawyerStream              = "lawyer_stream"
	TypeLawyerToolCall            = "lawyer_tool_call"
	TypeLawyerMessage             = "lawyer_message"
	TypeTaskCompleted             = "task_completed"
	TypeAllTasksCompleted         = "all_tasks_completed"
	TypeResetComplete             = "reset_complete"
	TypeError                     = "error"
)

// Agent names carried in the agent field.
const (
	AgentTaskCreator  = "task_creator"
	AgentTaskExecutor = "task_executor"
	AgentHomeChatAI   = "home_chat_ai"
)

// Agent status values carried in status events.
const (
	StatusWorking   = "working"
	StatusCompleted = "completed"
)

// Message types of agent_message and agent_message_with_reasoning.
const (
	MessageTypeQuestion      = "question"
	MessageTypeStatus        = "status"
	MessageTypeTaskExecution = "task_execution"
)

// Error codes
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeInvalidState   = "invalid_state"
	ErrorCodeInternalError  = "internal_error"
)

// InboundMessage is any message sent by the client. Fields not used by the
// message type are left empty.
type InboundMessage struct {
	Type      string `json:"type"`
	Message   string `json:"message,omitempty"`
	AgentType string `json:"agentType,omitempty"`
	Country   string `json:"country,omitempty"`
}

// BaseMessage contains common fields for all outbound messages.
type BaseMessage struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// Terminal reports whether the message closes a unit of work and must be
// delivered even when the client reads slowly.
func (b BaseMessage) Terminal() bool {
	switch b.Type {
	case TypeTaskConversationEnd, TypeTaskCompleted, TypeAllTasksCompleted, TypeResetComplete, TypeError:
		return true
	}
	return false
}

func base(msgType string) BaseMessage {
	return BaseMessage{Type: msgType, Timestamp: time.Now().UTC()}
}

// Progress reports the position of a task within the run.
type Progress struct {
	Current    int `json:"current"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// NewProgress computes the rounded completion percentage for task current of total.
func NewProgress(current, total int) *Progress {
	p := &Progress{Current: current, Total: total}
	if total > 0 {
		p.Percentage = (current*100 + total/2) / total
	}
	return p
}

// ConnectedMessage greets a freshly opened connection.
type ConnectedMessage struct {
	BaseMessage
	Message string `json:"message"`
}

// Connected builds the greeting.
func Connected(message string) ConnectedMessage {
	return ConnectedMessage{BaseMessage: base(TypeConnected), Message: message}
}

// PongMessage answers a ping.
type PongMessage struct {
	BaseMessage
}

// Pong builds a ping answer.
func Pong() PongMessage {
	return PongMessage{BaseMessage: base(TypePong)}
}

// StatusMessage reports what an agent is currently doing.
type StatusMessage struct {
	BaseMessage
	Message  string       `json:"message"`
	Agent    string       `json:"agent"`
	Status   string       `json:"status"`
	Task     *domain.Task `json:"task,omitempty"`
	Progress *Progress    `json:"progress,omitempty"`
}

// Status builds a status event.
func Status(agent, status, message string) StatusMessage {
	return StatusMessage{BaseMessage: base(TypeStatus), Agent: agent, Status: status, Message: message}
}

// StreamMessage carries a draft chunk (agent_stream or lawyer_stream).
type StreamMessage struct {
	BaseMessage
	Agent string `json:"agent"`
	Chunk string `json:"chunk"`
}

// AgentStream builds a Task Creator draft chunk.
func AgentStream(agent, chunk string) StreamMessage {
	return StreamMessage{BaseMessage: base(TypeAgentStream), Agent: agent, Chunk: chunk}
}

// LawyerStream builds an agent-under-test draft chunk.
func LawyerStream(chunk string) StreamMessage {
	return StreamMessage{BaseMessage: base(TypeLawyerStream), Agent: AgentHomeChatAI, Chunk: chunk}
}

// ClearStreamMessage retracts every draft chunk already sent by agent.
type ClearStreamMessage struct {
	BaseMessage
	Agent string `json:"agent"`
}

// ClearStream builds a draft retraction.
func ClearStream(agent string) ClearStreamMessage {
	return ClearStreamMessage{BaseMessage: base(TypeClearStream), Agent: agent}
}

// ReasonedMessage is a committed agent message with its reasoning.
type ReasonedMessage struct {
	BaseMessage
	Agent       string       `json:"agent"`
	Message     string       `json:"message"`
	Reasoning   string       `json:"reasoning"`
	MessageType string       `json:"messageType"`
	Task        *domain.Task `json:"task,omitempty"`
}

// AgentMessageWithReasoning builds a committed message with reasoning.
func AgentMessageWithReasoning(agent, messageType, message, reasoning string) ReasonedMessage {
	return ReasonedMessage{
		BaseMessage: base(TypeAgentMessageWithReasoning),
		Agent:       agent,
		Message:     message,
		Reasoning:   reasoning,
		MessageType: messageType,
	}
}

// AgentMessageMessage is a committed agent message.
type AgentMessageMessage struct {
	BaseMessage
	Agent       string `json:"agent"`
	Message     string `json:"message"`
	MessageType string `json:"messageType,omitempty"`
}

// AgentMessage builds a committed agent message.
func AgentMessage(agent, messageType, message string) AgentMessageMessage {
	return AgentMessageMessage{BaseMessage: base(TypeAgentMessage), Agent: agent, Message: message, MessageType: messageType}
}

// TasksCreatedMessage announces the materialized task list.
type TasksCreatedMessage struct {
	BaseMessage
	Tasks  []domain.Task `json:"tasks"`
	Agent  string        `json:"agent"`
	Status string        `json:"status"`
}

// TasksCreated builds the task list announcement.
func TasksCreated(tasks []domain.Task) TasksCreatedMessage {
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return TasksCreatedMessage{BaseMessage: base(TypeTasksCreated), Tasks: tasks, Agent: AgentTaskCreator, Status: StatusCompleted}
}

// TaskConversationStartMessage opens the sub-conversation of a task.
type TaskConversationStartMessage struct {
	BaseMessage
	Task domain.Task `json:"task"`
}

// TaskConversationStart builds the sub-conversation opener.
func TaskConversationStart(task domain.Task) TaskConversationStartMessage {
	return TaskConversationStartMessage{BaseMessage: base(TypeTaskConversationStart), Task: task}
}

// TaskConversationEndMessage closes the sub-conversation of a task.
type TaskConversationEndMessage struct {
	BaseMessage
	Task   domain.Task `json:"task"`
	Turns  int         `json:"turns"`
	Reason string      `json:"reason"`
}

// TaskConversationEnd builds the sub-conversation closer.
func TaskConversationEnd(task domain.Task, turns int, reason string) TaskConversationEndMessage {
	return TaskConversationEndMessage{BaseMessage: base(TypeTaskConversationEnd), Task: task, Turns: turns, Reason: reason}
}

// LawyerToolCallMessage tells the observer the agent invoked a tool.
type LawyerToolCallMessage struct {
	BaseMessage
	Agent string `json:"agent"`
	Tool  string `json:"tool"`
	Query string `json:"query"`
}

// LawyerToolCall builds a tool invocation notice.
func LawyerToolCall(tool, query string) LawyerToolCallMessage {
	return LawyerToolCallMessage{BaseMessage: base(TypeLawyerToolCall), Agent: AgentHomeChatAI, Tool: tool, Query: query}
}

// LawyerMessageMessage is the committed final answer of the agent under test.
type LawyerMessageMessage struct {
	BaseMessage
	Agent   string            `json:"agent"`
	Message string            `json:"message"`
	Sources []json.RawMessage `json:"sources,omitempty"`
}

// LawyerMessage builds the committed answer.
func LawyerMessage(message string, sources []json.RawMessage) LawyerMessageMessage {
	return LawyerMessageMessage{BaseMessage: base(TypeLawyerMessage), Agent: AgentHomeChatAI, Message: message, Sources: sources}
}

// TaskCompletedMessage reports one finished task.
type TaskCompletedMessage struct {
	BaseMessage
	Task     domain.Task       `json:"task"`
	Result   domain.TaskResult `json:"result"`
	Progress *Progress         `json:"progress"`
}

// TaskCompleted builds a task completion report.
func TaskCompleted(task domain.Task, result domain.TaskResult, progress *Progress) TaskCompletedMessage {
	return TaskCompletedMessage{BaseMessage: base(TypeTaskCompleted), Task: task, Result: result, Progress: progress}
}

// AllTasksCompletedMessage closes a run.
type AllTasksCompletedMessage struct {
	BaseMessage
	SessionID string               `json:"sessionId,omitempty"`
	Results   []domain.TaskOutcome `json:"results"`
	Status    string               `json:"status"`
	Summary   domain.Summary       `json:"summary"`
}

// AllTasksCompleted builds the run summary.
func AllTasksCompleted(sessionID string, results []domain.TaskOutcome, summary domain.Summary) AllTasksCompletedMessage {
	if results == nil {
		results = []domain.TaskOutcome{}
	}
	return AllTasksCompletedMessage{
		BaseMessage: base(TypeAllTasksCompleted),
		SessionID:   sessionID,
		Results:     results,
		Status:      StatusCompleted,
		Summary:     summary,
	}
}

// ResetCompleteMessage acknowledges a reset.
type ResetCompleteMessage struct {
	BaseMessage
	Message string `json:"message"`
}

// ResetComplete builds the reset acknowledgement.
func ResetComplete() ResetCompleteMessage {
	return ResetCompleteMessage{BaseMessage: base(TypeResetComplete), Message: "System reset. Ready for new conversation."}
}

// ErrorMessage is sent when an inbound message could not be handled.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error builds an error event.
func Error(code, message string) ErrorMessage {
	return ErrorMessage{BaseMessage: base(TypeError), Code: code, Message: message}
}
