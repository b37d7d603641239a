// Package domain defines the core domain models for the test harness.
package domain

// Role identifies the author of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TurnRole identifies the author of a ConversationTurn.
type TurnRole string

const (
	TurnRoleExecutor TurnRole = "executor"
	TurnRoleAgent    TurnRole = "agent"
)

// Priority of a Task.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// TaskStatus is the outcome of executing a Task.
type TaskStatus string

const (
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusError     TaskStatus = "error"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// CreatorAction is what the Task Creator decided to do with the latest input.
type CreatorAction string

const (
	ActionAskQuestion CreatorAction = "ask_question"
	ActionCreateTasks CreatorAction = "create_tasks"
)

// AgentType selects the system prompt family of the agent under test.
const (
	AgentTypeHomeChat = "home_chat"
	AgentTypeCaseAI   = "case_ai"
)

// Defaults applied to inbound user input that omits agent selection.
const (
	DefaultAgentType = AgentTypeHomeChat
	DefaultCountry   = "UK"
)

// MaxConversationTurns is the ceiling on executor/agent exchanges per task.
const MaxConversationTurns = 10
