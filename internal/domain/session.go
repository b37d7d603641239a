package domain

import "time"

// TestSession is the persisted record of one full harness run.
type TestSession struct {
	SessionID string    `json:"sessionId"`
	AgentType string    `json:"agentType"`
	Country   string    `json:"country"`
	Timestamp time.Time `json:"timestamp"`

	TaskCreatorConversation []TranscriptMessage `json:"taskCreatorConversation"`
	GeneratedTasks          []Task              `json:"generatedTasks"`
	TaskExecutions          []TaskExecution     `json:"taskExecutions"`

	OverallScore   float64 `json:"overallScore"`
	TotalTasks     int     `json:"totalTasks"`
	CompletedTasks int     `json:"completedTasks"`
	AverageScore   float64 `json:"averageScore"`
}

// TranscriptMessage is a timestamped Message as shown to the operator.
type TranscriptMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// TaskExecution is the stored conversation and evaluation of one task.
type TaskExecution struct {
	TaskID       TaskID             `json:"taskId"`
	Description  string             `json:"description"`
	Status       TaskStatus         `json:"status"`
	Conversation []ConversationTurn `json:"conversation"`
	Evaluation   *Evaluation        `json:"evaluation,omitempty"`
}

// SessionFilter selects stored test sessions. Nil fields are ignored.
type SessionFilter struct {
	AgentType string     `json:"agentType,omitempty"`
	Country   string     `json:"country,omitempty"`
	MinScore  *float64   `json:"minScore,omitempty"`
	MaxScore  *float64   `json:"maxScore,omitempty"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

// SessionStats summarizes the session store.
type SessionStats struct {
	TotalSessions int     `json:"totalSessions"`
	AverageScore  float64 `json:"averageScore"`
}
