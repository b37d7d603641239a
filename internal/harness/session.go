package harness

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/xiaot623/gogo/harness/internal/domain"
)

// Session is the per-connection context of one run. Reset replaces it
// with a fresh Session rather than clearing fields in place.
type Session struct {
	ID               string
	StartedAt        time.Time
	ConversationMode bool
	AgentType        string
	Country          string
	Tasks            []domain.Task

	Creator  *TaskCreator
	Executor *TaskExecutor
	Agent    *LawyerAgent
}

func newSession(model Model) *Session {
	return &Session{
		ID:               ulid.Make().String(),
		StartedAt:        time.Now().UTC(),
		ConversationMode: true,
		AgentType:        domain.DefaultAgentType,
		Country:          domain.DefaultCountry,
		Tasks:            []domain.Task{},
		Creator:          NewTaskCreator(model),
		Executor:         NewTaskExecutor(model),
	}
}

// record builds the persisted form of a finished run.
func (s *Session) record(outcomes []domain.TaskOutcome, summary domain.Summary) domain.TestSession {
	executions := make([]domain.TaskExecution, 0, len(outcomes))
	for _, o := range outcomes {
		executions = append(executions, domain.TaskExecution{
			TaskID:       o.Task.ID,
			Description:  o.Task.Description,
			Status:       o.Result.Status,
			Conversation: o.Result.History,
			Evaluation:   o.Result.Evaluation,
		})
	}
	return domain.TestSession{
		SessionID:               s.ID,
		AgentType:               s.AgentType,
		Country:                 s.Country,
		Timestamp:               time.Now().UTC(),
		TaskCreatorConversation: s.Creator.Transcript(),
		GeneratedTasks:          s.Tasks,
		TaskExecutions:          executions,
		OverallScore:            summary.AverageScore,
		TotalTasks:              summary.TotalTasks,
		CompletedTasks:          summary.CompletedTasks,
		AverageScore:            summary.AverageScore,
	}
}
