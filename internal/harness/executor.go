package harness

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/xiaot623/gogo/harness/internal/adapter/llm"
	"github.com/xiaot623/gogo/harness/internal/domain"
	"github.com/xiaot623/gogo/harness/internal/protocol"
)

const (
	executorContextTasks = 3
	judgeWindow          = 4
	responsePreviewLen   = 200

	reasonMaxTurns   = "maximum turns reached"
	reasonCancelled  = "cancelled"
	reasonNoFollowUp = "No follow-up question provided"
)

// Agent is the conversational agent under test.
type Agent interface {
	SendMessage(ctx context.Context, emit Emitter, text string) string
}

// JudgeDecision is the continuation verdict after each agent reply.
type JudgeDecision struct {
	Continue         bool    `json:"continue"`
	Reason           string  `json:"reason"`
	FollowUpQuestion *string `json:"followUpQuestion"`
}

type completedTask struct {
	description string
	response    string
}

// TaskExecutor runs tasks against the agent under test and scores them.
type TaskExecutor struct {
	model    Model
	maxTurns int
	recent   []completedTask
}

// NewTaskExecutor creates an executor with no task context.
func NewTaskExecutor(model Model) *TaskExecutor {
	return &TaskExecutor{model: model, maxTurns: domain.MaxConversationTurns}
}

// Run executes one task: formulate a question, converse with agent, then
// evaluate the transcript. Failures are recorded on the result; Run never
// fails the run.
func (e *TaskExecutor) Run(ctx context.Context, emit Emitter, agent Agent, task domain.Task) domain.TaskResult {
	log.Printf("INFO: Task Executor: executing task %s - %s", task.ID, task.Description)

	plan, failure := e.formulate(ctx, task)
	if ctx.Err() != nil {
		return e.cancelled(emit, task)
	}
	if failure != "" {
		emit.Emit(protocol.TaskConversationStart(task))
		emit.Emit(protocol.TaskConversationEnd(task, 0, failure))
		return domain.TaskResult{
			Question: task.Description,
			Response: failure,
			Status:   domain.TaskStatusError,
		}
	}

	msg := protocol.AgentMessageWithReasoning(protocol.AgentTaskExecutor, protocol.MessageTypeTaskExecution,
		fmt.Sprintf("Testing: %s\nQuestion: %s", task.Description, plan.Question), plan.Reasoning)
	msg.Task = &task
	emit.Emit(msg)

	turns, history := e.converse(ctx, emit, agent, task, plan)
	if ctx.Err() != nil {
		log.Printf("WARN: Task Executor: task %s cancelled after %d turns", task.ID, turns)
		return domain.TaskResult{Question: plan.Question, Status: domain.TaskStatusCancelled, Turns: turns, History: history}
	}
	transcript := Transcript(history)

	e.remember(task.Description, transcript)

	evaluation := e.evaluate(ctx, task, plan, transcript)
	return domain.TaskResult{
		Question:   plan.Question,
		Response:   transcript,
		Evaluation: &evaluation,
		Status:     domain.TaskStatusCompleted,
		Turns:      turns,
		History:    history,
	}
}

// cancelled closes a task whose context ended before it could start.
func (e *TaskExecutor) cancelled(emit Emitter, task domain.Task) domain.TaskResult {
	log.Printf("WARN: Task Executor: task %s cancelled", task.ID)
	emit.Emit(protocol.TaskConversationStart(task))
	emit.Emit(protocol.TaskConversationEnd(task, 0, reasonCancelled))
	return domain.TaskResult{Question: task.Description, Status: domain.TaskStatusCancelled}
}

// formulate returns the execution plan, or the placeholder response when
// no plan could be produced.
func (e *TaskExecutor) formulate(ctx context.Context, task domain.Task) (domain.ExecutionPlan, string) {
	content, err := e.model.complete(ctx, []llm.ChatMessage{
		{Role: "system", Content: formulatePrompt},
		{Role: "user", Content: formulateUserPrompt(task, e.previousContext())},
	})
	if err != nil {
		log.Printf("ERROR: Task Executor error: %v", err)
		return domain.ExecutionPlan{}, fmt.Sprintf("Error: %s", err.Error())
	}

	var plan domain.ExecutionPlan
	if !decodeObject(content, &plan) || strings.TrimSpace(plan.Question) == "" {
		log.Printf("WARN: Task Executor: failed to parse execution plan")
		return domain.ExecutionPlan{}, "Error generating question"
	}
	log.Printf("INFO: Task Executor: generated question for task %s", task.ID)
	return plan, ""
}

func (e *TaskExecutor) previousContext() string {
	if len(e.recent) == 0 {
		return "This is the first task"
	}
	parts := make([]string, 0, len(e.recent))
	for _, t := range e.recent {
		parts = append(parts, fmt.Sprintf("Task: %s\nLawyer Response: %s...", t.description, preview(t.response, responsePreviewLen)))
	}
	return "Previous task results:\n" + strings.Join(parts, "\n\n")
}

func (e *TaskExecutor) remember(description, response string) {
	e.recent = append(e.recent, completedTask{description: description, response: response})
	if len(e.recent) > executorContextTasks {
		e.recent = e.recent[len(e.recent)-executorContextTasks:]
	}
}

// converse drives the bounded dialogue with agent and returns the number of
// turns taken and the full turn sequence.
func (e *TaskExecutor) converse(ctx context.Context, emit Emitter, agent Agent, task domain.Task, plan domain.ExecutionPlan) (int, []domain.ConversationTurn) {
	log.Printf("INFO: Task Executor: starting multi-turn conversation for task %s", task.ID)
	emit.Emit(protocol.TaskConversationStart(task))

	var history []domain.ConversationTurn
	question := plan.Question
	turns := 0

	for turns < e.maxTurns {
		if ctx.Err() != nil {
			emit.Emit(protocol.TaskConversationEnd(task, turns, reasonCancelled))
			return turns, history
		}
		turns++

		history = append(history, domain.ConversationTurn{Role: domain.TurnRoleExecutor, Message: question, TurnNumber: turns})
		emit.Emit(protocol.AgentMessage(protocol.AgentTaskExecutor, protocol.MessageTypeTaskExecution, question))

		reply := agent.SendMessage(ctx, emit, question)
		history = append(history, domain.ConversationTurn{Role: domain.TurnRoleAgent, Message: reply, TurnNumber: turns})
		if ctx.Err() != nil {
			emit.Emit(protocol.TaskConversationEnd(task, turns, reasonCancelled))
			return turns, history
		}

		decision := e.judge(ctx, task, plan, history, reply)
		if !decision.Continue {
			log.Printf("INFO: Task Executor: conversation complete after %d turns. Reason: %s", turns, decision.Reason)
			emit.Emit(protocol.TaskConversationEnd(task, turns, decision.Reason))
			return turns, history
		}
		if decision.FollowUpQuestion == nil || strings.TrimSpace(*decision.FollowUpQuestion) == "" {
			log.Printf("WARN: Task Executor: judge asked to continue without a follow-up, ending task %s", task.ID)
			emit.Emit(protocol.TaskConversationEnd(task, turns, reasonNoFollowUp))
			return turns, history
		}
		question = *decision.FollowUpQuestion
		log.Printf("INFO: Task Executor: continuing conversation with: %s", preview(question, 100))
	}

	log.Printf("WARN: Task Executor: reached maximum turns (%d) for task %s", e.maxTurns, task.ID)
	emit.Emit(protocol.TaskConversationEnd(task, turns, reasonMaxTurns))
	return turns, history
}

func (e *TaskExecutor) judge(ctx context.Context, task domain.Task, plan domain.ExecutionPlan, history []domain.ConversationTurn, reply string) JudgeDecision {
	recent := history
	if len(recent) > judgeWindow {
		recent = recent[len(recent)-judgeWindow:]
	}
	content, err := e.model.complete(ctx, []llm.ChatMessage{
		{Role: "system", Content: judgePrompt(task, plan, recent)},
		{Role: "user", Content: "Last lawyer response: " + reply},
	})
	if err != nil {
		log.Printf("ERROR: Task Executor: error in continuation decision: %v", err)
		return JudgeDecision{Reason: fmt.Sprintf("Error: %s", err.Error())}
	}

	var decision JudgeDecision
	if !decodeObject(content, &decision) {
		return JudgeDecision{Reason: "Failed to parse decision"}
	}
	return decision
}

func (e *TaskExecutor) evaluate(ctx context.Context, task domain.Task, plan domain.ExecutionPlan, transcript string) domain.Evaluation {
	log.Printf("INFO: Task Executor: evaluating lawyer response for task %s", task.ID)

	content, err := e.model.complete(ctx, []llm.ChatMessage{
		{Role: "system", Content: evaluatePrompt},
		{Role: "user", Content: evaluateUserPrompt(task, plan, transcript)},
	})
	if err != nil {
		log.Printf("ERROR: Evaluation error: %v", err)
		return domain.ErrorEvaluation()
	}

	var evaluation domain.Evaluation
	if !decodeObject(content, &evaluation) {
		log.Printf("WARN: Evaluation: failed to parse evaluation for task %s", task.ID)
		return domain.ErrorEvaluation()
	}
	return evaluation
}

// Transcript renders turns as "[EXECUTOR - Turn n]: ..." blocks separated
// by blank lines.
func Transcript(history []domain.ConversationTurn) string {
	parts := make([]string, 0, len(history))
	for _, turn := range history {
		parts = append(parts, fmt.Sprintf("[%s - Turn %d]: %s", strings.ToUpper(string(turn.Role)), turn.TurnNumber, turn.Message))
	}
	return strings.Join(parts, "\n\n")
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
