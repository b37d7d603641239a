// Package harness runs the multi-agent test loop: the Task Creator gathers
// requirements from the operator, the Task Executor runs every task against
// the agent under test, and progress is streamed to the observer.
package harness

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/xiaot623/gogo/harness/internal/domain"
	"github.com/xiaot623/gogo/harness/internal/prompts"
	"github.com/xiaot623/gogo/harness/internal/protocol"
	"github.com/xiaot623/gogo/harness/internal/tools"
)

// Result statuses returned by Handle.
const (
	StatusAwaitingUserResponse = "awaiting_user_response"
	StatusTasksExecuted        = "tasks_created_and_executing"
	StatusCancelled            = "cancelled"
	StatusInvalidState         = "error"
)

// DefaultTaskPause separates consecutive tasks.
const DefaultTaskPause = 500 * time.Millisecond

// SessionSaver persists finished runs.
type SessionSaver interface {
	Save(ctx context.Context, session domain.TestSession) (string, error)
}

// Deps are the collaborators shared by every session of the process.
type Deps struct {
	Model    Model
	Prompts  *prompts.Catalog
	Tools    *tools.Registry
	Store    SessionSaver
	MaxTasks int
	// TaskPause is the delay between tasks. Zero means no delay.
	TaskPause time.Duration
}

// Result summarizes what Handle did with one input.
type Result struct {
	Status    string
	Question  string
	TaskCount int
}

// Orchestrator owns the session of one connection. Its methods must not be
// called concurrently.
type Orchestrator struct {
	deps    Deps
	emit    Emitter
	session *Session
}

// NewOrchestrator creates an orchestrator in gathering mode.
func NewOrchestrator(deps Deps, emit Emitter) *Orchestrator {
	if deps.Prompts == nil {
		deps.Prompts = prompts.NewCatalog(nil)
	}
	if emit == nil {
		emit = Discard
	}
	return &Orchestrator{deps: deps, emit: emit, session: newSession(deps.Model)}
}

// Session returns the current session context.
func (o *Orchestrator) Session() *Session {
	return o.session
}

// Handle processes one operator input.
func (o *Orchestrator) Handle(ctx context.Context, input, agentType, country string) Result {
	if agentType == "" {
		agentType = domain.DefaultAgentType
	}
	if country == "" {
		country = domain.DefaultCountry
	}
	s := o.session
	log.Printf("INFO: Orchestrator: processing user input (agent=%s, country=%s)", agentType, country)

	if !s.ConversationMode {
		o.emit.Emit(protocol.Error(protocol.ErrorCodeInvalidState, "Tasks have already been created for this session; send reset to start a new run"))
		return Result{Status: StatusInvalidState}
	}

	o.ensureAgent(agentType, country)

	o.emit.Emit(protocol.Status(protocol.AgentTaskCreator, protocol.StatusWorking, "Task Creator is analyzing your request..."))
	outcome := s.Creator.Decide(ctx, o.emit, input, agentType, country)
	if ctx.Err() != nil {
		log.Printf("WARN: Orchestrator: cancelled while gathering requirements")
		return Result{Status: StatusCancelled}
	}
	if outcome.NeedsMoreInfo {
		log.Printf("INFO: Orchestrator: Task Creator needs more information")
		return Result{Status: StatusAwaitingUserResponse, Question: outcome.Question}
	}

	log.Printf("INFO: Orchestrator: Task Creator has sufficient information, creating tasks")
	o.emit.Emit(protocol.Status(protocol.AgentTaskCreator, protocol.StatusWorking, "Task Creator is generating tasks..."))
	tasks := s.Creator.Materialize(ctx)
	if ctx.Err() != nil {
		log.Printf("WARN: Orchestrator: cancelled while creating tasks")
		return Result{Status: StatusCancelled}
	}

	s.ConversationMode = false
	s.Tasks = o.capTasks(tasks)
	o.emit.Emit(protocol.TasksCreated(s.Tasks))

	if !o.executeAll(ctx) {
		return Result{Status: StatusCancelled, TaskCount: len(s.Tasks)}
	}
	return Result{Status: StatusTasksExecuted, TaskCount: len(s.Tasks)}
}

// ensureAgent rebuilds the agent under test when the selection changed.
func (o *Orchestrator) ensureAgent(agentType, country string) {
	s := o.session
	if s.Agent != nil && s.Agent.AgentType() == agentType && s.Agent.Country() == country {
		return
	}
	s.AgentType, s.Country = agentType, country
	s.Agent = NewLawyerAgent(o.deps.Model, agentType, country, o.deps.Prompts.SystemPrompt(agentType, country), o.deps.Tools)
	log.Printf("INFO: Orchestrator: created new Lawyer AI agent (%s, %s)", agentType, country)
}

func (o *Orchestrator) capTasks(tasks []domain.Task) []domain.Task {
	limit := o.deps.MaxTasks
	if limit <= 0 || len(tasks) <= limit {
		return tasks
	}
	dropped := len(tasks) - limit
	log.Printf("WARN: Orchestrator: %d tasks generated, keeping the first %d and dropping %d", len(tasks), limit, dropped)
	o.emit.Emit(protocol.Status(protocol.AgentTaskCreator, protocol.StatusWorking,
		fmt.Sprintf("Generated %d tasks; running the first %d (%d dropped by the task limit)", len(tasks), limit, dropped)))
	return tasks[:limit]
}

// executeAll runs every task in order. It reports false when ctx was
// cancelled before the run finished.
func (o *Orchestrator) executeAll(ctx context.Context) bool {
	s := o.session
	total := len(s.Tasks)
	log.Printf("INFO: Orchestrator: executing %d tasks", total)

	outcomes := make([]domain.TaskOutcome, 0, total)
	for i, task := range s.Tasks {
		if ctx.Err() != nil {
			log.Printf("WARN: Orchestrator: run cancelled after %d/%d tasks", i, total)
			return false
		}

		progress := protocol.NewProgress(i+1, total)
		status := protocol.Status(protocol.AgentTaskExecutor, protocol.StatusWorking,
			fmt.Sprintf("Task Executor is working on task %d/%d: %s", i+1, total, task.Description))
		t := task
		status.Task = &t
		status.Progress = progress
		o.emit.Emit(status)

		result := s.Executor.Run(ctx, o.emit, s.Agent, task)
		if ctx.Err() != nil {
			log.Printf("WARN: Orchestrator: run cancelled during task %d/%d", i+1, total)
			return false
		}
		outcomes = append(outcomes, domain.TaskOutcome{Task: task, Result: result})
		o.emit.Emit(protocol.TaskCompleted(task, result, progress))

		if i < total-1 && o.deps.TaskPause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(o.deps.TaskPause):
			}
		}
	}
	if ctx.Err() != nil {
		log.Printf("WARN: Orchestrator: run cancelled before summary")
		return false
	}

	summary := domain.Summarize(outcomes)
	o.emit.Emit(protocol.AllTasksCompleted(s.ID, outcomes, summary))
	log.Printf("INFO: Orchestrator: all tasks completed (%d/%d, average %.2f)", summary.CompletedTasks, summary.TotalTasks, summary.AverageScore)

	o.autosave(ctx, outcomes, summary)
	return true
}

func (o *Orchestrator) autosave(ctx context.Context, outcomes []domain.TaskOutcome, summary domain.Summary) {
	if o.deps.Store == nil {
		return
	}
	id, err := o.deps.Store.Save(ctx, o.session.record(outcomes, summary))
	if err != nil {
		log.Printf("ERROR: Orchestrator: failed to save test session: %v", err)
		return
	}
	log.Printf("INFO: Orchestrator: saved test session %s", id)
}

// Reset discards the session and starts a fresh one in gathering mode. The
// agent selection is kept and the agent under test starts with an empty
// history.
func (o *Orchestrator) Reset() {
	prev := o.session
	next := newSession(o.deps.Model)
	next.AgentType, next.Country = prev.AgentType, prev.Country
	if prev.Agent != nil {
		prev.Agent.ResetConversation()
		next.Agent = prev.Agent
	}
	o.session = next
	log.Printf("INFO: Orchestrator: reset to initial state")
}
