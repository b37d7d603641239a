package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Message is one entry of the Task Creator dialogue.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TaskID accepts both numeric and string ids from model output.
type TaskID string

// UnmarshalJSON decodes a JSON string or number into a TaskID.
func (id *TaskID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = TaskID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("task id must be a string or number: %w", err)
	}
	*id = TaskID(n.String())
	return nil
}

// Task is one discrete test produced by the Task Creator.
type Task struct {
	ID          TaskID   `json:"id"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Category    string   `json:"category"`
}

// ExecutionPlan is the Task Executor's opening move for a task.
type ExecutionPlan struct {
	Question       string   `json:"question"`
	Reasoning      string   `json:"reasoning"`
	ExpectedTopics []string `json:"expected_topics"`
}

// ConversationTurn is one message of the executor/agent sub-conversation.
type ConversationTurn struct {
	Role       TurnRole `json:"role"`
	Message    string   `json:"message"`
	TurnNumber int      `json:"turn"`
}

// Evaluation scores a finished task transcript.
type Evaluation struct {
	Coverage     string `json:"coverage"`
	Accuracy     string `json:"accuracy"`
	Completeness string `json:"completeness"`
	Score        int    `json:"score"`
	Reasoning    string `json:"reasoning,omitempty"`
}

// ErrorEvaluation is recorded when a transcript could not be scored.
func ErrorEvaluation() Evaluation {
	return Evaluation{Coverage: "error", Accuracy: "error", Completeness: "error", Score: 0}
}

// UnmarshalJSON tolerates scores given as floats or numeric strings and
// clamps them into 0..10.
func (e *Evaluation) UnmarshalJSON(data []byte) error {
	var raw struct {
		Coverage     string          `json:"coverage"`
		Accuracy     string          `json:"accuracy"`
		Completeness string          `json:"completeness"`
		Score        json.RawMessage `json:"score"`
		Reasoning    string          `json:"reasoning"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	score, err := parseScore(raw.Score)
	if err != nil {
		return err
	}
	*e = Evaluation{
		Coverage:     raw.Coverage,
		Accuracy:     raw.Accuracy,
		Completeness: raw.Completeness,
		Score:        score,
		Reasoning:    raw.Reasoning,
	}
	return nil
}

func parseScore(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	var f float64
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		// "7/10" style answers keep the numerator.
		s = strings.TrimSpace(strings.SplitN(s, "/", 2)[0])
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid score %q: %w", s, err)
		}
		f = v
	} else if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("invalid score: %w", err)
	}
	score := int(math.Round(f))
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return score, nil
}

// TaskResult is what the Task Executor returns for one task.
type TaskResult struct {
	Question   string             `json:"question"`
	Response   string             `json:"response"`
	Evaluation *Evaluation        `json:"evaluation,omitempty"`
	Status     TaskStatus         `json:"status"`
	Turns      int                `json:"turns"`
	History    []ConversationTurn `json:"conversation,omitempty"`
}

// TaskOutcome pairs a task with its result.
type TaskOutcome struct {
	Task   Task       `json:"task"`
	Result TaskResult `json:"result"`
}

// Summary aggregates a finished run.
type Summary struct {
	TotalTasks     int     `json:"totalTasks"`
	CompletedTasks int     `json:"completedTasks"`
	AverageScore   float64 `json:"averageScore"`
}

// Summarize computes run totals. A missing evaluation counts as score 0.
func Summarize(outcomes []TaskOutcome) Summary {
	s := Summary{TotalTasks: len(outcomes)}
	if len(outcomes) == 0 {
		return s
	}
	total := 0
	for _, o := range outcomes {
		if o.Result.Status == TaskStatusCompleted {
			s.CompletedTasks++
		}
		if o.Result.Evaluation != nil {
			total += o.Result.Evaluation.Score
		}
	}
	s.AverageScore = float64(total) / float64(len(outcomes))
	return s
}
