package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskIDAcceptsNumbersAndStrings(t *testing.T) {
	var tasks []Task
	err := json.Unmarshal([]byte(`[{"id":1,"description":"a"},{"id":"t-2","description":"b"},{"id":null}]`), &tasks)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, TaskID("1"), tasks[0].ID)
	assert.Equal(t, TaskID("t-2"), tasks[1].ID)
	assert.Equal(t, TaskID(""), tasks[2].ID)
}

func TestTaskIDRejectsObjects(t *testing.T) {
	var task Task
	assert.Error(t, json.Unmarshal([]byte(`{"id":{"x":1}}`), &task))
}

func TestEvaluationScoreForms(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int
	}{
		{"integer", `{"score":7}`, 7},
		{"float rounds", `{"score":6.6}`, 7},
		{"string", `{"score":"8"}`, 8},
		{"fraction string", `{"score":"9/10"}`, 9},
		{"clamped high", `{"score":42}`, 10},
		{"clamped low", `{"score":-3}`, 0},
		{"missing", `{"coverage":"yes"}`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var e Evaluation
			require.NoError(t, json.Unmarshal([]byte(tc.in), &e))
			assert.Equal(t, tc.want, e.Score)
		})
	}
}

func TestEvaluationInvalidScore(t *testing.T) {
	var e Evaluation
	assert.Error(t, json.Unmarshal([]byte(`{"score":"excellent"}`), &e))
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))

	eval := Evaluation{Score: 8}
	outcomes := []TaskOutcome{
		{Result: TaskResult{Status: TaskStatusCompleted, Evaluation: &eval}},
		{Result: TaskResult{Status: TaskStatusError}},
	}
	s := Summarize(outcomes)
	assert.Equal(t, 2, s.TotalTasks)
	assert.Equal(t, 1, s.CompletedTasks)
	assert.Equal(t, 4.0, s.AverageScore)
}
