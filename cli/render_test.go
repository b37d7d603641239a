package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/harness/internal/domain"
)

func decode(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return m
}

func newPlainRenderer(drafts bool) (*Renderer, *bytes.Buffer) {
	color.NoColor = true
	var buf bytes.Buffer
	return NewRenderer(&buf, drafts), &buf
}

func TestRenderDraftsAndRetraction(t *testing.T) {
	r, buf := newPlainRenderer(true)

	r.Render(decode(t, `{"type":"lawyer_stream","agent":"home_chat_ai","chunk":"Let me "}`))
	r.Render(decode(t, `{"type":"lawyer_stream","agent":"home_chat_ai","chunk":"check."}`))
	r.Render(decode(t, `{"type":"clear_stream","agent":"home_chat_ai"}`))
	r.Render(decode(t, `{"type":"lawyer_tool_call","agent":"home_chat_ai","tool":"legislation_engine","query":"limitation"}`))
	r.Render(decode(t, `{"type":"lawyer_message","agent":"home_chat_ai","message":"One year.","sources":[{"url":"x"}]}`))

	assert.Equal(t, "[home_chat_ai] Let me check. (retracted)\n"+
		"Lawyer searched legislation_engine: limitation\n"+
		"Lawyer: One year.\n"+
		"  1 sources\n", buf.String())
}

func TestRenderSkipsDraftsWhenDisabled(t *testing.T) {
	r, buf := newPlainRenderer(false)
	r.Render(decode(t, `{"type":"agent_stream","agent":"task_creator","chunk":"{\"action\""}`))
	r.Render(decode(t, `{"type":"pong"}`))
	assert.Empty(t, buf.String())
}

func TestRenderCommitEndsDraftLine(t *testing.T) {
	r, buf := newPlainRenderer(true)
	r.Render(decode(t, `{"type":"lawyer_stream","agent":"home_chat_ai","chunk":"One year."}`))
	r.Render(decode(t, `{"type":"lawyer_message","agent":"home_chat_ai","message":"One year."}`))
	assert.Equal(t, "[home_chat_ai] One year.\nLawyer: One year.\n", buf.String())
}

func TestRenderRunEvents(t *testing.T) {
	r, buf := newPlainRenderer(true)

	r.Render(decode(t, `{"type":"tasks_created","tasks":[{"id":"1","description":"Test limitation periods","priority":"high"}]}`))
	r.Render(decode(t, `{"type":"status","message":"Executing task 1 of 1","progress":{"current":1,"total":1}}`))
	r.Render(decode(t, `{"type":"task_completed","result":{"status":"completed","evaluation":{"score":8}}}`))
	r.Render(decode(t, `{"type":"all_tasks_completed","sessionId":"01ABC","summary":{"totalTasks":1,"completedTasks":1,"averageScore":8}}`))
	r.Render(decode(t, `{"type":"error","code":"invalid_state","message":"reset first"}`))

	out := buf.String()
	assert.Contains(t, out, "Created 1 tasks:\n  1. [high] Test limitation periods\n")
	assert.Contains(t, out, "• Executing task 1 of 1 [1/1]\n")
	assert.Contains(t, out, "✓ Task done (completed) score 8/10\n")
	assert.Contains(t, out, "All tasks completed: 1/1, average score 8\n  saved as 01ABC\n")
	assert.Contains(t, out, "✗ invalid_state: reset first\n")
}

func TestPrintSessions(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	printSessions(&buf, nil)
	assert.Equal(t, "No sessions found\n", buf.String())

	buf.Reset()
	printSessions(&buf, []domain.TestSession{{SessionID: "s1", AgentType: "home_chat", Country: "UK", TotalTasks: 3, CompletedTasks: 2, OverallScore: 7.3}})
	assert.Contains(t, buf.String(), "s1")
	assert.Contains(t, buf.String(), "tasks 2/3  score 7.3")
}
