package harness

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/harness/internal/domain"
	"github.com/xiaot623/gogo/harness/internal/protocol"
	"github.com/xiaot623/gogo/harness/tests/helpers"
)

const (
	matchCreator     = "Task Creator Agent"
	matchMaterialize = "expert task planner"
	matchFormulate   = "Task Executor Agent"
	matchJudge       = "determine if the task has been fully tested"
	matchEvaluate    = "expert legal evaluator"
	matchLawyer      = "elite legal AI assistant"
	matchResearch    = "legal research assistant"
)

func testModel(client *helpers.ScriptedLLM) Model {
	return Model{Client: client, Name: "test-model", Temperature: 0.7}
}

func streamedText(rec *helpers.Recorder, eventType string) string {
	var b strings.Builder
	for _, e := range rec.OfType(eventType) {
		b.WriteString(e["chunk"].(string))
	}
	return b.String()
}

func TestDecideAskQuestion(t *testing.T) {
	client := helpers.NewScriptedLLM("").On(matchCreator, helpers.Text(
		`I need a little more detail. {"action":"ask_question","question":"Which area of law should I focus on?","reasoning":"The request is vague","ready":false}`))
	rec := helpers.NewRecorder()
	c := NewTaskCreator(testModel(client))

	out := c.Decide(context.Background(), rec, "test the lawyer", domain.AgentTypeHomeChat, "UK")

	assert.True(t, out.NeedsMoreInfo)
	assert.Equal(t, "Which area of law should I focus on?", out.Question)

	// Only the prose before the JSON is streamed as a draft.
	assert.Equal(t, "I need a little more detail. ", streamedText(rec, protocol.TypeAgentStream))
	types := rec.Types()
	require.GreaterOrEqual(t, len(types), 2)
	assert.Equal(t, []string{protocol.TypeClearStream, protocol.TypeAgentMessageWithReasoning}, types[len(types)-2:])

	msg := rec.OfType(protocol.TypeAgentMessageWithReasoning)[0]
	assert.Equal(t, protocol.MessageTypeQuestion, msg["messageType"])
	assert.Equal(t, "The request is vague", msg["reasoning"])
	assert.Equal(t, protocol.AgentTaskCreator, msg["agent"])

	history := c.History()
	require.Len(t, history, 2)
	assert.Equal(t, domain.Message{Role: domain.RoleUser, Content: "test the lawyer"}, history[0])
	assert.Equal(t, domain.RoleAssistant, history[1].Role)

	req := client.RequestsMatching(matchCreator)[0]
	assert.Contains(t, req.Messages[0].Content, "Home Chat AI for UK")
	assert.Contains(t, req.Messages[0].Content, `"country":"UK"`)
}

func TestDecideCreateTasks(t *testing.T) {
	client := helpers.NewScriptedLLM("").On(matchCreator, helpers.Text(
		`{"action":"create_tasks","reasoning":"Defamation in the UK is specific","ready":true}`))
	rec := helpers.NewRecorder()
	c := NewTaskCreator(testModel(client))

	out := c.Decide(context.Background(), rec, "test the lawyer on defamation in the UK", domain.AgentTypeCaseAI, "UK")

	assert.False(t, out.NeedsMoreInfo)
	assert.Empty(t, rec.OfType(protocol.TypeAgentStream))
	assert.Equal(t, []string{protocol.TypeClearStream, protocol.TypeAgentMessageWithReasoning}, rec.Types())
	msg := rec.OfType(protocol.TypeAgentMessageWithReasoning)[0]
	assert.Equal(t, protocol.MessageTypeStatus, msg["messageType"])
	assert.Equal(t, readyMessage, msg["message"])
	assert.Len(t, c.History(), 1)
	assert.Contains(t, client.Requests()[0].Messages[0].Content, "Case AI for UK")
}

func TestDecideFailsOpen(t *testing.T) {
	t.Run("unparseable reply", func(t *testing.T) {
		client := helpers.NewScriptedLLM("").On(matchCreator, helpers.Text("I am not sure what you mean."))
		rec := helpers.NewRecorder()
		out := NewTaskCreator(testModel(client)).Decide(context.Background(), rec, "hmm", "home_chat", "UK")
		assert.False(t, out.NeedsMoreInfo)
		// The draft is retracted because no decision followed it.
		assert.Equal(t, protocol.TypeClearStream, rec.Types()[len(rec.Types())-1])
	})

	t.Run("model failure", func(t *testing.T) {
		client := helpers.NewScriptedLLM("").On(matchCreator, helpers.Reply{Err: errors.New("boom")})
		rec := helpers.NewRecorder()
		out := NewTaskCreator(testModel(client)).Decide(context.Background(), rec, "hmm", "home_chat", "UK")
		assert.False(t, out.NeedsMoreInfo)
		assert.Empty(t, rec.Events())
	})

	t.Run("question without text", func(t *testing.T) {
		client := helpers.NewScriptedLLM("").On(matchCreator, helpers.Text(`{"action":"ask_question","question":""}`))
		out := NewTaskCreator(testModel(client)).Decide(context.Background(), helpers.NewRecorder(), "hmm", "home_chat", "UK")
		assert.False(t, out.NeedsMoreInfo)
	})
}

func TestDecideUsesLastTenMessages(t *testing.T) {
	client := helpers.NewScriptedLLM("").On(matchCreator, helpers.Text(`{"action":"ask_question","question":"More?","reasoning":"r"}`))
	c := NewTaskCreator(testModel(client))
	for i := 0; i < 7; i++ {
		c.Decide(context.Background(), Discard, "message", "home_chat", "UK")
	}

	reqs := client.Requests()
	require.Len(t, reqs, 7)
	last := reqs[len(reqs)-1]
	// system prompt + 10 history messages
	assert.Len(t, last.Messages, 11)
	assert.Len(t, c.History(), 14)
}

func TestMaterialize(t *testing.T) {
	client := helpers.NewScriptedLLM("").On(matchMaterialize, helpers.Text(`Here are the tasks:
[
  {"id": 1, "description": "Test knowledge of limitation periods for defamation", "priority": "high", "category": "defamation"},
  {"id": "b", "description": "Test the serious harm threshold", "priority": "medium", "category": "defamation"},
  {"description": "Test the honest opinion defence", "priority": "low", "category": "defamation defences"}
]`))
	c := NewTaskCreator(testModel(client))
	c.append(domain.RoleUser, "test the lawyer on defamation in the UK")

	tasks := c.Materialize(context.Background())
	require.Len(t, tasks, 3)
	assert.Equal(t, domain.TaskID("1"), tasks[0].ID)
	assert.Equal(t, domain.TaskID("b"), tasks[1].ID)
	assert.Equal(t, domain.TaskID("3"), tasks[2].ID)
	assert.Equal(t, domain.PriorityLow, tasks[2].Priority)

	req := client.RequestsMatching(matchMaterialize)[0]
	assert.Contains(t, req.Messages[1].Content, "Conversation history:\ntest the lawyer on defamation in the UK")
}

func TestMaterializeFallback(t *testing.T) {
	cases := map[string]helpers.Reply{
		"no array":      helpers.Text("I could not come up with tasks."),
		"broken array":  helpers.Text(`[{"id": 1, "description": ]`),
		"model failure": {Err: errors.New("timeout")},
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			client := helpers.NewScriptedLLM("").On(matchMaterialize, reply)
			tasks := NewTaskCreator(testModel(client)).Materialize(context.Background())
			require.Len(t, tasks, 1)
			assert.Equal(t, FallbackTask(), tasks[0])
		})
	}
}

func TestMaterializeEmptyList(t *testing.T) {
	client := helpers.NewScriptedLLM("").On(matchMaterialize, helpers.Text("[]"))
	tasks := NewTaskCreator(testModel(client)).Materialize(context.Background())
	assert.Empty(t, tasks)
}
