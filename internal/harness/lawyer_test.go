package harness

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/harness/internal/policy"
	"github.com/xiaot623/gogo/harness/internal/prompts"
	"github.com/xiaot623/gogo/harness/internal/protocol"
	"github.com/xiaot623/gogo/harness/internal/research"
	"github.com/xiaot623/gogo/harness/internal/tools"
	"github.com/xiaot623/gogo/harness/tests/helpers"
)

const researchAnswer = "Section 4A of the Limitation Act 1980 sets a one year limit."

func testRegistry(t *testing.T, client *helpers.ScriptedLLM) *tools.Registry {
	t.Helper()
	gate, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)
	reg := tools.NewRegistry(gate)
	require.NoError(t, reg.Register(research.Declaration, research.NewEngine(client, "search-model", 5).Execute))
	return reg
}

func testLawyer(t *testing.T, client *helpers.ScriptedLLM) *LawyerAgent {
	t.Helper()
	return NewLawyerAgent(testModel(client), "home_chat", "UK", prompts.Fallback("UK"), testRegistry(t, client))
}

func TestSendMessagePlainAnswer(t *testing.T) {
	client := helpers.NewScriptedLLM("").On(matchLawyer, helpers.Text("Defamation claims must be brought within one year."))
	rec := helpers.NewRecorder()
	a := testLawyer(t, client)

	answer := a.SendMessage(context.Background(), rec, "How long do I have to sue?")

	assert.Equal(t, "Defamation claims must be brought within one year.", answer)
	assert.Equal(t, answer, streamedText(rec, protocol.TypeLawyerStream))
	types := rec.Types()
	assert.Equal(t, protocol.TypeLawyerMessage, types[len(types)-1])
	assert.Empty(t, rec.OfType(protocol.TypeClearStream))

	req := client.RequestsMatching(matchLawyer)[0]
	require.Len(t, req.Tools, 1)
	assert.Equal(t, research.ToolName, req.Tools[0].Function.Name)

	history := a.History()
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, answer, history[1].Content)
}

func TestSendMessagePlainAnswerKeepsSources(t *testing.T) {
	citation := json.RawMessage(`"https://www.legislation.gov.uk/ukpga/2013/26"`)
	client := helpers.NewScriptedLLM("").
		On(matchLawyer, helpers.Reply{Content: "See the Defamation Act 2013.", Citations: []json.RawMessage{citation}})
	rec := helpers.NewRecorder()
	a := testLawyer(t, client)

	a.SendMessage(context.Background(), rec, "Which statute applies?")

	msg := rec.OfType(protocol.TypeLawyerMessage)[0]
	assert.Equal(t, []interface{}{"https://www.legislation.gov.uk/ukpga/2013/26"}, msg["sources"])
}

func TestSendMessageRunsResearchTool(t *testing.T) {
	citation := json.RawMessage(`"https://www.legislation.gov.uk/ukpga/1980/58/section/4A"`)
	client := helpers.NewScriptedLLM("").
		On(matchLawyer, helpers.ToolCall("Let me check. ", research.ToolName, `{"query":"statute of limitations for defamation UK"}`)).
		On(matchResearch, helpers.Reply{Content: researchAnswer, Citations: []json.RawMessage{citation}})
	rec := helpers.NewRecorder()
	a := testLawyer(t, client)

	answer := a.SendMessage(context.Background(), rec, "Is it too late to sue?")

	assert.Equal(t, researchAnswer, answer)
	assert.Equal(t, "Let me check. ", streamedText(rec, protocol.TypeLawyerStream))

	// Drafts are retracted before the tool call is announced.
	types := rec.Types()
	require.GreaterOrEqual(t, len(types), 3)
	assert.Equal(t, []string{protocol.TypeClearStream, protocol.TypeLawyerToolCall, protocol.TypeLawyerMessage}, types[len(types)-3:])

	call := rec.OfType(protocol.TypeLawyerToolCall)[0]
	assert.Equal(t, research.ToolName, call["tool"])
	assert.Equal(t, "statute of limitations for defamation UK", call["query"])

	msg := rec.OfType(protocol.TypeLawyerMessage)[0]
	assert.Equal(t, researchAnswer, msg["message"])
	assert.Equal(t, []interface{}{"https://www.legislation.gov.uk/ukpga/1980/58/section/4A"}, msg["sources"])

	search := client.RequestsMatching(matchResearch)[0]
	require.NotNil(t, search.SearchParameters)
	assert.Contains(t, search.Messages[0].Content, "Focus on UK law")

	assert.Equal(t, researchAnswer, a.History()[1].Content)
}

func TestSendMessageBlockedToolFallsBackToText(t *testing.T) {
	long := strings.Repeat("defamation ", policy.MaxQueryLength/10)
	args, err := json.Marshal(tools.QueryArgs{Query: long})
	require.NoError(t, err)

	client := helpers.NewScriptedLLM("").
		On(matchLawyer, helpers.ToolCall("From memory, the limit is one year.", research.ToolName, string(args)))
	rec := helpers.NewRecorder()

	answer := testLawyer(t, client).SendMessage(context.Background(), rec, "How long?")

	assert.Equal(t, "From memory, the limit is one year.", answer)
	assert.Empty(t, rec.OfType(protocol.TypeLawyerToolCall))
	assert.Empty(t, client.RequestsMatching(matchResearch))
}

func TestSendMessageUnparseableToolArguments(t *testing.T) {
	client := helpers.NewScriptedLLM("").
		On(matchLawyer, helpers.ToolCall("Answer text.", research.ToolName, `{"query":`))

	answer := testLawyer(t, client).SendMessage(context.Background(), helpers.NewRecorder(), "q")

	assert.Equal(t, "Answer text.", answer)
	assert.Empty(t, client.RequestsMatching(matchResearch))
}

func TestSendMessageResearchFailure(t *testing.T) {
	client := helpers.NewScriptedLLM("").
		On(matchLawyer, helpers.ToolCall("", research.ToolName, `{"query":"defamation"}`)).
		On(matchResearch, helpers.Reply{Err: errors.New("search unavailable")})
	rec := helpers.NewRecorder()

	answer := testLawyer(t, client).SendMessage(context.Background(), rec, "q")

	assert.Equal(t, "I attempted to search for legal information but encountered an error: search unavailable", answer)
	assert.Equal(t, answer, rec.OfType(protocol.TypeLawyerMessage)[0]["message"])
}

func TestSendMessageModelFailure(t *testing.T) {
	client := helpers.NewScriptedLLM("").On(matchLawyer, helpers.Reply{Err: errors.New("rate limited")})
	rec := helpers.NewRecorder()
	a := testLawyer(t, client)

	answer := a.SendMessage(context.Background(), rec, "q")

	assert.Equal(t, "Error communicating with agent: rate limited", answer)
	assert.Equal(t, []string{protocol.TypeLawyerMessage}, rec.Types())
	assert.Empty(t, a.History())
}

func TestSendMessageUsesLastTenMessages(t *testing.T) {
	client := helpers.NewScriptedLLM("").On(matchLawyer, helpers.Text("ok"))
	a := testLawyer(t, client)
	for i := 0; i < 7; i++ {
		a.SendMessage(context.Background(), Discard, "question")
	}

	reqs := client.RequestsMatching(matchLawyer)
	require.Len(t, reqs, 7)
	// system prompt + 10 history messages + the new question
	assert.Len(t, reqs[6].Messages, 12)

	a.ResetConversation()
	assert.Empty(t, a.History())
}
