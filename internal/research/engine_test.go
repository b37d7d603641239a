package research

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/harness/internal/tools"
	"github.com/xiaot623/gogo/harness/tests/helpers"
)

func TestSearchPassesCitationsThrough(t *testing.T) {
	citations := []json.RawMessage{
		json.RawMessage(`"https://www.legislation.gov.uk/ukpga/2013/26"`),
		json.RawMessage(`{"url":"https://example.org","title":"Defamation Act"}`),
	}
	llm := helpers.NewScriptedLLM("").On("legal research assistant", helpers.Reply{
		Content:   "## Limitation\nOne year under s.4A Limitation Act 1980.",
		Citations: citations,
	})

	engine := NewEngine(llm, "search-model", 20)
	res := engine.Search(context.Background(), "statute of limitations for defamation UK", "UK")

	require.True(t, res.Success)
	assert.Contains(t, res.Content, "Limitation Act 1980")
	assert.Equal(t, citations, res.Sources)

	reqs := llm.Requests()
	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Equal(t, "search-model", req.Model)
	require.NotNil(t, req.SearchParameters)
	assert.Equal(t, "auto", req.SearchParameters.Mode)
	assert.True(t, req.SearchParameters.ReturnCitations)
	assert.Equal(t, 20, req.SearchParameters.MaxSearchResults)
	assert.Contains(t, req.Messages[0].Content, "Focus on UK law")
	assert.Equal(t, "statute of limitations for defamation UK", req.Messages[1].Content)
}

func TestSearchWithoutCitations(t *testing.T) {
	llm := helpers.NewScriptedLLM("plain answer")
	res := NewEngine(llm, "m", 5).Search(context.Background(), "q", "UK")
	assert.True(t, res.Success)
	assert.Empty(t, res.Sources)
}

func TestSearchFailure(t *testing.T) {
	llm := helpers.NewScriptedLLM("").On("legal research assistant", helpers.Reply{Err: errors.New("rate limited")})
	res := NewEngine(llm, "m", 5).Search(context.Background(), "q", "UK")

	assert.False(t, res.Success)
	assert.Equal(t, "rate limited", res.Error)
	assert.Equal(t, "Error searching for legal information: rate limited", res.Content)
}

func TestExecuteAdaptsToRegistry(t *testing.T) {
	llm := helpers.NewScriptedLLM("found it")
	engine := NewEngine(llm, "m", 5)

	r := tools.NewRegistry(nil)
	require.NoError(t, r.Register(Declaration, engine.Execute))

	out, err := r.Execute(context.Background(), tools.Invocation{Name: ToolName, Query: "q", Country: "UK"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "found it", out.Content)
	assert.Equal(t, ToolName, r.Declarations()[0].Function.Name)
}
