// Package research implements the legislation_engine tool: a web-grounded
// legal lookup for a query within one jurisdiction.
package research

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/xiaot623/gogo/harness/internal/adapter/llm"
	"github.com/xiaot623/gogo/harness/internal/tools"
)

// ToolName is the function name the agent under test calls.
const ToolName = "legislation_engine"

// Declaration is the tool definition offered to the agent under test.
var Declaration = llm.Tool{
	Type: "function",
	Function: llm.ToolFunction{
		Name:        ToolName,
		Description: "Search for UK legislation, laws, statutes, regulations, and legal provisions. Use this tool whenever you need to find specific legal information, case law, or statutory provisions.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Detailed search query for the legislation or legal information you need. Be specific and include jurisdiction, topic, and any relevant acts or statutes.",
				},
			},
			"required": []string{"query"},
		},
	},
}

// Result is the outcome of one lookup. Sources are the provider's citation
// metadata passed through unmodified.
type Result struct {
	Success bool              `json:"success"`
	Content string            `json:"content"`
	Sources []json.RawMessage `json:"sources,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// Engine performs legislation lookups through a search-enabled model.
type Engine struct {
	client      llm.LLMClient
	model       string
	maxResults  int
	temperature float64
	maxTokens   int
}

// NewEngine creates a research engine.
func NewEngine(client llm.LLMClient, model string, maxResults int) *Engine {
	return &Engine{
		client:      client,
		model:       model,
		maxResults:  maxResults,
		temperature: 0.7,
		maxTokens:   4000,
	}
}

// Search runs one lookup. Failures are reported in the Result, never as an error.
func (e *Engine) Search(ctx context.Context, query, country string) Result {
	log.Printf("INFO: [LEGISLATION_ENGINE] Starting web search for: %s (country=%s)", preview(query, 100), country)

	temperature := e.temperature
	maxTokens := e.maxTokens
	resp, err := e.client.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model: e.model,
		Messages: []llm.ChatMessage{
			{Role: "system", Content: systemPrompt(query, country)},
			{Role: "user", Content: query},
		},
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		SearchParameters: &llm.SearchParameters{
			Mode:             "auto",
			ReturnCitations:  true,
			MaxSearchResults: e.maxResults,
		},
	})
	if err != nil {
		log.Printf("ERROR: [LEGISLATION_ENGINE] %v", err)
		return Result{
			Success: false,
			Error:   err.Error(),
			Content: fmt.Sprintf("Error searching for legal information: %s", err.Error()),
		}
	}

	content := resp.Content()
	log.Printf("INFO: [LEGISLATION_ENGINE] Search completed: %d characters, %d citations", len(content), len(resp.Citations))
	return Result{Success: true, Content: content, Sources: resp.Citations}
}

// Execute adapts Search to the tool registry.
func (e *Engine) Execute(ctx context.Context, inv tools.Invocation) tools.Output {
	r := e.Search(ctx, inv.Query, inv.Country)
	return tools.Output{Success: r.Success, Content: r.Content, Sources: r.Sources, Error: r.Error}
}

func systemPrompt(query, country string) string {
	return fmt.Sprintf(`You are a legal research assistant with access to web search capabilities.

Your task is to search for and provide comprehensive information about:
%s

Focus on %s law and legal sources.

Provide:
1. Direct answers to the legal question
2. Relevant legislation, statutes, and regulations
3. Case law and precedents
4. Legal principles and interpretations
5. Citations and sources for all information

Format your response in clear, structured markdown with:
- Headings for different topics
- Bullet points for key points
- Citations in [Source Name](URL) format`, query, country)
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
