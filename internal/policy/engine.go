// Package policy gates tool calls requested by the agent under test.
package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"
)

// Decisions returned by the tool policy.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
// The module must define data.tool_policy.decision and data.tool_policy.reason.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("decision = data.tool_policy.decision; reason = data.tool_policy.reason"),
		rego.Module("tool_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// NewEngineFromFile loads the policy at path, or DefaultPolicy when path is empty.
func NewEngineFromFile(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, DefaultPolicy)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return NewEngine(ctx, string(content))
}

// ToolInput builds the policy input for one tool call.
func ToolInput(toolName, query, country string) map[string]interface{} {
	return map[string]interface{}{
		"tool_name": toolName,
		"query":     query,
		"country":   country,
	}
}

// Evaluate checks the tool policy.
// Returns: decision (allow, block), reason (empty when allowed), error
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 {
		return DecisionAllow, "", nil
	}

	decision, ok := results[0].Bindings["decision"].(string)
	if !ok {
		return "", "", fmt.Errorf("policy decision is not a string: %v", results[0].Bindings["decision"])
	}
	reason, _ := results[0].Bindings["reason"].(string)
	return decision, reason, nil
}

// MaxQueryLength is the longest research query the default policy allows.
const MaxQueryLength = 2000

// DefaultPolicy allows legislation_engine calls with a non-empty query of
// at most MaxQueryLength characters.
const DefaultPolicy = `
package tool_policy

known_tools = {"legislation_engine"}

query_text = object.get(input, "query", null)

default reason = ""

reason = "unknown tool" {
	not known_tools[input.tool_name]
} else = "empty query" {
	not is_string(query_text)
} else = "empty query" {
	trim_space(query_text) == ""
} else = "query too long" {
	count(query_text) > 2000
}

default decision = "allow"

decision = "block" {
	reason != ""
}
`
