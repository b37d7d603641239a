// Package tools holds the tools offered to the agent under test: their
// declarations sent to the model and the executors run when the model
// asks for them.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xiaot623/gogo/harness/internal/adapter/llm"
	"github.com/xiaot623/gogo/harness/internal/policy"
)

// ErrBlocked is returned when the policy gate refuses a tool call.
var ErrBlocked = errors.New("tool call blocked by policy")

// Invocation is one tool call requested by the model.
type Invocation struct {
	Name    string
	Query   string
	Country string
}

// Output is what an executor hands back to the agent.
type Output struct {
	Success bool
	Content string
	Sources []json.RawMessage
	Error   string
}

// ExecutorFunc defines a server-side tool executor.
type ExecutorFunc func(ctx context.Context, inv Invocation) Output

// Gate decides whether a tool call may run.
type Gate interface {
	Evaluate(ctx context.Context, input interface{}) (string, string, error)
}

type entry struct {
	decl llm.Tool
	exec ExecutorFunc
}

// Registry stores tool declarations and executors keyed by tool name.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	order   []string
	gate    Gate
}

// NewRegistry creates an empty registry. A nil gate allows every call.
func NewRegistry(gate Gate) *Registry {
	return &Registry{
		entries: make(map[string]entry),
		gate:    gate,
	}
}

// Register adds a tool declaration and its executor.
func (r *Registry) Register(decl llm.Tool, exec ExecutorFunc) error {
	name := decl.Function.Name
	if name == "" {
		return fmt.Errorf("tool name is required")
	}
	if exec == nil {
		return fmt.Errorf("executor is required")
	}
	if decl.Type == "" {
		decl.Type = "function"
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("executor already registered for %s", name)
	}
	r.entries[name] = entry{decl: decl, exec: exec}
	r.order = append(r.order, name)
	return nil
}

// Declarations returns the tool definitions to send with a completion request.
func (r *Registry) Declarations() []llm.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	decls := make([]llm.Tool, 0, len(r.order))
	for _, name := range r.order {
		decls = append(decls, r.entries[name].decl)
	}
	return decls
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Authorize evaluates the policy gate for inv.
func (r *Registry) Authorize(ctx context.Context, inv Invocation) error {
	if r.gate == nil {
		return nil
	}
	decision, reason, err := r.gate.Evaluate(ctx, policy.ToolInput(inv.Name, inv.Query, inv.Country))
	if err != nil {
		return fmt.Errorf("policy evaluation failed: %w", err)
	}
	if decision != policy.DecisionAllow {
		if reason == "" {
			reason = decision
		}
		return fmt.Errorf("%w: %s", ErrBlocked, reason)
	}
	return nil
}

// Execute runs the executor for inv.Name.
func (r *Registry) Execute(ctx context.Context, inv Invocation) (Output, error) {
	if inv.Name == "" {
		return Output{}, fmt.Errorf("tool name is required")
	}
	r.mu.RLock()
	e, ok := r.entries[inv.Name]
	r.mu.RUnlock()
	if !ok {
		return Output{}, fmt.Errorf("no executor registered for %s", inv.Name)
	}
	return e.exec(ctx, inv), nil
}

// QueryArgs is the argument object of query-style tools.
type QueryArgs struct {
	Query string `json:"query"`
}

// ParseQuery extracts the query argument from a tool call's JSON arguments.
func ParseQuery(arguments string) (string, error) {
	var args QueryArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("invalid tool arguments: %w", err)
	}
	if strings.TrimSpace(args.Query) == "" {
		return "", fmt.Errorf("tool arguments missing query")
	}
	return args.Query, nil
}
