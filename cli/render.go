package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/xiaot623/gogo/harness/internal/protocol"
)

// Renderer prints server events as console lines. Draft chunks are shown
// inline and closed off when the agent commits or retracts them.
type Renderer struct {
	mu        sync.Mutex
	out       io.Writer
	drafts    bool
	streaming bool
}

// NewRenderer creates a renderer. With drafts false, stream chunks are skipped.
func NewRenderer(out io.Writer, drafts bool) *Renderer {
	return &Renderer{out: out, drafts: drafts}
}

// Render prints one decoded event.
func (r *Renderer) Render(event map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgType := str(event, "type")
	switch msgType {
	case protocol.TypeAgentStream, protocol.TypeLawyerStream:
		if !r.drafts {
			return
		}
		if !r.streaming {
			fmt.Fprint(r.out, color.HiBlackString("[%s] ", str(event, "agent")))
			r.streaming = true
		}
		fmt.Fprint(r.out, color.HiBlackString("%s", str(event, "chunk")))
		return
	case protocol.TypeClearStream:
		if r.streaming {
			fmt.Fprintln(r.out, color.HiBlackString(" (retracted)"))
			r.streaming = false
		}
		return
	case protocol.TypePong, protocol.TypeConnected:
		return
	}

	r.endDraft()

	switch msgType {
	case protocol.TypeStatus:
		line := str(event, "message")
		if p, ok := event["progress"].(map[string]interface{}); ok {
			line = fmt.Sprintf("%s [%v/%v]", line, p["current"], p["total"])
		}
		r.line(color.CyanString("• %s", line))

	case protocol.TypeAgentMessageWithReasoning:
		r.line(color.YellowString("%s: ", agentLabel(str(event, "agent"))) + str(event, "message"))
		if reasoning := str(event, "reasoning"); reasoning != "" {
			r.line(color.HiBlackString("  reasoning: %s", reasoning))
		}

	case protocol.TypeAgentMessage:
		r.line(color.YellowString("%s: ", agentLabel(str(event, "agent"))) + str(event, "message"))

	case protocol.TypeTasksCreated:
		tasks, _ := event["tasks"].([]interface{})
		r.line(color.GreenString("Created %d tasks:", len(tasks)))
		for _, t := range tasks {
			task, _ := t.(map[string]interface{})
			r.line(fmt.Sprintf("  %v. [%s] %s", task["id"], str(task, "priority"), str(task, "description")))
		}

	case protocol.TypeTaskConversationStart:
		task, _ := event["task"].(map[string]interface{})
		r.line(color.MagentaString("─── Task %v: %s", task["id"], str(task, "description")))

	case protocol.TypeTaskConversationEnd:
		r.line(color.MagentaString("─── Ended after %v turns: %s", event["turns"], str(event, "reason")))

	case protocol.TypeLawyerToolCall:
		r.line(color.BlueString("%s searched %s: %s", agentLabel(str(event, "agent")), str(event, "tool"), str(event, "query")))

	case protocol.TypeLawyerMessage:
		r.line(color.BlueString("%s: ", agentLabel(str(event, "agent"))) + str(event, "message"))
		if sources, ok := event["sources"].([]interface{}); ok && len(sources) > 0 {
			r.line(color.HiBlackString("  %d sources", len(sources)))
		}

	case protocol.TypeTaskCompleted:
		result, _ := event["result"].(map[string]interface{})
		score := "n/a"
		if eval, ok := result["evaluation"].(map[string]interface{}); ok {
			score = fmt.Sprintf("%v/10", eval["score"])
		}
		r.line(color.GreenString("✓ Task done (%s) score %s", str(result, "status"), score))

	case protocol.TypeAllTasksCompleted:
		summary, _ := event["summary"].(map[string]interface{})
		r.line(color.GreenString("All tasks completed: %v/%v, average score %v",
			summary["completedTasks"], summary["totalTasks"], summary["averageScore"]))
		if id := str(event, "sessionId"); id != "" {
			r.line(color.HiBlackString("  saved as %s", id))
		}

	case protocol.TypeResetComplete:
		r.line(color.CyanString("%s", str(event, "message")))

	case protocol.TypeError:
		r.line(color.RedString("✗ %s: %s", str(event, "code"), str(event, "message")))

	default:
		data, _ := json.Marshal(event)
		r.line(fmt.Sprintf("[%s] %s", msgType, data))
	}
}

func (r *Renderer) endDraft() {
	if r.streaming {
		fmt.Fprintln(r.out)
		r.streaming = false
	}
}

func (r *Renderer) line(s string) {
	fmt.Fprintln(r.out, s)
}

func agentLabel(agent string) string {
	switch agent {
	case protocol.AgentTaskCreator:
		return "Task Creator"
	case protocol.AgentTaskExecutor:
		return "Task Executor"
	case protocol.AgentHomeChatAI:
		return "Lawyer"
	case "":
		return "System"
	}
	return strings.ReplaceAll(agent, "_", " ")
}

func str(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}
