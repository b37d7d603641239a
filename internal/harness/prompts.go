package harness

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xiaot623/gogo/harness/internal/domain"
)

func agentLabel(agentType string) string {
	if agentType == domain.AgentTypeCaseAI {
		return "Case AI"
	}
	return "Home Chat AI"
}

type gatheredInfo struct {
	AgentType    string  `json:"agentType"`
	Country      string  `json:"country"`
	LegalArea    *string `json:"legalArea"`
	Jurisdiction *string `json:"jurisdiction"`
	Complexity   *string `json:"complexity"`
}

func creatorDecisionPrompt(agentType, country string) string {
	info, _ := json.Marshal(gatheredInfo{AgentType: agentType, Country: country})
	return fmt.Sprintf(`You are an intelligent Task Creator Agent that engages in conversation with users to gather sufficient information before creating tasks.

The user has selected to test: %s for %s

Your role is to:
1. Ask clarifying questions when the user's request is vague or incomplete
2. Autonomously decide when you have enough information to proceed
3. Generate tasks only when you're confident you understand the full scope

Decision-making criteria:
- If the request is clear and specific (e.g., "test the lawyer agent on defamation laws"), you can proceed immediately
- If the request is vague (e.g., "test the lawyer"), ask for: specific legal area, complexity level, number of test cases
- If the request mentions a legal topic but lacks details, ask for: specific aspects to focus on, depth of testing required

When you have sufficient information, respond with a JSON object:
{
  "action": "create_tasks",
  "reasoning": "why you have enough information",
  "ready": true
}

When you need more information, respond with a JSON object:
{
  "action": "ask_question",
  "question": "your clarifying question to the user",
  "reasoning": "what information you still need",
  "ready": false
}

Current conversation context: %s`, agentLabel(agentType), country, info)
}

const materializePrompt = `You are an expert task planner. Based on the conversation history, create a comprehensive list of tasks for testing the lawyer AI agent.

Generate as many tasks as needed. Create 3, 10, 50, or more tasks if that's what's required to thoroughly test the lawyer agent.

Each task should be specific and actionable. For example, if testing defamation laws:
- Task 1: Test understanding of actual malice standard for public figures
- Task 2: Test knowledge of statute of limitations for defamation claims
- Task 3: Test ability to distinguish between libel and slander
- Task 4: Test understanding of truth as an absolute defense
- Task 5: Test knowledge of qualified privilege defenses
... and so on

Return a JSON array where each task has:
- id: unique identifier (sequential numbers)
- description: specific test question or scenario
- priority: high/medium/low
- category: the legal area being tested

Return ONLY a valid JSON array, no other text.`

func materializeUserPrompt(history []domain.Message) string {
	lines := make([]string, 0, len(history))
	for _, m := range history {
		lines = append(lines, m.Content)
	}
	return fmt.Sprintf("Conversation history:\n%s\n\nCreate comprehensive tasks for testing the lawyer agent based on this conversation.",
		strings.Join(lines, "\n"))
}

const formulatePrompt = `You are a Task Executor Agent responsible for testing the JustHemis lawyer AI agent.

Your role is to:
1. Take a specific test task (e.g., "Test understanding of actual malice in defamation law")
2. Formulate a clear, specific question or scenario to send to the lawyer AI
3. The question should thoroughly test the lawyer's knowledge on that specific topic
4. Make questions realistic and challenging, as if a real client is asking

For example:
- Task: "Test knowledge of statute of limitations for defamation"
- Your question: "I was defamed in a newspaper article published 2 years ago in the UK. Is it too late to file a lawsuit? What's the time limit for defamation claims?"

- Task: "Test understanding of qualified privilege defense"
- Your question: "I'm a journalist who published allegations about a politician based on a police report. The politician is suing me for defamation. Can I use qualified privilege as a defense?"

Return a JSON object with:
- question: the specific question to ask the lawyer AI
- reasoning: why this question tests the task objective
- expected_topics: array of legal topics the lawyer should cover in response`

func formulateUserPrompt(task domain.Task, previous string) string {
	category := task.Category
	if category == "" {
		category = "general"
	}
	return fmt.Sprintf(`Task to execute: %s
Category: %s
Priority: %s

%s

Formulate a specific, challenging question to test the lawyer AI on this task.
Return ONLY valid JSON, no other text.`, task.Description, category, task.Priority, previous)
}

func judgePrompt(task domain.Task, plan domain.ExecutionPlan, recent []domain.ConversationTurn) string {
	topics, _ := json.Marshal(nonNilTopics(plan.ExpectedTopics))
	lines := make([]string, 0, len(recent))
	for _, turn := range recent {
		lines = append(lines, fmt.Sprintf("%s: %s", strings.ToUpper(string(turn.Role)), turn.Message))
	}
	return fmt.Sprintf(`You are analyzing a conversation between a Task Executor and a Lawyer AI to determine if the task has been fully tested.

Task being tested: %s
Expected topics: %s

Conversation so far:
%s

Analyze the lawyer's last response and decide:
1. If the lawyer is asking for MORE INFORMATION or CLARIFICATION (e.g., "What jurisdiction?", "When did this happen?", "Can you provide more details?"), you MUST provide a reasonable follow-up answer to continue the conversation
2. If the lawyer has provided a COMPLETE ANSWER covering the expected topics, end the conversation
3. If the lawyer's answer is INCOMPLETE or VAGUE, ask a follow-up question to probe deeper

IMPORTANT: If the lawyer asks a question, you must answer it to continue the conversation naturally.

Return JSON:
{
  "continue": true/false,
  "reason": "explanation of your decision",
  "followUpQuestion": "your follow-up question or answer (only if continue is true)"
}

Return ONLY valid JSON.`, task.Description, topics, strings.Join(lines, "\n\n"))
}

const evaluatePrompt = `You are an expert legal evaluator. Assess whether the lawyer AI's response adequately addresses the question and covers the expected legal topics.

Provide a brief evaluation with:
- coverage: did it cover the expected topics? (yes/partial/no)
- accuracy: does the response seem legally sound? (good/fair/poor)
- completeness: is the response thorough? (complete/partial/incomplete)
- score: overall score 0-10

Return JSON only.`

func evaluateUserPrompt(task domain.Task, plan domain.ExecutionPlan, transcript string) string {
	topics, _ := json.Marshal(nonNilTopics(plan.ExpectedTopics))
	return fmt.Sprintf(`Task: %s
Question asked: %s
Expected topics: %s

Lawyer's response:
%s

Evaluate this response. Return ONLY valid JSON.`, task.Description, plan.Question, topics, transcript)
}

func nonNilTopics(topics []string) []string {
	if topics == nil {
		return []string{}
	}
	return topics
}
