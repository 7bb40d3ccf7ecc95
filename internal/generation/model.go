// Package generation drives the tool-calling interaction with the
// language model: a provider-neutral Model capability, the Anthropic
// adapter behind it, and the orchestrator state machine that turns a
// user query plus tool results into a final answer.
package generation

import (
	"context"

	"github.com/paulantoine/coursemate/internal/tools"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolCall is a structured tool invocation requested by the model.
type ToolCall struct {
	ID     string
	Name   string
	Params map[string]any
}

// ToolResult carries one tool's textual output back to the model.
type ToolResult struct {
	ToolCallID string
	Content    string
}

// Message is one conversation turn in provider-neutral form. Assistant
// turns may carry tool calls; user turns may carry tool results.
type Message struct {
	Role        Role
	Content     string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// Request is one model invocation. An empty Tools slice offers the
// model no tool use.
type Request struct {
	System   string
	Messages []Message
	Tools    []tools.Definition
}

// Response is the model's reply: final text, or one or more requested
// tool calls (possibly alongside preamble text).
type Response struct {
	Text      string
	ToolCalls []ToolCall
}

// Model is the language-model capability consumed by the orchestrator.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}
