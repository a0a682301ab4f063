// Package model defines the completion abstraction the coordinator talks
// to. A Completion takes the agent's instruction, the conversation history,
// and the tool definitions it may request, and returns text and/or tool
// calls. Provider adapters live in subpackages; MockCompletion backs tests.
package model

import (
	"context"

	"github.com/hupe1980/agentrelay/core"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of the conversation history handed to the model.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ToolDefinition describes a tool the model may request, with a JSON schema
// for its parameters.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is a single completion request.
type Request struct {
	// Instruction is the system prompt of the handling agent.
	Instruction string

	// History is the conversation so far, ending with the current user
	// utterance.
	History []Message

	// Tools are the definitions of the tools the handling agent allows.
	Tools []ToolDefinition
}

// Response is the model's answer: free text, requested tool calls, or both.
type Response struct {
	Text      string
	ToolCalls []core.ToolCall
}

// Completion produces a model response for a request.
type Completion interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}
