// Package tool defines the tool abstraction, the registry the coordinator
// resolves calls against, and the invoker that runs a call through the full
// permission, guardrail, and validation gauntlet before execution.
package tool

// Tool is a capability the completion collaborator may request. Parameters
// returns a JSON schema for the call arguments; an empty schema means the
// tool takes arbitrary arguments.
type Tool interface {
	// Name returns the unique tool name.
	Name() string

	// Description explains what the tool does, surfaced to the model.
	Description() string

	// Parameters returns the JSON schema for the call arguments.
	Parameters() map[string]any

	// Call executes the tool. State writes go through the Context and are
	// staged as a delta, never applied directly.
	Call(tc *Context, args map[string]any) (map[string]any, error)
}
