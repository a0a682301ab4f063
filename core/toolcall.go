package core

// ToolCall is a single tool invocation requested by the completion
// collaborator. It is ephemeral and validated before execution.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolStatus categorizes a ToolResult as success or error.
type ToolStatus string

const (
	ToolStatusSuccess ToolStatus = "success"
	ToolStatusError   ToolStatus = "error"
)

// Result codes for the error half of the taxonomy. A guardrail block is a
// normal, expected outcome and is never logged as a system fault; the other
// codes are surfaced to the user as canned messages and logged for operators.
const (
	ToolCodeGuardrailBlocked = "guardrail_blocked"
	ToolCodeNotPermitted     = "not_permitted"
	ToolCodeValidationFailed = "validation_failed"
	ToolCodeExecutionFailed  = "execution_failed"
)

// ToolResult captures the outcome of one tool invocation. On success the
// Payload holds the tool's structured output and StateDelta the state it
// staged for the Coordinator to merge; on error the ErrorMessage explains the
// failure and StateDelta is always empty.
type ToolResult struct {
	Status       ToolStatus     `json:"status"`
	Code         string         `json:"code,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	StateDelta   map[string]any `json:"state_delta,omitempty"`
}

// SuccessResult builds a success result with the given payload and staged
// state delta (either may be nil).
func SuccessResult(payload, stateDelta map[string]any) ToolResult {
	return ToolResult{Status: ToolStatusSuccess, Payload: payload, StateDelta: stateDelta}
}

// ErrorResult builds an error result with a taxonomy code and message.
func ErrorResult(code, message string) ToolResult {
	return ToolResult{Status: ToolStatusError, Code: code, ErrorMessage: message}
}

// OK reports whether the invocation succeeded.
func (r ToolResult) OK() bool { return r.Status == ToolStatusSuccess }
