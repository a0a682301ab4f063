package core

import "time"

// Turn is one user-utterance-to-response cycle. It is ephemeral and exists
// only for the duration of a single Coordinator invocation.
type Turn struct {
	Utterance string          `json:"utterance"`
	Key       ConversationKey `json:"key"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewTurn creates a turn stamped with the current UTC time.
func NewTurn(key ConversationKey, utterance string) Turn {
	return Turn{Utterance: utterance, Key: key, Timestamp: time.Now().UTC()}
}

// TurnState labels the stations a turn passes through. The happy path is
//
//	Received → GuardrailChecked → Routed → (ToolExecuting)* → StateMerged → Responded
//
// with short-circuit edges GuardrailChecked→Responded (pre-model block) and
// ToolExecuting→Responded (surfaced tool error). Responded is terminal; a
// turn is never resumed once it reaches it.
type TurnState string

const (
	TurnReceived         TurnState = "received"
	TurnGuardrailChecked TurnState = "guardrail_checked"
	TurnRouted           TurnState = "routed"
	TurnToolExecuting    TurnState = "tool_executing"
	TurnStateMerged      TurnState = "state_merged"
	TurnResponded        TurnState = "responded"
)
