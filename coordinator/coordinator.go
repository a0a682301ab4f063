// Package coordinator drives the turn lifecycle: it receives a user
// utterance, runs the pre-model guardrail stage, routes to the handling
// agent, calls the completion collaborator, executes requested tools through
// the invoker, merges staged state, and composes the final response.
package coordinator

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentrelay/agent"
	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/guardrail"
	"github.com/hupe1980/agentrelay/internal/util"
	"github.com/hupe1980/agentrelay/logging"
	"github.com/hupe1980/agentrelay/model"
	"github.com/hupe1980/agentrelay/router"
	"github.com/hupe1980/agentrelay/session"
	"github.com/hupe1980/agentrelay/tool"
)

// Well-known session state fields the coordinator maintains itself.
const (
	// TranscriptField holds the conversation history as a capped list of
	// {"role", "text"} entries.
	TranscriptField = "transcript"

	// LastAgentField holds the name of the agent that handled the previous
	// turn, feeding the router's affinity bonus.
	LastAgentField = "last_agent"

	// RateField counts handled requests for rate limiting.
	RateField = "requests_in_window"
)

// TranscriptCap bounds the transcript list. Older exchanges are evicted
// first.
const TranscriptCap = 20

const completionApology = "Sorry, I couldn't process that request. Please try again."

// Options configure a Coordinator.
type Options struct {
	// Store persists session state. Defaults to an in-memory store with the
	// coordinator's standard field policy.
	Store core.SessionStore

	// Registry holds the known tools.
	Registry *tool.Registry

	// Pipeline holds the globally registered guardrail inspectors.
	Pipeline *guardrail.Pipeline

	// Router selects the handling agent.
	Router *router.Router

	// MaxToolCalls caps how many requested tool calls a single turn
	// executes.
	MaxToolCalls int

	// Logger is the logger instance used by the coordinator.
	Logger logging.Logger
}

// Coordinator owns a single agent tree and serves turns against it. It is
// safe for concurrent use; per-conversation ordering is the store's job.
type Coordinator struct {
	root         *agent.Spec
	completion   model.Completion
	store        core.SessionStore
	registry     *tool.Registry
	pipeline     *guardrail.Pipeline
	router       *router.Router
	invoker      *tool.Invoker
	maxToolCalls int
	logger       logging.Logger
}

// TurnResult is everything a caller learns about one completed turn.
type TurnResult struct {
	// TurnID correlates log entries for this turn.
	TurnID string

	// Response is the final user-facing text.
	Response string

	// Agent is the name of the agent that handled the turn.
	Agent string

	// Path lists the lifecycle states the turn passed through, in order.
	Path []core.TurnState

	// ToolResults holds the outcome of every tool call the turn executed,
	// in execution order.
	ToolResults []core.ToolResult
}

// New creates a coordinator for the tree rooted at root. The tree is
// validated against the registry once, up front.
func New(root *agent.Spec, completion model.Completion, optFns ...func(o *Options)) (*Coordinator, error) {
	opts := Options{
		Registry:     tool.NewRegistry(),
		MaxToolCalls: 5,
		Logger:       logging.NewDefaultLogger(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if root == nil {
		return nil, fmt.Errorf("coordinator requires a root agent")
	}

	if completion == nil {
		return nil, fmt.Errorf("coordinator requires a completion")
	}

	if opts.Store == nil {
		opts.Store = session.NewInMemoryStore(func(o *session.Options) {
			o.Policy = DefaultStatePolicy()
			o.Logger = opts.Logger
		})
	}

	if opts.Pipeline == nil {
		opts.Pipeline = guardrail.NewPipeline(func(o *guardrail.PipelineOptions) {
			o.Logger = opts.Logger
		})
	}

	if opts.Router == nil {
		opts.Router = router.New(func(o *router.Options) {
			o.AffinityField = LastAgentField
			o.Logger = opts.Logger
		})
	}

	if err := root.Validate(opts.Registry.Has); err != nil {
		return nil, fmt.Errorf("invalid agent tree: %w", err)
	}

	invoker := tool.NewInvoker(opts.Registry, opts.Pipeline, opts.Store, func(o *tool.InvokerOptions) {
		o.Logger = opts.Logger
	})

	return &Coordinator{
		root:         root,
		completion:   completion,
		store:        opts.Store,
		registry:     opts.Registry,
		pipeline:     opts.Pipeline,
		router:       opts.Router,
		invoker:      invoker,
		maxToolCalls: opts.MaxToolCalls,
		logger:       opts.Logger,
	}, nil
}

// DefaultStatePolicy returns the merge policy for the fields the coordinator
// maintains. Callers building their own store should start from this and add
// their tools' fields.
func DefaultStatePolicy() *session.Policy {
	return session.NewPolicy().
		ListField(TranscriptField, TranscriptCap).
		CounterField(RateField)
}

// RunTurn serves one user utterance for the conversation identified by app,
// user and sessionID and returns the turn's outcome. Errors are reserved for
// infrastructure faults (invalid key, store failure); guardrail blocks and
// tool failures are normal outcomes reported inside the result.
func (c *Coordinator) RunTurn(ctx context.Context, app, user, sessionID, utterance string) (*TurnResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := core.NewConversationKey(app, user, sessionID)
	if err := key.Validate(); err != nil {
		return nil, err
	}

	turn := core.NewTurn(key, utterance)

	result := &TurnResult{
		TurnID: util.NewID(),
		Path:   []core.TurnState{core.TurnReceived},
	}

	logger := logging.WithFields(c.logger, "turn_id", result.TurnID, "key", key.String())
	logger.Debug("turn received")

	if err := c.store.CreateIfAbsent(key); err != nil {
		return nil, fmt.Errorf("establish session: %w", err)
	}

	// Pre-model stage. A block answers the turn with the policy reason and
	// leaves the session state completely untouched.
	verdict := c.pipeline.PreModel(guardrail.ModelInput{
		Utterance: utterance,
		Key:       key,
		State:     c.store,
	}, c.root.PreModel()...)

	result.Path = append(result.Path, core.TurnGuardrailChecked)

	if verdict.Blocked() {
		result.Response = verdict.Reason
		result.Agent = c.root.Name()
		result.Path = append(result.Path, core.TurnResponded)

		return result, nil
	}

	if err := c.store.Merge(key, map[string]any{RateField: 1}); err != nil {
		return nil, fmt.Errorf("merge rate counter: %w", err)
	}

	selected := c.router.Select(turn, c.root, c.store)
	result.Agent = selected.Name()
	result.Path = append(result.Path, core.TurnRouted)

	resp, err := c.completion.Complete(ctx, model.Request{
		Instruction: selected.Instruction(),
		History:     c.buildHistory(key, utterance),
		Tools:       c.registry.Definitions(selected.Tools()),
	})
	if err != nil {
		logger.Error("completion failed", "agent", selected.Name(), "error", err)

		result.Response = completionApology
		result.Path = append(result.Path, core.TurnResponded)

		return result, nil
	}

	calls := resp.ToolCalls
	if len(calls) > c.maxToolCalls {
		logger.Warn("tool call budget exceeded", "requested", len(calls), "max", c.maxToolCalls)
		calls = calls[:c.maxToolCalls]
	}

	for _, call := range calls {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if call.ID == "" {
			call.ID = util.NewID()
		}

		result.Path = append(result.Path, core.TurnToolExecuting)

		toolResult := c.invoker.Invoke(ctx, selected, call, key)
		result.ToolResults = append(result.ToolResults, toolResult)

		// A cancelled turn must not merge a partial delta.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if toolResult.OK() && len(toolResult.StateDelta) > 0 {
			if err := c.store.Merge(key, toolResult.StateDelta); err != nil {
				return nil, fmt.Errorf("merge tool state: %w", err)
			}
		}
	}

	result.Response = composeResponse(resp, result.ToolResults)
	result.Path = append(result.Path, core.TurnStateMerged)

	if err := c.store.Merge(key, map[string]any{
		TranscriptField: []any{
			map[string]any{"role": model.RoleUser, "text": utterance},
			map[string]any{"role": model.RoleAssistant, "text": result.Response},
		},
		LastAgentField: selected.Name(),
	}); err != nil {
		return nil, fmt.Errorf("merge transcript: %w", err)
	}

	result.Path = append(result.Path, core.TurnResponded)

	logger.Debug("turn responded", "agent", selected.Name(), "tool_calls", len(result.ToolResults))

	return result, nil
}

// buildHistory assembles the completion history from the stored transcript
// plus the current utterance.
func (c *Coordinator) buildHistory(key core.ConversationKey, utterance string) []model.Message {
	raw, _ := c.store.Get(key, TranscriptField, nil).([]any)

	history := make([]model.Message, 0, len(raw)+1)

	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		role, _ := m["role"].(string)
		text, _ := m["text"].(string)

		if role == "" || text == "" {
			continue
		}

		history = append(history, model.Message{Role: role, Text: text})
	}

	return append(history, model.Message{Role: model.RoleUser, Text: utterance})
}

// composeResponse turns the completion output and the tool outcomes into the
// final user-facing text. A successful tool's summary wins over the model's
// own text; a failed tool surfaces its mapped message.
func composeResponse(resp *model.Response, toolResults []core.ToolResult) string {
	for _, tr := range toolResults {
		if !tr.OK() {
			return tr.ErrorMessage
		}
	}

	for _, tr := range toolResults {
		if summary, ok := tr.Payload["summary"].(string); ok && summary != "" {
			return summary
		}
	}

	if resp.Text != "" {
		return resp.Text
	}

	for _, tr := range toolResults {
		if len(tr.Payload) > 0 {
			return fmt.Sprintf("%v", tr.Payload)
		}
	}

	return "I'm not sure how to help with that."
}
