package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/hupe1980/agentrelay/agent"
	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/guardrail"
	"github.com/hupe1980/agentrelay/logging"
)

// InvokerOptions configure an Invoker.
type InvokerOptions struct {
	// Logger is the logger instance used by the invoker.
	Logger logging.Logger
}

// Invoker runs a requested tool call through the full gauntlet: the agent's
// allowed list, the pre-tool guardrail stage, JSON schema validation of the
// arguments, and finally panic-recovered execution. Every outcome becomes a
// ToolResult; the invoker never merges state itself, it only stages the
// delta for the coordinator.
type Invoker struct {
	registry *Registry
	pipeline *guardrail.Pipeline
	state    core.StateReader
	logger   logging.Logger
}

// NewInvoker creates an invoker.
func NewInvoker(registry *Registry, pipeline *guardrail.Pipeline, state core.StateReader, optFns ...func(o *InvokerOptions)) *Invoker {
	opts := InvokerOptions{
		Logger: logging.NewDefaultLogger(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Invoker{
		registry: registry,
		pipeline: pipeline,
		state:    state,
		logger:   opts.Logger,
	}
}

// Invoke executes one tool call on behalf of spec. The returned result's
// StateDelta is populated only on success.
func (i *Invoker) Invoke(ctx context.Context, spec *agent.Spec, call core.ToolCall, key core.ConversationKey) core.ToolResult {
	logger := logging.WithFields(i.logger, "tool", call.Name, "call_id", call.ID, "agent", spec.Name())

	if !spec.AllowsTool(call.Name) || !i.registry.Has(call.Name) {
		logger.Warn("tool call not permitted")
		return core.ErrorResult(core.ToolCodeNotPermitted,
			fmt.Sprintf("The %s tool is not available here.", call.Name))
	}

	t := i.registry.Get(call.Name)

	verdict := i.pipeline.PreTool(guardrail.ToolInput{
		Tool:      call.Name,
		Arguments: call.Arguments,
		Agent:     spec.Name(),
		Key:       key,
		State:     i.state,
	}, spec.PreTool()...)
	if verdict.Blocked() {
		return core.ErrorResult(core.ToolCodeGuardrailBlocked, verdict.Reason)
	}

	if err := validateArguments(t.Parameters(), call.Arguments); err != nil {
		logger.Warn("tool arguments rejected", "error", err)
		return core.ErrorResult(core.ToolCodeValidationFailed, err.Error())
	}

	tc := NewContext(ctx, key, i.state, call.ID, spec.Name(), logger)

	payload, err := i.execute(t, tc, call.Arguments)
	if err != nil {
		logger.Error("tool execution failed", "error", err)
		return core.ErrorResult(core.ToolCodeExecutionFailed,
			"Sorry, something went wrong while handling that request.")
	}

	logger.Debug("tool call succeeded")

	return core.SuccessResult(payload, tc.StateDelta())
}

// execute runs the tool with panic recovery so a misbehaving tool degrades
// to an execution error instead of taking down the turn.
func (i *Invoker) execute(t Tool, tc *Context, args map[string]any) (payload map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			payload = nil
			err = fmt.Errorf("tool %s panicked: %v", t.Name(), r)
		}
	}()

	return t.Call(tc, args)
}

// validateArguments checks args against the tool's JSON schema. An empty
// schema skips validation.
func validateArguments(schema, args map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	if args == nil {
		args = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(args),
	)
	if err != nil {
		return fmt.Errorf("argument validation: %w", err)
	}

	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			reasons = append(reasons, desc.String())
		}

		return fmt.Errorf("invalid arguments: %s", strings.Join(reasons, "; "))
	}

	return nil
}
