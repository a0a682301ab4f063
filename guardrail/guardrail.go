// Package guardrail implements the two-stage safety pipeline. Pre-model
// inspectors see the raw utterance before any completion call; pre-tool
// inspectors see a concrete tool call before it executes. Inspectors return
// verdicts, never errors: blocking is an expected outcome, not a fault.
package guardrail

import (
	"strings"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/logging"
)

// ModelInput is what a pre-model inspector examines.
type ModelInput struct {
	// Utterance is the raw user text for this turn.
	Utterance string

	// Key identifies the conversation.
	Key core.ConversationKey

	// State is a read-only view of the session state.
	State core.StateReader
}

// ToolInput is what a pre-tool inspector examines.
type ToolInput struct {
	// Tool is the name of the tool about to run.
	Tool string

	// Arguments are the already-parsed call arguments.
	Arguments map[string]any

	// Agent is the name of the agent on whose behalf the tool runs.
	Agent string

	// Key identifies the conversation.
	Key core.ConversationKey

	// State is a read-only view of the session state.
	State core.StateReader
}

// ModelInspector screens a user utterance before the completion call.
type ModelInspector interface {
	// Name identifies the inspector in logs.
	Name() string

	// Inspect returns the verdict for the given input.
	Inspect(in ModelInput) core.Verdict
}

// ToolInspector screens a tool call before execution.
type ToolInspector interface {
	// Name identifies the inspector in logs.
	Name() string

	// Inspect returns the verdict for the given input.
	Inspect(in ToolInput) core.Verdict
}

type modelInspectorFunc struct {
	name string
	fn   func(in ModelInput) core.Verdict
}

func (m *modelInspectorFunc) Name() string                       { return m.name }
func (m *modelInspectorFunc) Inspect(in ModelInput) core.Verdict { return m.fn(in) }

// NewModelInspector wraps a function as a named pre-model inspector.
func NewModelInspector(name string, fn func(in ModelInput) core.Verdict) ModelInspector {
	return &modelInspectorFunc{name: name, fn: fn}
}

type toolInspectorFunc struct {
	name string
	fn   func(in ToolInput) core.Verdict
}

func (t *toolInspectorFunc) Name() string                      { return t.name }
func (t *toolInspectorFunc) Inspect(in ToolInput) core.Verdict { return t.fn(in) }

// NewToolInspector wraps a function as a named pre-tool inspector.
func NewToolInspector(name string, fn func(in ToolInput) core.Verdict) ToolInspector {
	return &toolInspectorFunc{name: name, fn: fn}
}

// PipelineOptions configure a Pipeline.
type PipelineOptions struct {
	// Logger is the logger instance used by the pipeline.
	Logger logging.Logger
}

// Pipeline holds the registered inspectors and runs them in registration
// order. The first Block short-circuits the stage; later inspectors do not
// run and must not observe the input.
type Pipeline struct {
	preModel []ModelInspector
	preTool  []ToolInspector
	logger   logging.Logger
}

// NewPipeline creates an empty pipeline.
func NewPipeline(optFns ...func(o *PipelineOptions)) *Pipeline {
	opts := PipelineOptions{
		Logger: logging.NewDefaultLogger(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Pipeline{logger: opts.Logger}
}

// RegisterPreModel appends inspectors to the pre-model stage.
func (p *Pipeline) RegisterPreModel(inspectors ...ModelInspector) {
	p.preModel = append(p.preModel, inspectors...)
}

// RegisterPreTool appends inspectors to the pre-tool stage.
func (p *Pipeline) RegisterPreTool(inspectors ...ToolInspector) {
	p.preTool = append(p.preTool, inspectors...)
}

// PreModel runs the pre-model stage over the pipeline's inspectors followed
// by any extras (typically agent-scoped ones). Empty or whitespace-only
// utterances are always allowed without consulting any inspector.
func (p *Pipeline) PreModel(in ModelInput, extra ...ModelInspector) core.Verdict {
	if strings.TrimSpace(in.Utterance) == "" {
		return core.Allow()
	}

	for _, inspector := range p.preModel {
		if v := inspector.Inspect(in); v.Blocked() {
			p.logger.Info("utterance blocked", "inspector", inspector.Name(), "key", in.Key.String())
			return v
		}
	}

	for _, inspector := range extra {
		if v := inspector.Inspect(in); v.Blocked() {
			p.logger.Info("utterance blocked", "inspector", inspector.Name(), "key", in.Key.String())
			return v
		}
	}

	return core.Allow()
}

// PreTool runs the pre-tool stage over the pipeline's inspectors followed by
// any extras. The first Block wins.
func (p *Pipeline) PreTool(in ToolInput, extra ...ToolInspector) core.Verdict {
	for _, inspector := range p.preTool {
		if v := inspector.Inspect(in); v.Blocked() {
			p.logger.Info("tool call blocked", "inspector", inspector.Name(), "tool", in.Tool, "key", in.Key.String())
			return v
		}
	}

	for _, inspector := range extra {
		if v := inspector.Inspect(in); v.Blocked() {
			p.logger.Info("tool call blocked", "inspector", inspector.Name(), "tool", in.Tool, "key", in.Key.String())
			return v
		}
	}

	return core.Allow()
}
