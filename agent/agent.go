// Package agent defines the declarative agent tree: each Spec names the
// tools it may call, the instruction it completes under, and the guardrail
// inspectors scoped to it. Specs are wired into a tree once at startup and
// treated as immutable afterwards.
package agent

import (
	"fmt"

	"github.com/hupe1980/agentrelay/guardrail"
)

// Options configure a Spec.
type Options struct {
	// Description is a short capability summary used by the router and for
	// operator-facing output.
	Description string

	// Instruction is the system prompt the completion collaborator runs
	// under when this agent handles a turn.
	Instruction string

	// Tools lists the tool names this agent is permitted to call. Calls to
	// any other tool are rejected before guardrails or validation run.
	Tools []string

	// PreModel holds agent-scoped pre-model inspectors, run after the
	// pipeline's global ones.
	PreModel []guardrail.ModelInspector

	// PreTool holds agent-scoped pre-tool inspectors, run after the
	// pipeline's global ones.
	PreTool []guardrail.ToolInspector
}

// Spec describes one agent in the delegation tree.
type Spec struct {
	name        string
	description string
	instruction string
	tools       []string
	preModel    []guardrail.ModelInspector
	preTool     []guardrail.ToolInspector
	parent      *Spec
	subAgents   []*Spec
}

// New creates an agent spec.
func New(name string, optFns ...func(o *Options)) *Spec {
	opts := Options{}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Spec{
		name:        name,
		description: opts.Description,
		instruction: opts.Instruction,
		tools:       append([]string(nil), opts.Tools...),
		preModel:    append([]guardrail.ModelInspector(nil), opts.PreModel...),
		preTool:     append([]guardrail.ToolInspector(nil), opts.PreTool...),
	}
}

// Name returns the agent's unique name.
func (s *Spec) Name() string { return s.name }

// Description returns the agent's capability summary.
func (s *Spec) Description() string { return s.description }

// Instruction returns the agent's system prompt.
func (s *Spec) Instruction() string { return s.instruction }

// Tools returns a copy of the agent's allowed tool names.
func (s *Spec) Tools() []string {
	return append([]string(nil), s.tools...)
}

// PreModel returns the agent-scoped pre-model inspectors.
func (s *Spec) PreModel() []guardrail.ModelInspector {
	return append([]guardrail.ModelInspector(nil), s.preModel...)
}

// PreTool returns the agent-scoped pre-tool inspectors.
func (s *Spec) PreTool() []guardrail.ToolInspector {
	return append([]guardrail.ToolInspector(nil), s.preTool...)
}

// Parent returns the agent's parent, or nil for the root.
func (s *Spec) Parent() *Spec { return s.parent }

// SubAgents returns a copy of the agent's direct children in declaration
// order. Declaration order matters: the router breaks score ties in favor of
// the earliest declared candidate.
func (s *Spec) SubAgents() []*Spec {
	return append([]*Spec(nil), s.subAgents...)
}

// WithSubAgents attaches children to s. An agent can have only one parent.
func (s *Spec) WithSubAgents(children ...*Spec) error {
	for _, child := range children {
		if child.parent != nil {
			return fmt.Errorf("agent %q already has parent %q", child.name, child.parent.name)
		}

		child.parent = s
		s.subAgents = append(s.subAgents, child)
	}

	return nil
}

// AllowsTool reports whether the agent may call the named tool.
func (s *Spec) AllowsTool(name string) bool {
	for _, t := range s.tools {
		if t == name {
			return true
		}
	}

	return false
}

// Find returns the agent named name in the tree rooted at s, searching depth
// first in declaration order, or nil when absent.
func (s *Spec) Find(name string) *Spec {
	if s.name == name {
		return s
	}

	for _, child := range s.subAgents {
		if found := child.Find(name); found != nil {
			return found
		}
	}

	return nil
}

// Validate checks the tree rooted at s: every agent must have a non-empty
// unique name, and every declared tool must be known to the registry the
// known predicate represents.
func (s *Spec) Validate(known func(name string) bool) error {
	seen := map[string]bool{}

	var walk func(spec *Spec) error

	walk = func(spec *Spec) error {
		if spec.name == "" {
			return fmt.Errorf("agent with empty name")
		}

		if seen[spec.name] {
			return fmt.Errorf("duplicate agent name %q", spec.name)
		}

		seen[spec.name] = true

		if known != nil {
			for _, tool := range spec.tools {
				if !known(tool) {
					return fmt.Errorf("agent %q declares unknown tool %q", spec.name, tool)
				}
			}
		}

		for _, child := range spec.subAgents {
			if err := walk(child); err != nil {
				return err
			}
		}

		return nil
	}

	return walk(s)
}
