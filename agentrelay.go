// Package agentrelay provides a high-level façade over the coordinator and
// its collaborators (session store, guardrail pipeline, delegation router,
// tool registry) enabling rapid construction of guarded multi-agent
// conversation services. Most applications interact with this package by:
//  1. Creating an AgentRelay via New() with a root agent and a completion
//  2. Registering tools and guardrail inspectors
//  3. Serving turns with Chat()
//
// All defaults are safe for local development and testing; production
// deployments typically supply a durable session store and a structured
// logger.
package agentrelay

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentrelay/agent"
	"github.com/hupe1980/agentrelay/coordinator"
	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/guardrail"
	"github.com/hupe1980/agentrelay/logging"
	"github.com/hupe1980/agentrelay/model"
	"github.com/hupe1980/agentrelay/router"
	"github.com/hupe1980/agentrelay/session"
	"github.com/hupe1980/agentrelay/tool"
)

// Options configure the AgentRelay instance.
type Options struct {
	// App names the application; it becomes the first component of every
	// conversation key.
	App string

	// Store persists session state (defaults to an in-memory store with the
	// coordinator's standard field policy).
	Store core.SessionStore

	// Policy declares per-field merge semantics when the default in-memory
	// store is used. Ignored when Store is set.
	Policy *session.Policy

	// Router selects the handling agent (defaults to keyword routing).
	Router *router.Router

	// Tools are registered before the coordinator is built.
	Tools []tool.Tool

	// PreModel and PreTool are the globally registered guardrail
	// inspectors.
	PreModel []guardrail.ModelInspector
	PreTool  []guardrail.ToolInspector

	// Logger (defaults to a slog-backed logger if nil).
	Logger logging.Logger
}

// AgentRelay is the high-level façade aggregating the coordinator and its
// services.
type AgentRelay struct {
	app         string
	coordinator *coordinator.Coordinator
}

// New creates an AgentRelay serving the tree rooted at root with the given
// completion. Any unset service is initialized with an in-memory
// implementation.
func New(root *agent.Spec, completion model.Completion, optFns ...func(o *Options)) (*AgentRelay, error) {
	opts := Options{
		App:    "agentrelay",
		Logger: logging.NewDefaultLogger(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	registry := tool.NewRegistry()
	if err := registry.Register(opts.Tools...); err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}

	if opts.Store == nil {
		policy := opts.Policy
		if policy == nil {
			policy = coordinator.DefaultStatePolicy()
		}

		opts.Store = session.NewInMemoryStore(func(o *session.Options) {
			o.Policy = policy
			o.Logger = opts.Logger
		})
	}

	pipeline := guardrail.NewPipeline(func(o *guardrail.PipelineOptions) {
		o.Logger = opts.Logger
	})
	pipeline.RegisterPreModel(opts.PreModel...)
	pipeline.RegisterPreTool(opts.PreTool...)

	c, err := coordinator.New(root, completion, func(o *coordinator.Options) {
		o.Store = opts.Store
		o.Registry = registry
		o.Pipeline = pipeline
		o.Router = opts.Router
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}

	return &AgentRelay{app: opts.App, coordinator: c}, nil
}

// Chat serves one user utterance for the given user and session.
func (r *AgentRelay) Chat(ctx context.Context, user, sessionID, utterance string) (*coordinator.TurnResult, error) {
	return r.coordinator.RunTurn(ctx, r.app, user, sessionID, utterance)
}
