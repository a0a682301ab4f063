package tool

import (
	"context"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/logging"
)

// Context is handed to a tool for one invocation. It gives read access to
// session state and collects state writes as a delta; the coordinator merges
// the delta only after the invocation succeeds, so a failed or cancelled
// call never leaves partial state behind.
type Context struct {
	ctx    context.Context
	key    core.ConversationKey
	state  core.StateReader
	callID string
	agent  string
	delta  map[string]any
	logger logging.Logger
}

// NewContext creates an invocation context.
func NewContext(ctx context.Context, key core.ConversationKey, state core.StateReader, callID, agent string, logger logging.Logger) *Context {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &Context{
		ctx:    ctx,
		key:    key,
		state:  state,
		callID: callID,
		agent:  agent,
		delta:  map[string]any{},
		logger: logger,
	}
}

// Context returns the request context for cancellation and deadlines.
func (c *Context) Context() context.Context { return c.ctx }

// Key returns the conversation key.
func (c *Context) Key() core.ConversationKey { return c.key }

// CallID returns the tool call correlation id.
func (c *Context) CallID() string { return c.callID }

// Agent returns the name of the agent on whose behalf the tool runs.
func (c *Context) Agent() string { return c.agent }

// Logger returns the invocation logger.
func (c *Context) Logger() logging.Logger { return c.logger }

// GetState reads a session state field, falling back to def when absent.
// Staged writes from this invocation shadow the stored value.
func (c *Context) GetState(field string, def any) any {
	if v, ok := c.delta[field]; ok {
		return v
	}

	return c.state.Get(c.key, field, def)
}

// SetState stages a state write. Nothing is persisted until the coordinator
// merges the invocation's delta.
func (c *Context) SetState(field string, value any) {
	c.delta[field] = value
}

// AppendState stages items for a list field. The store's per-field policy
// decides the cap when the delta is merged.
func (c *Context) AppendState(field string, items ...any) {
	staged, _ := c.delta[field].([]any)
	c.delta[field] = append(staged, items...)
}

// StateDelta returns a copy of the staged writes.
func (c *Context) StateDelta() map[string]any {
	out := make(map[string]any, len(c.delta))
	for k, v := range c.delta {
		out[k] = v
	}

	return out
}
