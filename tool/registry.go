package tool

import (
	"fmt"

	"github.com/hupe1980/agentrelay/model"
)

// Registry holds the tools known to a coordinator. Registration happens at
// startup; lookups afterwards are read only.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: map[string]Tool{}}
}

// Register adds tools to the registry. Duplicate names are an error.
func (r *Registry) Register(tools ...Tool) error {
	for _, t := range tools {
		if t.Name() == "" {
			return fmt.Errorf("tool with empty name")
		}

		if _, exists := r.tools[t.Name()]; exists {
			return fmt.Errorf("tool %q already registered", t.Name())
		}

		r.tools[t.Name()] = t
		r.order = append(r.order, t.Name())
	}

	return nil
}

// Get returns the named tool, or nil when unknown.
func (r *Registry) Get(name string) Tool {
	return r.tools[name]
}

// Has reports whether the named tool is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Definitions returns model tool definitions for the given names, skipping
// names the registry does not know.
func (r *Registry) Definitions(names []string) []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(names))

	for _, name := range names {
		t, ok := r.tools[name]
		if !ok {
			continue
		}

		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}

	return defs
}
