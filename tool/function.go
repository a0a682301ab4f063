package tool

// FunctionTool adapts a plain function into a Tool. Argument validation is
// centralized in the Invoker, so the function may assume its arguments match
// the declared schema.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(tc *Context, args map[string]any) (map[string]any, error)
}

var _ Tool = (*FunctionTool)(nil)

// NewFunctionTool creates a tool from a function and its parameter schema.
// A nil schema means the tool accepts arbitrary arguments.
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(tc *Context, args map[string]any) (map[string]any, error),
) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// Name implements Tool.
func (t *FunctionTool) Name() string { return t.name }

// Description implements Tool.
func (t *FunctionTool) Description() string { return t.description }

// Parameters implements Tool.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call implements Tool.
func (t *FunctionTool) Call(tc *Context, args map[string]any) (map[string]any, error) {
	return t.fn(tc, args)
}
