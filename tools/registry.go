package tools

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagents/pkg/llms"
)

var (
	// ErrDuplicateTool is returned when a tool name is already registered.
	ErrDuplicateTool = errors.New("duplicate tool")
	// ErrInvalidTool is returned for a nil tool or a tool without a name.
	ErrInvalidTool = errors.New("invalid tool")
)

// Registry is an ordered list of tools with unique names.
// It is not safe for concurrent registration, it is expected to be
// built once and then used read-only.
type Registry struct {
	list   []ITool
	byName map[string]ITool
}

// NewRegistry returns a registry with the given tools.
func NewRegistry(list ...ITool) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]ITool, len(list)),
	}
	for _, t := range list {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds the tool to the end of the list.
func (r *Registry) Register(t ITool) error {
	if t == nil || t.Name() == "" {
		return errors.WithStack(ErrInvalidTool)
	}
	name := t.Name()
	if _, ok := r.byName[name]; ok {
		return errors.Wrapf(ErrDuplicateTool, "%s", name)
	}
	r.byName[name] = t
	r.list = append(r.list, t)
	return nil
}

// Get returns the tool by name.
func (r *Registry) Get(name string) (ITool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Tools returns the tools in registration order.
func (r *Registry) Tools() []ITool {
	return append([]ITool(nil), r.list...)
}

// Names returns the tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.list))
	for _, t := range r.list {
		names = append(names, t.Name())
	}
	return names
}

// Len returns the number of tools.
func (r *Registry) Len() int {
	return len(r.list)
}

// Definitions returns the function definitions for the model.
func (r *Registry) Definitions() []llms.Tool {
	return Definitions(r.list...)
}

// Definitions returns the function definitions of the tools.
func Definitions(list ...ITool) []llms.Tool {
	res := make([]llms.Tool, 0, len(list))
	for _, t := range list {
		res = append(res, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return res
}
