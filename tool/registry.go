package tool

import (
	"fmt"
	"sort"

	"github.com/hupe1980/taskmesh/oracle"
)

// Registry maps tool names to implementations. It is resolved once at engine
// construction time; engines never look tools up dynamically by duck typing.
// Registration is not concurrency-safe; wire the registry before running.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry constructs a registry holding the given tools. Duplicate names
// are a wiring bug and panic immediately.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds a tool, panicking on duplicate names.
func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name()]; exists {
		panic(fmt.Sprintf("tool %q registered twice", t.Name()))
	}
	r.tools[t.Name()] = t
}

// Get returns the named tool and an existence flag.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns all registered tool names, sorted for stable prompts.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.tools) }

// Definitions renders the registry as oracle tool definitions, sorted by name.
func (r *Registry) Definitions() []oracle.ToolDefinition {
	defs := make([]oracle.ToolDefinition, 0, len(r.tools))
	for _, name := range r.Names() {
		t := r.tools[name]
		defs = append(defs, oracle.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}
