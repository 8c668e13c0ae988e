package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"investai/internal/llm"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

var (
	ErrUnknownTool = errors.New("unknown tool")
	ErrSealed      = errors.New("registry is sealed")
	ErrNotSealed   = errors.New("registry is not sealed")
)

// Registry holds the tools offered to the model. Tools are registered during
// startup, then Seal checks the terminal invariant and freezes the set; after
// that the registry is read-only and safe to share between runs.
type Registry struct {
	tools    map[string]Tool
	schemas  map[string]*jsonschema.Schema
	terminal Terminal
	sealed   bool
	mu       sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("register %s: %w", tool.Name(), ErrSealed)
	}

	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}

	r.tools[name] = tool
	return nil
}

// Seal validates that exactly one tool is terminal and every other tool is
// callable, compiles all parameter schemas and freezes the registry.
func (r *Registry) Seal() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return ErrSealed
	}

	var (
		terminals []string
		term      Terminal
	)
	schemas := make(map[string]*jsonschema.Schema, len(r.tools))
	for _, name := range sortedNames(r.tools) {
		t := r.tools[name]
		_, callable := t.(Callable)
		tt, terminal := t.(Terminal)

		switch {
		case callable && terminal:
			return fmt.Errorf("tool %s is both callable and terminal", name)
		case !callable && !terminal:
			return fmt.Errorf("tool %s has no behavior: neither callable nor terminal", name)
		case terminal:
			terminals = append(terminals, name)
			term = tt
		}

		schema, err := compileSchema(name, t.Parameters())
		if err != nil {
			return fmt.Errorf("tool %s: invalid parameter schema: %w", name, err)
		}
		schemas[name] = schema
	}

	if len(terminals) != 1 {
		return fmt.Errorf("registry needs exactly one terminal tool, found %d %v", len(terminals), terminals)
	}

	r.terminal = term
	r.schemas = schemas
	r.sealed = true
	return nil
}

func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	if !exists {
		return nil, fmt.Errorf("tool %s: %w", name, ErrUnknownTool)
	}

	return tool, nil
}

// Terminal returns the terminal tool of a sealed registry, nil before Seal.
func (r *Registry) Terminal() Terminal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.terminal
}

// IsTerminal reports whether name is the terminal tool.
func (r *Registry) IsTerminal(name string) bool {
	term := r.Terminal()
	return term != nil && term.Name() == name
}

// List returns the tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, name := range sortedNames(r.tools) {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// Callables returns the callable tools sorted by name.
func (r *Registry) Callables() []Callable {
	var out []Callable
	for _, t := range r.List() {
		if c, ok := t.(Callable); ok {
			out = append(out, c)
		}
	}
	return out
}

// Definitions returns the tool list in the shape the model gateway sends.
func (r *Registry) Definitions() []*llm.ToolDefinition {
	tools := r.List()
	defs := make([]*llm.ToolDefinition, len(tools))

	for i, t := range tools {
		defs[i] = &llm.ToolDefinition{
			Type: "function",
			Function: &llm.FunctionDef{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		}
	}

	return defs
}

// Validate checks args against the named tool's schema. It requires a sealed registry.
func (r *Registry) Validate(name string, args json.RawMessage) error {
	r.mu.RLock()
	sealed := r.sealed
	schema, ok := r.schemas[name]
	_, known := r.tools[name]
	r.mu.RUnlock()

	if !sealed {
		return ErrNotSealed
	}
	if !known {
		return fmt.Errorf("tool %s: %w", name, ErrUnknownTool)
	}
	if !ok {
		return fmt.Errorf("tool %s: no compiled schema", name)
	}
	if err := validateArgs(schema, args); err != nil {
		return fmt.Errorf("tool %s: %w", name, err)
	}
	return nil
}

func sortedNames(tools map[string]Tool) []string {
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
