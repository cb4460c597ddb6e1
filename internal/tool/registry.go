package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrToolNotFound  = errors.New("tool not found")
	ErrDuplicateTool = errors.New("tool already registered")
)

// Tool is a callable with a static descriptor.
type Tool interface {
	Descriptor() Descriptor
	Call(ctx context.Context, args json.RawMessage) Result
}

// Registry holds tools by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register validates the tool's descriptor and adds it.
func (r *Registry) Register(t Tool) error {
	d := t.Descriptor()
	if err := d.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[d.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, d.Name)
	}
	r.tools[d.Name] = t
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns registered tool names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptors returns every descriptor, ordered by name.
func (r *Registry) Descriptors() []Descriptor {
	names := r.List()
	out := make([]Descriptor, 0, len(names))
	for _, name := range names {
		if t, ok := r.Get(name); ok {
			out = append(out, t.Descriptor())
		}
	}
	return out
}

// Definitions returns OpenAI-compatible tool definitions, ordered by name.
func (r *Registry) Definitions() []map[string]interface{} {
	descs := r.Descriptors()
	defs := make([]map[string]interface{}, 0, len(descs))
	for _, d := range descs {
		defs = append(defs, d.Definition())
	}
	return defs
}

// Call runs the named tool. The only error is ErrToolNotFound; tool failures
// are carried in the Result.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (Result, error) {
	t, ok := r.Get(name)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return t.Call(ctx, args), nil
}
