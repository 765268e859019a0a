// Package tool defines the Tool Registry: a named catalogue of tools,
// each with a JSON-schema argument contract and an async executor, plus
// the built-in tool set (file I/O, search, shell, git, undo).
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/locuscode/locus/internal/registry"
)

// Result is the outcome of executing a tool.
type Result struct {
	Output   json.RawMessage
	Duration time.Duration
	IsError  bool
	Error    string
}

// ErrorResult builds a structured error Result, matching the dispatcher's
// `{is_error: true, output: {error: message}}` contract.
func ErrorResult(message string, dur time.Duration) Result {
	out, _ := json.Marshal(map[string]string{"error": message})
	return Result{Output: out, Duration: dur, IsError: true, Error: message}
}

// SuccessResult builds a Result from any JSON-marshalable value.
func SuccessResult(value any, dur time.Duration) Result {
	out, err := json.Marshal(value)
	if err != nil {
		return ErrorResult(fmt.Sprintf("failed to marshal tool output: %v", err), dur)
	}
	return Result{Output: out, Duration: dur}
}

// Tool is the common interface every registry entry implements. Tools
// decode and check their own arguments in Execute (Schema() describes
// them but is not validated against); the registry never intercepts
// argument validation (spec §4.2).
type Tool interface {
	Name() string
	Description() string
	Schema() *jsonschema.Schema
	Execute(ctx context.Context, args map[string]any) (Result, error)
}

// Descriptor is the (name, description, schema) triple exposed to the LLM
// Provider and to tool_explain.
type Descriptor struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
}

// ErrToolNotFound is returned by Registry.Call when name is unregistered.
type ErrToolNotFound struct{ Name string }

func (e *ErrToolNotFound) Error() string { return fmt.Sprintf("tool not found: %s", e.Name) }

// Registry holds the named tool catalogue. Registration replaces any
// prior binding for the same name (spec §4.2); listing order is stable
// across calls.
type Registry struct {
	base *registry.BaseRegistry[Tool]
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{base: registry.NewBaseRegistry[Tool]()}
}

// Register binds t under its own Name(), replacing any prior binding.
func (r *Registry) Register(t Tool) error {
	return r.base.Register(t.Name(), t)
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	return r.base.Get(name)
}

// List returns every registered tool in stable registration order.
func (r *Registry) List() []Tool {
	return r.base.List()
}

// Descriptors returns the (name, description, schema) triple for every
// registered tool, in stable order.
func (r *Registry) Descriptors() []Descriptor {
	tools := r.base.List()
	out := make([]Descriptor, 0, len(tools))
	for _, t := range tools {
		out = append(out, Descriptor{Name: t.Name(), Description: t.Description(), Schema: t.Schema()})
	}
	return out
}

// Call resolves name and executes it with args. Returns ErrToolNotFound
// if name is unregistered.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (Result, error) {
	t, ok := r.base.Get(name)
	if !ok {
		return Result{}, &ErrToolNotFound{Name: name}
	}
	return t.Execute(ctx, args)
}

// SchemaFor reflects a Go struct type into a JSON-schema, the single
// source of truth for a built-in tool's argument contract.
func SchemaFor(v any) *jsonschema.Schema {
	reflector := &jsonschema.Reflector{ExpandedStruct: true, DoNotReference: true}
	return reflector.Reflect(v)
}
