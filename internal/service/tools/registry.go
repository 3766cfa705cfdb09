package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/sandevgo/nimbus/internal/core"
)

// Handler executes a tool with already-validated arguments.
type Handler func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)

// Definition declares one tool: its name, description, argument schema and
// handler. The schema is both sent to the reasoning driver and enforced
// locally before execution.
type Definition struct {
	Name        string
	Description string
	Schema      json.RawMessage
	Handler     Handler
}

// Registry is the fixed set of tools the agent may invoke. Actions naming any
// other tool are rejected before execution.
type Registry struct {
	defs  map[string]Definition
	order []string
}

func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

func (r *Registry) Register(def Definition) {
	if _, exists := r.defs[def.Name]; !exists {
		r.order = append(r.order, def.Name)
	}
	r.defs[def.Name] = def
}

func (r *Registry) Has(name string) bool {
	_, ok := r.defs[name]
	return ok
}

// Schemas returns the declared tools in registration order, for the driver.
func (r *Registry) Schemas() []core.ToolSchema {
	schemas := make([]core.ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		def := r.defs[name]
		schemas = append(schemas, core.ToolSchema{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  def.Schema,
		})
	}
	return schemas
}

// Validate checks args against the tool's declared schema: tool existence,
// required fields, and primitive types. A failure is an *core.ArgumentError,
// never a panic.
func (r *Registry) Validate(name string, args json.RawMessage) error {
	def, ok := r.defs[name]
	if !ok {
		return &core.ArgumentError{Tool: name, Reason: "unknown tool"}
	}
	return validateAgainstSchema(def, args)
}

// Execute runs a validated tool call. Callers must Validate first; Execute
// revalidates as a guard.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (core.Observation, error) {
	if err := r.Validate(name, args); err != nil {
		return core.Observation{}, err
	}

	payload, err := r.defs[name].Handler(ctx, args)
	if err != nil {
		var toolErr *core.ToolError
		if errors.As(err, &toolErr) {
			return core.Observation{
				Tool:     name,
				Args:     args,
				Status:   core.ObservationFailed,
				FailKind: toolErr.Kind,
				Message:  toolErr.Message,
			}, nil
		}
		return core.Observation{}, fmt.Errorf("tool %s: %w", name, err)
	}

	return core.Observation{
		Tool:    name,
		Args:    args,
		Status:  core.ObservationOK,
		Payload: payload,
	}, nil
}

type schemaDoc struct {
	Properties map[string]struct {
		Type string `json:"type"`
	} `json:"properties"`
	Required []string `json:"required"`
}

func validateAgainstSchema(def Definition, args json.RawMessage) error {
	var schema schemaDoc
	if err := json.Unmarshal(def.Schema, &schema); err != nil {
		return fmt.Errorf("tool %s: bad schema: %w", def.Name, err)
	}

	values := map[string]json.RawMessage{}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &values); err != nil {
			return &core.ArgumentError{Tool: def.Name, Reason: "arguments are not a JSON object"}
		}
	}

	for _, field := range schema.Required {
		raw, ok := values[field]
		if !ok || string(raw) == "null" || string(raw) == `""` {
			return &core.ArgumentError{Tool: def.Name, Field: field, Reason: "required argument missing"}
		}
	}

	for field, raw := range values {
		prop, declared := schema.Properties[field]
		if !declared {
			return &core.ArgumentError{Tool: def.Name, Field: field, Reason: "argument not declared in schema"}
		}
		if !matchesType(prop.Type, raw) {
			return &core.ArgumentError{Tool: def.Name, Field: field, Reason: "expected " + prop.Type}
		}
	}

	return nil
}

func matchesType(schemaType string, raw json.RawMessage) bool {
	switch schemaType {
	case "string":
		var s string
		return json.Unmarshal(raw, &s) == nil
	case "integer":
		var i int64
		return json.Unmarshal(raw, &i) == nil
	case "number":
		var f float64
		return json.Unmarshal(raw, &f) == nil
	case "boolean":
		var b bool
		return json.Unmarshal(raw, &b) == nil
	default:
		return true
	}
}

// Names returns the registered tool names sorted, for log output.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
