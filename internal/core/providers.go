package core

import (
	"context"
	"encoding/json"
)

// ToolSchema describes one tool the driver may call: name, description and a
// JSON Schema for its arguments.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Driver is the reasoning delegate. It must be treated as unreliable: every
// failure mode surfaces as *DriverError and the caller falls back to the
// deterministic planner for the rest of the run.
type Driver interface {
	ProposeAction(ctx context.Context, turns []Turn, tools []ToolSchema) (Action, error)
}
