package core

import (
	"errors"
	"fmt"
)

// ArgumentError reports tool arguments that failed schema validation. It is
// recoverable: the loop records it and plans again instead of crashing.
type ArgumentError struct {
	Tool   string
	Field  string
	Reason string
}

func (e *ArgumentError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("tool %s: argument %q: %s", e.Tool, e.Field, e.Reason)
	}
	return fmt.Sprintf("tool %s: %s", e.Tool, e.Reason)
}

// ToolError reports an upstream failure during tool execution. The orchestrator
// converts it into a failed Observation rather than aborting the run.
type ToolError struct {
	Tool    string
	Kind    FailKind
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %s: %s", e.Tool, e.Kind, e.Message)
}

// DriverError marks the reasoning driver as unusable for this call. Any driver
// failure (transport, timeout, unparseable or hallucinated output) maps here
// and triggers fallback to the deterministic planner.
type DriverError struct {
	Reason string
	Err    error
}

func (e *DriverError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("driver: %s: %v", e.Reason, e.Err)
	}
	return "driver: " + e.Reason
}

func (e *DriverError) Unwrap() error { return e.Err }

// ErrMemoryStore wraps storage I/O failures. Callers degrade to memoryless
// operation instead of failing the chat response.
var ErrMemoryStore = errors.New("memory store unavailable")

func MemoryStoreError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrMemoryStore, op, err)
}
