package core

import "encoding/json"

// ActionKind discriminates the Action variants.
type ActionKind string

const (
	ActionToolCall    ActionKind = "tool_call"
	ActionFinalAnswer ActionKind = "final_answer"
)

// Action is the next step proposed during planning: either a tool call or a
// final answer. Exactly one side is populated, discriminated by Kind.
type Action struct {
	Kind     ActionKind      `json:"kind"`
	ToolName string          `json:"tool_name,omitempty"`
	ToolArgs json.RawMessage `json:"tool_args,omitempty"`
	Text     string          `json:"text,omitempty"`
}

func ToolCallAction(name string, args json.RawMessage) Action {
	return Action{Kind: ActionToolCall, ToolName: name, ToolArgs: args}
}

func FinalAnswerAction(text string) Action {
	return Action{Kind: ActionFinalAnswer, Text: text}
}

// FailKind classifies tool failures so the loop can reason about them.
type FailKind string

const (
	FailUpstreamUnavailable FailKind = "upstream_unavailable"
	FailNotFound            FailKind = "not_found"
	FailRateLimited         FailKind = "rate_limited"
)

const (
	ObservationOK     = "ok"
	ObservationFailed = "failed"
)

// Observation is the structured result of executing one tool call. It lives
// only for the duration of a run; a successful payload may feed a later call.
type Observation struct {
	Tool     string          `json:"tool"`
	Args     json.RawMessage `json:"args,omitempty"`
	Status   string          `json:"status"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	FailKind FailKind        `json:"fail_kind,omitempty"`
	Message  string          `json:"message,omitempty"`
}

func (o Observation) OK() bool { return o.Status == ObservationOK }

// StepRecord is one loop iteration. The ordered sequence of records for a run
// forms the trace, exposed only on explicit opt-in.
type StepRecord struct {
	Index       int          `json:"step_index"`
	Action      Action       `json:"action"`
	Observation *Observation `json:"observation,omitempty"`
	Err         string       `json:"error,omitempty"`
}
