package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sandevgo/nimbus/internal/config"
	"github.com/sandevgo/nimbus/internal/core"
)

// Driver proposes the agent's next action through an OpenAI-compatible
// chat-completions endpoint. Every failure mode (transport, timeout, non-200,
// unparseable output, hallucinated tool names) surfaces as *core.DriverError
// so the orchestrator can fall back to the deterministic planner.
type Driver struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

func NewDriver(cfg *config.DriverConfig) *Driver {
	return &Driver{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
}

type wireToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type wireTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Parameters  json.RawMessage `json:"parameters"`
	} `json:"function"`
}

func (d *Driver) ProposeAction(ctx context.Context, turns []core.Turn, tools []core.ToolSchema) (core.Action, error) {
	payload := map[string]any{
		"model":    d.model,
		"messages": toWireMessages(turns),
	}
	if len(tools) > 0 {
		payload["tools"] = toWireTools(tools)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return core.Action{}, &core.DriverError{Reason: "marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/v1/chat/completions", bytes.NewReader(data))
	if err != nil {
		return core.Action{}, &core.DriverError{Reason: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return core.Action{}, &core.DriverError{Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.Action{}, &core.DriverError{Reason: "read body", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return core.Action{}, &core.DriverError{Reason: fmt.Sprintf("http %d: %s", resp.StatusCode, truncate(body, 180))}
	}

	var result struct {
		Choices []struct {
			Message wireMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return core.Action{}, &core.DriverError{Reason: "decode response", Err: err}
	}
	if len(result.Choices) == 0 {
		return core.Action{}, &core.DriverError{Reason: "empty choices"}
	}

	return toAction(result.Choices[0].Message, tools)
}

// toAction maps the model output to a tagged Action. A tool call naming an
// undeclared tool is a hallucination and counts as a driver failure.
func toAction(msg wireMessage, tools []core.ToolSchema) (core.Action, error) {
	if len(msg.ToolCalls) > 0 {
		call := msg.ToolCalls[0]
		if !declaredTool(call.Function.Name, tools) {
			return core.Action{}, &core.DriverError{Reason: "hallucinated tool " + call.Function.Name}
		}
		args := call.Function.Arguments
		if args == "" {
			args = "{}"
		}
		if !json.Valid([]byte(args)) {
			return core.Action{}, &core.DriverError{Reason: "tool arguments are not valid JSON"}
		}
		return core.ToolCallAction(call.Function.Name, json.RawMessage(args)), nil
	}

	if msg.Content == "" {
		return core.Action{}, &core.DriverError{Reason: "no tool call and empty content"}
	}
	return core.FinalAnswerAction(msg.Content), nil
}

func declaredTool(name string, tools []core.ToolSchema) bool {
	for _, t := range tools {
		if t.Name == name {
			return true
		}
	}
	return false
}

func toWireMessages(turns []core.Turn) []wireMessage {
	messages := make([]wireMessage, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, wireMessage{Role: t.Role, Content: t.Content})
	}
	return messages
}

func toWireTools(tools []core.ToolSchema) []wireTool {
	wire := make([]wireTool, 0, len(tools))
	for _, t := range tools {
		var w wireTool
		w.Type = "function"
		w.Function.Name = t.Name
		w.Function.Description = t.Description
		w.Function.Parameters = t.Parameters
		wire = append(wire, w)
	}
	return wire
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
