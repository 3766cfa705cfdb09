package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sandevgo/nimbus/internal/config"
	"github.com/sandevgo/nimbus/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTools = []core.ToolSchema{
	{
		Name:        "get_current_weather",
		Description: "current weather",
		Parameters:  json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}},"required":["city"]}`),
	},
}

func newTestDriver(serverURL string) *Driver {
	return NewDriver(&config.DriverConfig{
		BaseURL: serverURL,
		APIKey:  "test-key",
		Model:   "test-model",
		Timeout: 5 * time.Second,
	})
}

func completionWith(message string) string {
	return fmt.Sprintf(`{"choices": [{"message": %s}]}`, message)
}

func TestDriver_ProposesToolCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var payload struct {
			Model string `json:"model"`
			Tools []struct {
				Type string `json:"type"`
			} `json:"tools"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "test-model", payload.Model)
		require.Len(t, payload.Tools, 1)
		assert.Equal(t, "function", payload.Tools[0].Type)

		fmt.Fprint(w, completionWith(`{
			"role": "assistant",
			"content": "",
			"tool_calls": [{
				"id": "call_1",
				"type": "function",
				"function": {"name": "get_current_weather", "arguments": "{\"city\":\"Chennai\"}"}
			}]
		}`))
	}))
	defer server.Close()

	turns := []core.Turn{{Role: core.RoleUser, Content: "weather in Chennai"}}
	action, err := newTestDriver(server.URL).ProposeAction(context.Background(), turns, testTools)
	require.NoError(t, err)

	assert.Equal(t, core.ActionToolCall, action.Kind)
	assert.Equal(t, "get_current_weather", action.ToolName)
	assert.JSONEq(t, `{"city":"Chennai"}`, string(action.ToolArgs))
}

func TestDriver_ProposesFinalAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionWith(`{"role": "assistant", "content": "It is sunny in Chennai."}`))
	}))
	defer server.Close()

	action, err := newTestDriver(server.URL).ProposeAction(context.Background(), nil, testTools)
	require.NoError(t, err)

	assert.Equal(t, core.ActionFinalAnswer, action.Kind)
	assert.Equal(t, "It is sunny in Chennai.", action.Text)
}

func TestDriver_FailureModes(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-200 status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "unparseable body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "not json at all")
			},
		},
		{
			name: "empty choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"choices": []}`)
			},
		},
		{
			name: "hallucinated tool",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, completionWith(`{
					"role": "assistant",
					"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "summon_rain", "arguments": "{}"}}]
				}`))
			},
		},
		{
			name: "tool arguments not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, completionWith(`{
					"role": "assistant",
					"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "get_current_weather", "arguments": "city=Chennai"}}]
				}`))
			},
		},
		{
			name: "no tool call and empty content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, completionWith(`{"role": "assistant", "content": ""}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := newTestDriver(server.URL).ProposeAction(context.Background(), nil, testTools)
			require.Error(t, err)

			var driverErr *core.DriverError
			assert.True(t, errors.As(err, &driverErr), "every failure is a DriverError, got %T", err)
		})
	}
}

func TestDriver_TransportFailure(t *testing.T) {
	_, err := newTestDriver("http://127.0.0.1:1").ProposeAction(context.Background(), nil, testTools)
	require.Error(t, err)

	var driverErr *core.DriverError
	assert.True(t, errors.As(err, &driverErr))
}

func TestDriver_EmptyToolArgumentsDefaultToObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionWith(`{
			"role": "assistant",
			"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "get_current_weather", "arguments": ""}}]
		}`))
	}))
	defer server.Close()

	action, err := newTestDriver(server.URL).ProposeAction(context.Background(), nil, testTools)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(action.ToolArgs))
}
