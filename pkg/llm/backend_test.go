package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/harun/neuron/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, r *http.Request) map[string]interface{} {
	t.Helper()
	data, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	return body
}

func echoSchema() ToolSchema {
	return ToolSchema{
		Name:        "echo",
		Description: "Echoes text",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"text": map[string]interface{}{"type": "string", "description": "text to echo"},
			},
			"required": []string{"text"},
		},
	}
}

func TestOpenAIBackend(t *testing.T) {
	t.Run("requests json mode and parses content", func(t *testing.T) {
		var body map[string]interface{}
		var auth string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			auth = r.Header.Get("Authorization")
			body = decodeBody(t, r)

			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{
				"id": "chatcmpl-1",
				"object": "chat.completion",
				"created": 1,
				"model": "gpt-4o",
				"choices": [{
					"index": 0,
					"finish_reason": "stop",
					"message": {"role": "assistant", "content": "{\"thoughtProcess\":\"done\",\"output\":\"42\",\"stop\":true}"}
				}]
			}`)
		}))
		defer server.Close()

		g, err := New(Config{Provider: ProviderOpenAI, APIKey: "sk-test", Model: "gpt-4o", BaseURL: server.URL + "/"})
		require.NoError(t, err)

		result := g.Call(context.Background(), []Message{
			{Role: RoleSystem, Content: "be helpful"},
			{Role: RoleAssistant, Content: "context"},
			{Role: RoleUser, Content: "what is the answer"},
		}, nil)

		require.NoError(t, result.Err)
		assert.Equal(t, AgentResponse{ThoughtProcess: "done", Output: "42", Stop: true}, result.Content)

		assert.Equal(t, "Bearer sk-test", auth)
		assert.Equal(t, "gpt-4o", body["model"])
		assert.Equal(t, map[string]interface{}{"type": "json_object"}, body["response_format"])
		assert.NotContains(t, body, "tools")

		messages := body["messages"].([]interface{})
		require.Len(t, messages, 3)
		assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
		assert.Equal(t, "assistant", messages[1].(map[string]interface{})["role"])
		assert.Equal(t, "user", messages[2].(map[string]interface{})["role"])
	})

	t.Run("sends tools and returns tool calls", func(t *testing.T) {
		var body map[string]interface{}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body = decodeBody(t, r)
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{
				"id": "chatcmpl-2",
				"object": "chat.completion",
				"created": 1,
				"model": "gpt-4o",
				"choices": [{
					"index": 0,
					"finish_reason": "tool_calls",
					"message": {
						"role": "assistant",
						"content": null,
						"tool_calls": [{
							"id": "call_1",
							"type": "function",
							"function": {"name": "echo", "arguments": "{\"text\":\"hi\"}"}
						}]
					}
				}]
			}`)
		}))
		defer server.Close()

		g, err := New(Config{Provider: ProviderOpenAI, APIKey: "sk-test", Model: "gpt-4o", BaseURL: server.URL + "/"})
		require.NoError(t, err)

		result := g.Call(context.Background(), []Message{{Role: RoleUser, Content: "echo hi"}}, []ToolSchema{echoSchema()})

		require.NoError(t, result.Err)
		require.Len(t, result.ToolCalls, 1)
		assert.Equal(t, ToolCall{ID: "call_1", FunctionName: "echo", Arguments: `{"text":"hi"}`}, result.ToolCalls[0])

		tools := body["tools"].([]interface{})
		require.Len(t, tools, 1)
		fn := tools[0].(map[string]interface{})["function"].(map[string]interface{})
		assert.Equal(t, "echo", fn["name"])
		assert.Equal(t, "Echoes text", fn["description"])
	})

	t.Run("provider errors degrade", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"message":"bad request","type":"invalid_request_error"}}`)
		}))
		defer server.Close()

		g, err := New(Config{Provider: ProviderOpenAI, APIKey: "sk-test", Model: "gpt-4o", BaseURL: server.URL + "/"})
		require.NoError(t, err)

		result := g.Call(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)

		require.True(t, result.Degraded())
		assert.ErrorIs(t, result.Err, errs.ErrProvider)
		assert.Contains(t, result.Content.Output, "Provider error: Failed to call openai API")
	})
}

func TestAnthropicBackend(t *testing.T) {
	var body map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("X-Api-Key"))
		body = decodeBody(t, r)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-sonnet-20241022",
			"content": [
				{"type": "text", "text": "Let me check."},
				{"type": "tool_use", "id": "toolu_1", "name": "echo", "input": {"text": "hi"}}
			],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`)
	}))
	defer server.Close()

	g, err := New(Config{
		Provider: ProviderAnthropic,
		APIKey:   "sk-ant-test",
		Model:    "claude-3-5-sonnet-20241022",
		BaseURL:  server.URL + "/",
	})
	require.NoError(t, err)

	result := g.Call(context.Background(), []Message{
		{Role: RoleSystem, Content: "be helpful"},
		{Role: RoleUser, Content: "echo hi"},
	}, []ToolSchema{echoSchema()})

	require.NoError(t, result.Err)
	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, "toolu_1", result.ToolCalls[0].ID)
	assert.Equal(t, "echo", result.ToolCalls[0].FunctionName)
	assert.JSONEq(t, `{"text":"hi"}`, result.ToolCalls[0].Arguments)
	assert.Equal(t, "Let me check.", result.Content.Output)

	system := body["system"].([]interface{})
	assert.Equal(t, "be helpful", system[0].(map[string]interface{})["text"])

	tools := body["tools"].([]interface{})
	require.Len(t, tools, 1)
	assert.Equal(t, "echo", tools[0].(map[string]interface{})["name"])
}

func TestFoldTranscript(t *testing.T) {
	system, turns := foldTranscript([]Message{
		{Role: RoleSystem, Content: "prompt"},
		{Role: RoleAssistant, Content: "background"},
		{Role: RoleUser, Content: "question"},
		{Role: RoleAssistant, Content: "Used the tool echo"},
		{Role: RoleAssistant, Content: "hi"},
	})

	assert.Equal(t, "prompt\n\nbackground", system)
	require.Len(t, turns, 3)

	assert.Equal(t, anthropic.MessageParamRoleUser, turns[0].Role)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, turns[1].Role)
	assert.Len(t, turns[1].Content, 2)
	assert.Equal(t, anthropic.MessageParamRoleUser, turns[2].Role)
	assert.Equal(t, continueTurn, turns[2].Content[0].OfText.Text)
}

func TestFoldTranscriptDropsBlankMessages(t *testing.T) {
	t.Run("empty assistant turn", func(t *testing.T) {
		system, turns := foldTranscript([]Message{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: ""},
		})

		assert.Equal(t, "sys", system)
		require.Len(t, turns, 1)
		assert.Equal(t, anthropic.MessageParamRoleUser, turns[0].Role)
		require.Len(t, turns[0].Content, 1)
		assert.Equal(t, "hi", turns[0].Content[0].OfText.Text)
	})

	t.Run("blank turns between real ones", func(t *testing.T) {
		_, turns := foldTranscript([]Message{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "Used the tool echo"},
			{Role: RoleAssistant, Content: "  "},
			{Role: RoleUser, Content: ""},
			{Role: RoleUser, Content: "again"},
		})

		require.Len(t, turns, 3)
		assert.Len(t, turns[1].Content, 1)
		assert.Equal(t, anthropic.MessageParamRoleUser, turns[2].Role)
		assert.Equal(t, "again", turns[2].Content[0].OfText.Text)
		for _, turn := range turns {
			for _, block := range turn.Content {
				assert.NotEmpty(t, strings.TrimSpace(block.OfText.Text))
			}
		}
	})
}
