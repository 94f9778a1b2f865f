package llm

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/harun/neuron/internal/metrics"
	"github.com/harun/neuron/pkg/errs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Complete(ctx context.Context, req Request) (*Completion, error) {
	args := m.Called(ctx, req)
	completion, _ := args.Get(0).(*Completion)
	return completion, args.Error(1)
}

type panicBackend struct{}

func (panicBackend) Complete(ctx context.Context, req Request) (*Completion, error) {
	panic("backend exploded")
}

type blockingBackend struct{}

func (blockingBackend) Complete(ctx context.Context, req Request) (*Completion, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func testConfig() Config {
	return Config{Provider: ProviderOpenAI, Model: "gpt-4o"}
}

func TestParseProvider(t *testing.T) {
	tests := []struct {
		input    string
		expected Provider
		wantErr  bool
	}{
		{"openai", ProviderOpenAI, false},
		{" Anthropic ", ProviderAnthropic, false},
		{"google", ProviderGoogle, false},
		{"gemini", ProviderGoogle, false},
		{"azure", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, err := ParseProvider(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errs.ErrInvalidProvider)
				assert.Equal(t, "Invalid provider. Must be one of: openai, anthropic, google", err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p)
		})
	}
}

func TestDefaults(t *testing.T) {
	assert.Equal(t, "gpt-4o", DefaultModel(ProviderOpenAI))
	assert.Equal(t, "claude-3-5-sonnet-20241022", DefaultModel(ProviderAnthropic))
	assert.Equal(t, "gemini-1.5-pro", DefaultModel(ProviderGoogle))

	assert.Equal(t, "OPENAI_API_KEY", DefaultCredentialKey(ProviderOpenAI))
	assert.Equal(t, "ANTHROPIC_API_KEY", DefaultCredentialKey(ProviderAnthropic))
	assert.Equal(t, "GOOGLE_API_KEY", DefaultCredentialKey(ProviderGoogle))
}

func TestNew(t *testing.T) {
	t.Run("rejects unknown providers", func(t *testing.T) {
		_, err := New(Config{Provider: "azure", Model: "gpt-4o"})
		assert.ErrorIs(t, err, errs.ErrInvalidProvider)
	})

	t.Run("rejects blank models", func(t *testing.T) {
		_, err := New(Config{Provider: ProviderOpenAI, Model: "   "})
		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrLLMModel)
		assert.Equal(t, "Model name must be a non-empty string", err.Error())
	})

	t.Run("trims the model", func(t *testing.T) {
		g, err := New(Config{Provider: ProviderAnthropic, Model: " claude-3-5-sonnet-20241022 "})
		require.NoError(t, err)
		assert.Equal(t, "claude-3-5-sonnet-20241022", g.Model())
		assert.Equal(t, ProviderAnthropic, g.Provider())
	})

	t.Run("rejects a nil backend", func(t *testing.T) {
		_, err := NewWithBackend(testConfig(), nil)
		assert.Error(t, err)
	})
}

func TestCallPlainContent(t *testing.T) {
	backend := &mockBackend{}
	tools := []ToolSchema{{Name: "echo", Description: "Echo", Parameters: map[string]interface{}{"type": "object"}}}
	messages := []Message{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "hi"}}

	backend.On("Complete", mock.Anything, Request{Model: "gpt-4o", Messages: messages, Tools: tools}).
		Return(&Completion{Content: `{"thoughtProcess":"thinking","output":"hello","stop":true}`}, nil).
		Once()

	g, err := NewWithBackend(testConfig(), backend)
	require.NoError(t, err)

	result := g.Call(context.Background(), messages, tools)

	assert.False(t, result.Degraded())
	assert.False(t, result.HasToolCalls())
	assert.Equal(t, AgentResponse{ThoughtProcess: "thinking", Output: "hello", Stop: true}, result.Content)
	backend.AssertExpectations(t)
}

func TestCallToolCalls(t *testing.T) {
	backend := &mockBackend{}
	backend.On("Complete", mock.Anything, mock.Anything).Return(&Completion{
		Content: "checking",
		ToolCalls: []ToolCall{
			{ID: "call_1", FunctionName: "echo", Arguments: `{"text":"hi"}`},
			{ID: "call_2", FunctionName: "other", Arguments: `{}`},
		},
	}, nil)

	g, err := NewWithBackend(testConfig(), backend)
	require.NoError(t, err)

	result := g.Call(context.Background(), nil, nil)

	require.True(t, result.HasToolCalls())
	assert.Len(t, result.ToolCalls, 2)
	assert.Equal(t, "echo", result.ToolCalls[0].FunctionName)
	assert.Equal(t, "checking", result.Content.Output)
	assert.NoError(t, result.Err)
}

func TestCallDegrades(t *testing.T) {
	tests := []struct {
		name       string
		completion *Completion
		err        error
		sentinel   error
		prefix     string
	}{
		{
			name:       "unparseable content",
			completion: &Completion{Content: "not json"},
			sentinel:   errs.ErrContentParsing,
			prefix:     "An error occurred while processing your request. Content parsing error: ",
		},
		{
			name:       "content of the wrong shape",
			completion: &Completion{Content: `{"stop":"yes"}`},
			sentinel:   errs.ErrContentParsing,
			prefix:     "An error occurred while processing your request. Content parsing error: ",
		},
		{
			name:       "empty content",
			completion: &Completion{Content: "  "},
			sentinel:   errs.ErrContentParsing,
			prefix:     "An error occurred while processing your request. Content parsing error: ",
		},
		{
			name:     "backend failure",
			err:      errors.New("connection refused"),
			sentinel: errs.ErrProvider,
			prefix:   "An error occurred while processing your request. Provider error: Failed to call openai API: connection refused",
		},
		{
			name:     "classified backend failure",
			err:      errs.New(errs.CodeInvalidProvider, "Google support not yet implemented"),
			sentinel: errs.ErrInvalidProvider,
			prefix:   "An error occurred while processing your request. Invalid provider error: Google support not yet implemented",
		},
		{
			name:     "model failure",
			err:      errs.New(errs.CodeLLMModel, "model not found"),
			sentinel: errs.ErrLLMModel,
			prefix:   "An error occurred while processing your request. LLM model error: model not found",
		},
		{
			name:     "nil completion",
			sentinel: errs.ErrProvider,
			prefix:   "An error occurred while processing your request. Provider error: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &mockBackend{}
			backend.On("Complete", mock.Anything, mock.Anything).Return(tt.completion, tt.err)

			g, err := NewWithBackend(testConfig(), backend)
			require.NoError(t, err)

			result := g.Call(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)

			require.True(t, result.Degraded())
			assert.ErrorIs(t, result.Err, tt.sentinel)
			assert.True(t, strings.HasPrefix(result.Content.Output, tt.prefix), result.Content.Output)
			assert.False(t, result.Content.Stop)
			assert.False(t, result.HasToolCalls())
		})
	}
}

func TestCallRecoversPanics(t *testing.T) {
	g, err := NewWithBackend(testConfig(), panicBackend{})
	require.NoError(t, err)

	var result Result
	assert.NotPanics(t, func() {
		result = g.Call(context.Background(), nil, nil)
	})

	require.True(t, result.Degraded())
	assert.Equal(t, "An error occurred while processing your request. Unexpected error: panic: backend exploded", result.Content.Output)
}

func TestCallTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 20 * time.Millisecond

	g, err := NewWithBackend(cfg, blockingBackend{})
	require.NoError(t, err)

	result := g.Call(context.Background(), nil, nil)

	require.True(t, result.Degraded())
	assert.ErrorIs(t, result.Err, errs.ErrProvider)
	assert.ErrorIs(t, result.Err, context.DeadlineExceeded)
}

func TestGoogleStub(t *testing.T) {
	g, err := New(Config{Provider: ProviderGoogle, Model: DefaultModel(ProviderGoogle)})
	require.NoError(t, err)

	result := g.Call(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)

	require.True(t, result.Degraded())
	assert.ErrorIs(t, result.Err, errs.ErrInvalidProvider)
	assert.Contains(t, result.Content.Output, "Google support not yet implemented")
}

func TestDegradeLogs(t *testing.T) {
	buf := &bytes.Buffer{}
	cfg := testConfig()
	cfg.Logger = zerolog.New(buf)

	backend := &mockBackend{}
	backend.On("Complete", mock.Anything, mock.Anything).Return(&Completion{Content: "nope"}, nil)

	g, err := NewWithBackend(cfg, backend)
	require.NoError(t, err)
	g.Call(context.Background(), nil, nil)

	line := buf.String()
	assert.Contains(t, line, `"level":"error"`)
	assert.Contains(t, line, `"error_code":"CONTENT_PARSER_ERROR"`)
	assert.Contains(t, line, `"trace_id":`)
	assert.Contains(t, line, `"stack":`)
	assert.Contains(t, line, `"timestamp":`)
}

func TestCallRecordsMetrics(t *testing.T) {
	m := metrics.NewMetrics()
	cfg := testConfig()
	cfg.Metrics = m

	backend := &mockBackend{}
	backend.On("Complete", mock.Anything, mock.Anything).Return(&Completion{Content: `{"output":"ok","stop":true}`}, nil).Once()
	backend.On("Complete", mock.Anything, mock.Anything).Return(nil, errors.New("down")).Once()

	g, err := NewWithBackend(cfg, backend)
	require.NoError(t, err)

	g.Call(context.Background(), nil, nil)
	g.Call(context.Background(), nil, nil)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	statuses := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "neuron_model_calls_total" {
			continue
		}
		for _, metric := range mf.Metric {
			for _, label := range metric.Label {
				if label.GetName() == "status" {
					statuses[label.GetValue()] = metric.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, map[string]float64{"success": 1, "degraded": 1}, statuses)
}

func TestParseContent(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected AgentResponse
		wantErr  bool
	}{
		{
			name:     "plain object",
			raw:      `{"thoughtProcess":"t","output":"o","stop":false}`,
			expected: AgentResponse{ThoughtProcess: "t", Output: "o"},
		},
		{
			name:     "missing fields default",
			raw:      `{"output":"only output"}`,
			expected: AgentResponse{Output: "only output"},
		},
		{
			name:     "fenced json",
			raw:      "```json\n{\"output\":\"fenced\",\"stop\":true}\n```",
			expected: AgentResponse{Output: "fenced", Stop: true},
		},
		{
			name:     "bare fence",
			raw:      "```\n{\"output\":\"bare\"}\n```",
			expected: AgentResponse{Output: "bare"},
		},
		{name: "array", raw: `[1,2]`, wantErr: true},
		{name: "wrong stop type", raw: `{"stop":1}`, wantErr: true},
		{name: "garbage", raw: `{"output":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseContent(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, errs.ErrContentParsing)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, resp)
		})
	}
}
