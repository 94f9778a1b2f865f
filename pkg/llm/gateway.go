package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/harun/neuron/internal/metrics"
	"github.com/harun/neuron/internal/tracing"
	"github.com/harun/neuron/pkg/errs"
	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"
)

const degradedPrefix = "An error occurred while processing your request."

// unexpectedCode labels failures that carry no error code
const unexpectedCode = "UNEXPECTED"

var agentResponseSchema = mustSchema(map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"thoughtProcess": map[string]interface{}{"type": "string"},
		"output":         map[string]interface{}{"type": "string"},
		"stop":           map[string]interface{}{"type": "boolean"},
	},
})

func mustSchema(doc map[string]interface{}) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		panic(err)
	}
	return schema
}

// Config configures a Gateway
type Config struct {
	Provider Provider
	APIKey   string
	Model    string

	// BaseURL overrides the provider endpoint
	BaseURL string
	// MaxRetries is handed to the provider SDK as-is
	MaxRetries int
	// Timeout bounds a single call; zero means no extra bound
	Timeout time.Duration

	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// Gateway calls one model provider and normalizes its replies
type Gateway struct {
	provider Provider
	model    string
	timeout  time.Duration
	backend  Backend
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

// New creates a gateway with the built-in backend for cfg.Provider
func New(cfg Config) (*Gateway, error) {
	if err := validate(&cfg); err != nil {
		return nil, err
	}

	var backend Backend
	switch cfg.Provider {
	case ProviderOpenAI:
		backend = newOpenAIBackend(cfg)
	case ProviderAnthropic:
		backend = newAnthropicBackend(cfg)
	case ProviderGoogle:
		backend = googleBackend{}
	}

	return newGateway(cfg, backend), nil
}

// NewWithBackend creates a gateway that sends requests to backend
func NewWithBackend(cfg Config, backend Backend) (*Gateway, error) {
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	if backend == nil {
		return nil, errs.New(errs.CodeInvalidProvider, "Backend must not be nil")
	}
	return newGateway(cfg, backend), nil
}

func validate(cfg *Config) error {
	if !cfg.Provider.Valid() {
		return invalidProviderError()
	}
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		return errs.New(errs.CodeLLMModel, "Model name must be a non-empty string")
	}
	return nil
}

func newGateway(cfg Config, backend Backend) *Gateway {
	return &Gateway{
		provider: cfg.Provider,
		model:    cfg.Model,
		timeout:  cfg.Timeout,
		backend:  backend,
		logger:   cfg.Logger.With().Str("component", "llm").Str("provider", string(cfg.Provider)).Logger(),
		metrics:  cfg.Metrics,
	}
}

// Provider returns the configured provider
func (g *Gateway) Provider() Provider {
	return g.provider
}

// Model returns the configured model
func (g *Gateway) Model() string {
	return g.model
}

// Call sends the transcript and tool schemas to the model.
// Failures are returned as a degraded Result, never as a panic.
func (g *Gateway) Call(ctx context.Context, messages []Message, tools []ToolSchema) (result Result) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "llm.call",
		attribute.String("llm.provider", string(g.provider)),
		attribute.String("llm.model", g.model),
		attribute.Int("llm.messages", len(messages)),
		attribute.Int("llm.tools", len(tools)),
	)

	defer func() {
		if r := recover(); r != nil {
			result = g.degrade(ctx, fmt.Errorf("panic: %s", errs.Message(r)), string(debug.Stack()))
		}
		code := ""
		if result.Err != nil {
			code = errorCode(result.Err)
		}
		g.metrics.RecordModelCall(string(g.provider), time.Since(start), code)
		tracing.EndSpan(span, result.Err)
	}()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	logger := tracing.LoggerFromContext(ctx, g.logger)
	logger.Debug().
		Str("model", g.model).
		Int("messages", len(messages)).
		Int("tools", len(tools)).
		Msg("calling model")

	completion, err := g.backend.Complete(ctx, Request{
		Model:    g.model,
		Messages: messages,
		Tools:    tools,
	})
	if err == nil && completion == nil {
		err = errors.New("empty completion")
	}
	if err != nil {
		if errs.CodeOf(err) == "" {
			err = errs.Wrap(errs.CodeProvider, err, "Failed to call %s API: %v", g.provider, err)
		}
		return g.degrade(ctx, err, string(debug.Stack()))
	}

	if len(completion.ToolCalls) > 0 {
		logger.Debug().
			Str("tool", completion.ToolCalls[0].FunctionName).
			Int("tool_calls", len(completion.ToolCalls)).
			Msg("model requested tool")
		return Result{
			ToolCalls: completion.ToolCalls,
			Content:   AgentResponse{Output: completion.Content},
		}
	}

	content, err := ParseContent(completion.Content)
	if err != nil {
		return g.degrade(ctx, err, string(debug.Stack()))
	}

	logger.Debug().Bool("stop", content.Stop).Msg("model answered")
	return Result{Content: content}
}

// degrade logs err and converts it into a Result the agent loop can consume
func (g *Gateway) degrade(ctx context.Context, err error, stack string) Result {
	logger := tracing.LoggerFromContext(ctx, g.logger)
	logger.Error().
		Time("timestamp", time.Now()).
		Str("error_code", errorCode(err)).
		Str("stack", stack).
		Err(err).
		Msg("model call degraded")

	return Result{
		Content: AgentResponse{
			Output: fmt.Sprintf("%s %s: %s", degradedPrefix, kindPrefix(err), err.Error()),
		},
		Err: err,
	}
}

func kindPrefix(err error) string {
	switch errs.CodeOf(err) {
	case errs.CodeContentParsing:
		return "Content parsing error"
	case errs.CodeProvider:
		return "Provider error"
	case errs.CodeLLMModel:
		return "LLM model error"
	case errs.CodeInvalidProvider:
		return "Invalid provider error"
	default:
		return "Unexpected error"
	}
}

func errorCode(err error) string {
	if code := errs.CodeOf(err); code != "" {
		return string(code)
	}
	return unexpectedCode
}

// ParseContent decodes the structured JSON reply of a plain model turn.
// Surrounding whitespace and a Markdown code fence are tolerated.
func ParseContent(raw string) (AgentResponse, error) {
	text := stripCodeFence(strings.TrimSpace(raw))
	if text == "" {
		return AgentResponse{}, errs.New(errs.CodeContentParsing, "Empty response content")
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return AgentResponse{}, errs.Wrap(errs.CodeContentParsing, err, "Failed to parse response content: %v", err)
	}

	check, err := agentResponseSchema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return AgentResponse{}, errs.Wrap(errs.CodeContentParsing, err, "Failed to validate response content: %v", err)
	}
	if !check.Valid() {
		details := make([]string, 0, len(check.Errors()))
		for _, desc := range check.Errors() {
			details = append(details, desc.String())
		}
		return AgentResponse{}, errs.New(errs.CodeContentParsing,
			"Unexpected response content: %s", strings.Join(details, "; "))
	}

	var resp AgentResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return AgentResponse{}, errs.Wrap(errs.CodeContentParsing, err, "Failed to parse response content: %v", err)
	}
	return resp, nil
}

func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		// drop the language tag
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
