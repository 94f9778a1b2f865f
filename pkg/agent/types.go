package agent

import (
	"context"
	"time"

	"github.com/harun/neuron/internal/metrics"
	"github.com/harun/neuron/pkg/llm"
	"github.com/harun/neuron/pkg/tool"
	"github.com/rs/zerolog"
)

// DefaultMaxIterations is used when Config.MaxIterations is zero
const DefaultMaxIterations = 10

// ModelGateway is the model boundary the loop talks to.
// *llm.Gateway satisfies it.
type ModelGateway interface {
	Call(ctx context.Context, messages []llm.Message, tools []llm.ToolSchema) llm.Result
}

// ToolConfig declares a tool to build at agent construction
type ToolConfig struct {
	Name           string
	Description    string
	Config         *tool.Config
	Implementation tool.Func
}

// Config holds agent configuration
type Config struct {
	Persona string
	Goal    string
	// Prompt replaces the generated system prompt when set
	Prompt string

	Tools    []ToolConfig
	Messages []llm.Message

	// MaxIterations bounds model turns per Execute; zero means DefaultMaxIterations
	MaxIterations int

	Provider llm.Provider
	Model    string
	BaseURL  string
	// MaxRetries is the provider SDK retry budget; zero disables retries
	MaxRetries int

	// Secrets are passed to every tool; the model credential is read from
	// Secrets[CredentialKey]
	Secrets       map[string]string
	CredentialKey string

	Logger  *zerolog.Logger
	Metrics *metrics.Metrics

	ModelTimeout time.Duration
	ToolTimeout  time.Duration

	// Gateway replaces the built-in model gateway
	Gateway ModelGateway
}

// ExecuteOption customizes a single Execute call
type ExecuteOption func(*executeOptions)

type executeOptions struct {
	background string
}

// WithBackground seeds the transcript with an assistant message carrying
// background context. It only applies when the transcript is empty.
func WithBackground(text string) ExecuteOption {
	return func(o *executeOptions) {
		o.background = text
	}
}
