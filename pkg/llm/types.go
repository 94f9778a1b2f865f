package llm

import (
	"context"
	"strings"

	"github.com/harun/neuron/pkg/errs"
)

// Provider identifies a model backend
type Provider string

// Supported providers
const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGoogle    Provider = "google"
)

// Providers lists every recognized provider in display order
var Providers = []Provider{ProviderOpenAI, ProviderAnthropic, ProviderGoogle}

// Valid reports whether p is a recognized provider
func (p Provider) Valid() bool {
	switch p {
	case ProviderOpenAI, ProviderAnthropic, ProviderGoogle:
		return true
	}
	return false
}

// ParseProvider resolves a provider name. "gemini" is accepted for google.
func ParseProvider(s string) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "gemini" {
		name = string(ProviderGoogle)
	}
	p := Provider(name)
	if !p.Valid() {
		return "", invalidProviderError()
	}
	return p, nil
}

// DefaultModel returns the model used when none is configured
func DefaultModel(p Provider) string {
	switch p {
	case ProviderAnthropic:
		return "claude-3-5-sonnet-20241022"
	case ProviderGoogle:
		return "gemini-1.5-pro"
	default:
		return "gpt-4o"
	}
}

// DefaultCredentialKey returns the secret name holding the provider API key
func DefaultCredentialKey(p Provider) string {
	switch p {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderGoogle:
		return "GOOGLE_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

func invalidProviderError() *errs.Error {
	names := make([]string, len(Providers))
	for i, p := range Providers {
		names[i] = string(p)
	}
	return errs.New(errs.CodeInvalidProvider, "Invalid provider. Must be one of: %s", strings.Join(names, ", "))
}

// Role is the author of a transcript message
type Role string

// Message roles
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ToolSchema is the description of a tool advertised to the model
type ToolSchema struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToolCall is a tool invocation requested by the model.
// Arguments is the raw JSON object text.
type ToolCall struct {
	ID           string `json:"id"`
	FunctionName string `json:"function_name"`
	Arguments    string `json:"arguments"`
}

// AgentResponse is the structured content of a plain model turn
type AgentResponse struct {
	ThoughtProcess string `json:"thoughtProcess"`
	Output         string `json:"output"`
	Stop           bool   `json:"stop"`
}

// Result is the normalized outcome of one gateway call
type Result struct {
	ToolCalls []ToolCall
	Content   AgentResponse

	// Err is nil for a normal turn. For a degraded turn it is the cause and
	// Content.Output carries the descriptive text.
	Err error
}

// HasToolCalls reports whether the model asked for a tool
func (r Result) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// Degraded reports whether the call failed and was downgraded
func (r Result) Degraded() bool {
	return r.Err != nil
}

// Request is what a Backend receives
type Request struct {
	Model    string
	Messages []Message
	Tools    []ToolSchema
}

// Completion is the raw backend reply before normalization
type Completion struct {
	Content   string
	ToolCalls []ToolCall
}

// Backend performs the provider call
type Backend interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}
