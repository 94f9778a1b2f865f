package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/harun/neuron/pkg/llm"
)

// Config describes one agent and the process around it
type Config struct {
	Name    string `json:"name" mapstructure:"name" yaml:"name"`
	Persona string `json:"persona" mapstructure:"persona" yaml:"persona,omitempty"`
	Goal    string `json:"goal" mapstructure:"goal" yaml:"goal,omitempty"`
	Prompt  string `json:"prompt" mapstructure:"prompt" yaml:"prompt,omitempty"`

	// Model
	Provider      string        `json:"provider" mapstructure:"provider" yaml:"provider"`
	Model         string        `json:"model" mapstructure:"model" yaml:"model,omitempty"`
	BaseURL       string        `json:"base_url" mapstructure:"base_url" yaml:"base_url,omitempty"`
	MaxRetries    int           `json:"max_retries" mapstructure:"max_retries" yaml:"max_retries"`
	ModelTimeout  time.Duration `json:"model_timeout" mapstructure:"model_timeout" yaml:"model_timeout"`
	CredentialKey string        `json:"credential_key" mapstructure:"credential_key" yaml:"credential_key,omitempty"`

	// Loop
	MaxIterations int           `json:"max_iterations" mapstructure:"max_iterations" yaml:"max_iterations"`
	ToolTimeout   time.Duration `json:"tool_timeout" mapstructure:"tool_timeout" yaml:"tool_timeout"`

	// Tools are built-in tool names
	Tools []string `json:"tools" mapstructure:"tools" yaml:"tools"`

	// Secrets are environment variable names handed to tools
	Secrets []string `json:"secrets" mapstructure:"secrets" yaml:"secrets,omitempty"`
	// EnvFiles are dotenv files loaded before secrets are read
	EnvFiles []string `json:"env_files" mapstructure:"env_files" yaml:"env_files,omitempty"`

	WorkspacePath string `json:"workspace_path" mapstructure:"workspace_path" yaml:"workspace_path,omitempty"`

	Logging LoggingConfig `json:"logging" mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics" yaml:"metrics,omitempty"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level" yaml:"level"`
	File      string `json:"file" mapstructure:"file" yaml:"file,omitempty"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty" yaml:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction" yaml:"redaction"`
}

// MetricsConfig holds the Prometheus endpoint configuration
type MetricsConfig struct {
	Addr string `json:"addr" mapstructure:"addr" yaml:"addr,omitempty"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Name:          "assistant",
		Persona:       "You are a helpful, concise assistant.",
		Goal:          "Answer the user's request accurately, using the available tools when they help.",
		Provider:      string(llm.ProviderOpenAI),
		MaxRetries:    2,
		ModelTimeout:  60 * time.Second,
		MaxIterations: 10,
		ToolTimeout:   30 * time.Second,
		Tools:         []string{},
		EnvFiles:      []string{".env"},
		Logging: LoggingConfig{
			Level:     "warn",
			Pretty:    true,
			Redaction: true,
		},
	}
}

// LLMProvider returns the parsed provider
func (c *Config) LLMProvider() (llm.Provider, error) {
	return llm.ParseProvider(c.Provider)
}

// ResolvedModel returns the configured model or the provider default
func (c *Config) ResolvedModel() string {
	if c.Model != "" {
		return c.Model
	}
	p, err := c.LLMProvider()
	if err != nil {
		return ""
	}
	return llm.DefaultModel(p)
}

// ResolvedCredentialKey returns the secret name holding the model API key
func (c *Config) ResolvedCredentialKey() string {
	if c.CredentialKey != "" {
		return c.CredentialKey
	}
	p, err := c.LLMProvider()
	if err != nil {
		return ""
	}
	return llm.DefaultCredentialKey(p)
}

// ResolveSecrets reads the credential and every declared secret through lookup.
// Declared secrets that are unset are left out so tools report them by name.
// A missing model credential is an error unless the provider needs none.
func (c *Config) ResolveSecrets(lookup func(string) (string, bool)) (map[string]string, error) {
	secrets := make(map[string]string, len(c.Secrets)+1)

	for _, name := range c.Secrets {
		if v, ok := lookup(name); ok {
			secrets[name] = v
		}
	}

	provider, err := c.LLMProvider()
	if err != nil {
		return nil, err
	}

	key := c.ResolvedCredentialKey()
	if v, ok := lookup(key); ok && v != "" {
		secrets[key] = v
	} else if provider != llm.ProviderGoogle {
		return nil, fmt.Errorf("model credential %s is not set", key)
	}

	return secrets, nil
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	return errors.Join(NewValidator().ValidateConfig(c)...)
}
