package config

import (
	"fmt"
	"strings"

	"github.com/harun/neuron/pkg/llm"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAPIKey checks the key format of well-known providers
func (v *Validator) ValidateAPIKey(key string, provider llm.Provider) error {
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", provider)
	}

	switch provider {
	case llm.ProviderAnthropic:
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("invalid Anthropic API key format (should start with sk-ant-)")
		}
	case llm.ProviderOpenAI:
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
		}
	}

	return nil
}

// ValidateName validates the agent name
func (v *Validator) ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	return nil
}

// ValidatePrompt requires a prompt or both persona and goal
func (v *Validator) ValidatePrompt(cfg *Config) error {
	if cfg.Prompt != "" {
		return nil
	}
	if cfg.Persona == "" || cfg.Goal == "" {
		return fmt.Errorf("either prompt or both persona and goal must be set")
	}
	return nil
}

// ValidateProvider validates the provider name
func (v *Validator) ValidateProvider(provider string) error {
	if _, err := llm.ParseProvider(provider); err != nil {
		return fmt.Errorf("provider %q: %w", provider, err)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error", "disabled"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := v.ValidateName(cfg.Name); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidatePrompt(cfg); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateProvider(cfg.Provider); err != nil {
		errors = append(errors, err)
	}

	if cfg.MaxIterations < 0 {
		errors = append(errors, fmt.Errorf("max_iterations must be >= 0"))
	}
	if cfg.MaxRetries < 0 {
		errors = append(errors, fmt.Errorf("max_retries must be >= 0"))
	}
	if cfg.ModelTimeout < 0 {
		errors = append(errors, fmt.Errorf("model_timeout must be >= 0"))
	}
	if cfg.ToolTimeout < 0 {
		errors = append(errors, fmt.Errorf("tool_timeout must be >= 0"))
	}

	for i, name := range cfg.Tools {
		if strings.TrimSpace(name) == "" {
			errors = append(errors, fmt.Errorf("tool %d: name is required", i))
		}
	}
	for i, name := range cfg.Secrets {
		if strings.TrimSpace(name) == "" {
			errors = append(errors, fmt.Errorf("secret %d: name is required", i))
		}
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	return errors
}
