package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the working directory and ~/.neuron
const DefaultFileName = "neuron.yaml"

// EnvPrefix prefixes environment overrides, e.g. NEURON_MODEL
const EnvPrefix = "NEURON"

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load loads the configuration from file, environment and defaults.
// A missing file yields the defaults with environment overrides applied.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	configPath := l.GetConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if l.configPath != "" {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.WorkspacePath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		cfg.WorkspacePath = wd
	}

	return cfg, nil
}

// setDefaults registers every scalar key so environment overrides apply
// even when the file does not mention the key
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("name", cfg.Name)
	v.SetDefault("persona", cfg.Persona)
	v.SetDefault("goal", cfg.Goal)
	v.SetDefault("prompt", cfg.Prompt)
	v.SetDefault("provider", cfg.Provider)
	v.SetDefault("model", cfg.Model)
	v.SetDefault("base_url", cfg.BaseURL)
	v.SetDefault("max_retries", cfg.MaxRetries)
	v.SetDefault("model_timeout", cfg.ModelTimeout)
	v.SetDefault("credential_key", cfg.CredentialKey)
	v.SetDefault("max_iterations", cfg.MaxIterations)
	v.SetDefault("tool_timeout", cfg.ToolTimeout)
	v.SetDefault("tools", cfg.Tools)
	v.SetDefault("secrets", cfg.Secrets)
	v.SetDefault("env_files", cfg.EnvFiles)
	v.SetDefault("workspace_path", cfg.WorkspacePath)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.pretty", cfg.Logging.Pretty)
	v.SetDefault("logging.redaction", cfg.Logging.Redaction)
	v.SetDefault("metrics.addr", cfg.Metrics.Addr)
}

// Save writes cfg as YAML. An existing file is only replaced when force is set.
func (l *Loader) Save(cfg *Config, force bool) error {
	configPath := l.GetConfigPath()

	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists: %s", configPath)
		}
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the config file path. Without an explicit path the
// working directory wins over ~/.neuron.
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}

	if _, err := os.Stat(DefaultFileName); err == nil {
		return DefaultFileName
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultFileName
	}
	candidate := filepath.Join(home, ".neuron", DefaultFileName)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return DefaultFileName
}

// LoadEnvFiles loads dotenv files without overriding variables already set.
// A missing file is skipped.
func LoadEnvFiles(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	loader := NewLoader(configPath)
	return loader.Load()
}
