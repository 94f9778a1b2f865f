package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/harun/neuron/internal/config"
	"github.com/harun/neuron/internal/logger"
	"github.com/harun/neuron/internal/metrics"
	"github.com/harun/neuron/internal/tracing"
	"github.com/harun/neuron/pkg/agent"
	"github.com/harun/neuron/pkg/coretools"
	"github.com/spf13/cobra"
)

const serviceName = "neuron"

// session is one configured agent plus the process resources behind it
type session struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
	agent   *agent.Agent
}

// newSession loads the agent file, resolves secrets and wires the agent
func newSession(cmd *cobra.Command, opts *rootOptions) (*session, error) {
	cfg, err := config.Load(opts.cfgFile)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	if err := config.LoadEnvFiles(cfg.EnvFiles...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	secrets, err := cfg.ResolveSecrets(os.LookupEnv)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		Output:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	for _, v := range secrets {
		log.AddSecrets(v)
	}

	if err := tracing.InitOpenTelemetry(serviceName); err != nil {
		_ = log.Close()
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}

	provider, err := cfg.LLMProvider()
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	m := metrics.NewMetrics()
	zl := log.Zerolog()

	a, err := agent.New(cfg.Name, agent.Config{
		Persona:       cfg.Persona,
		Goal:          cfg.Goal,
		Prompt:        cfg.Prompt,
		MaxIterations: cfg.MaxIterations,
		Provider:      provider,
		Model:         cfg.Model,
		BaseURL:       cfg.BaseURL,
		MaxRetries:    cfg.MaxRetries,
		Secrets:       secrets,
		CredentialKey: cfg.CredentialKey,
		Logger:        &zl,
		Metrics:       m,
		ModelTimeout:  cfg.ModelTimeout,
		ToolTimeout:   cfg.ToolTimeout,
	})
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	if err := coretools.Register(a, cfg.Tools, coretools.Options{WorkspaceRoot: cfg.WorkspacePath}); err != nil {
		_ = log.Close()
		return nil, err
	}

	zl.Debug().
		Str("agent", cfg.Name).
		Str("provider", string(provider)).
		Str("model", cfg.ResolvedModel()).
		Strs("tools", cfg.Tools).
		Msg("session ready")

	return &session{
		cfg:     cfg,
		log:     log,
		metrics: m,
		agent:   a,
	}, nil
}

// Close flushes spans and closes the log file
func (s *session) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := tracing.ShutdownOpenTelemetry(ctx); err != nil {
		zl := s.log.Zerolog()
		zl.Warn().Err(err).Msg("tracing shutdown failed")
	}
	return s.log.Close()
}
