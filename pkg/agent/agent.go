package agent

import (
	"strings"
	"sync"
	"time"

	"github.com/harun/neuron/internal/logger"
	"github.com/harun/neuron/internal/metrics"
	"github.com/harun/neuron/pkg/errs"
	"github.com/harun/neuron/pkg/llm"
	"github.com/harun/neuron/pkg/tool"
	"github.com/rs/zerolog"
)

// Agent owns a transcript, a tool set and a model gateway
type Agent struct {
	name          string
	prompt        string
	maxIterations int
	secrets       map[string]string
	toolTimeout   time.Duration

	gateway  ModelGateway
	logger   zerolog.Logger
	redactor *logger.Redactor
	metrics  *metrics.Metrics

	// mu serializes Execute and guards messages
	mu       sync.Mutex
	messages []llm.Message

	toolsMu sync.RWMutex
	tools   []*tool.Tool
}

// New creates an agent. All configuration errors surface here.
func New(name string, cfg Config) (*Agent, error) {
	var missing []string
	if strings.TrimSpace(name) == "" {
		missing = append(missing, "name")
	}
	if cfg.Secrets == nil {
		missing = append(missing, "secrets")
	}
	if cfg.Prompt == "" {
		if cfg.Persona == "" {
			missing = append(missing, "persona")
		}
		if cfg.Goal == "" {
			missing = append(missing, "goal")
		}
	}
	if len(missing) > 0 {
		return nil, errs.New(errs.CodeInvalidImplementation,
			"Missing required properties: %s", strings.Join(missing, ", "))
	}

	if cfg.MaxIterations < 0 {
		return nil, errs.New(errs.CodeInvalidImplementation,
			"MaxIterations must not be negative, got %d", cfg.MaxIterations)
	}
	maxIterations := cfg.MaxIterations
	if maxIterations == 0 {
		maxIterations = DefaultMaxIterations
	}

	provider := llm.ProviderOpenAI
	if cfg.Provider != "" {
		p, err := llm.ParseProvider(string(cfg.Provider))
		if err != nil {
			return nil, err
		}
		provider = p
	}

	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	log = log.With().Str("component", "agent").Str("agent", name).Logger()

	tools := make([]*tool.Tool, 0, len(cfg.Tools))
	for _, tc := range cfg.Tools {
		t, err := tool.New(tc.Name, tc.Description, tc.Config, tc.Implementation)
		if err != nil {
			return nil, err
		}
		tools = append(tools, t)
	}

	secrets := make(map[string]string, len(cfg.Secrets))
	values := make([]string, 0, len(cfg.Secrets))
	for k, v := range cfg.Secrets {
		secrets[k] = v
		values = append(values, v)
	}
	redactor := logger.NewRedactor()
	redactor.AddSecrets(values...)

	gateway := cfg.Gateway
	if gateway == nil {
		key := cfg.CredentialKey
		if key == "" {
			key = llm.DefaultCredentialKey(provider)
		}
		apiKey, ok := secrets[key]
		if !ok && provider != llm.ProviderGoogle {
			return nil, errs.New(errs.CodeInvalidSecrets, "Missing required secrets: %s", key)
		}

		model := cfg.Model
		if model == "" {
			model = llm.DefaultModel(provider)
		}

		g, err := llm.New(llm.Config{
			Provider:   provider,
			APIKey:     apiKey,
			Model:      model,
			BaseURL:    cfg.BaseURL,
			MaxRetries: cfg.MaxRetries,
			Timeout:    cfg.ModelTimeout,
			Logger:     log,
			Metrics:    cfg.Metrics,
		})
		if err != nil {
			return nil, err
		}
		gateway = g
	}

	a := &Agent{
		name:          name,
		prompt:        BuildPrompt(cfg),
		maxIterations: maxIterations,
		secrets:       secrets,
		toolTimeout:   cfg.ToolTimeout,
		gateway:       gateway,
		logger:        log,
		redactor:      redactor,
		metrics:       cfg.Metrics,
		messages:      append([]llm.Message(nil), cfg.Messages...),
		tools:         tools,
	}

	a.logger.Debug().
		Str("prompt", a.redactor.Redact(a.prompt)).
		Int("tools", len(tools)).
		Int("max_iterations", maxIterations).
		Msg("agent created")

	return a, nil
}

// Name returns the agent name
func (a *Agent) Name() string {
	return a.name
}

// Prompt returns the system prompt
func (a *Agent) Prompt() string {
	return a.prompt
}

// MaxIterations returns the effective iteration budget
func (a *Agent) MaxIterations() int {
	return a.maxIterations
}

// Messages returns a copy of the transcript
func (a *Agent) Messages() []llm.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]llm.Message(nil), a.messages...)
}

// Tools returns the registered tools in registration order
func (a *Agent) Tools() []*tool.Tool {
	a.toolsMu.RLock()
	defer a.toolsMu.RUnlock()
	return append([]*tool.Tool(nil), a.tools...)
}

// RegisterTool appends t to the tool set. Duplicate names are kept;
// dispatch picks the first registered match.
func (a *Agent) RegisterTool(t *tool.Tool) {
	if t == nil {
		return
	}
	a.toolsMu.Lock()
	defer a.toolsMu.Unlock()
	a.tools = append(a.tools, t)
}

func (a *Agent) findTool(name string) *tool.Tool {
	a.toolsMu.RLock()
	defer a.toolsMu.RUnlock()
	for _, t := range a.tools {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

func (a *Agent) toolSchemas() []llm.ToolSchema {
	a.toolsMu.RLock()
	defer a.toolsMu.RUnlock()
	schemas := make([]llm.ToolSchema, 0, len(a.tools))
	for _, t := range a.tools {
		schemas = append(schemas, llm.ToolSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return schemas
}
