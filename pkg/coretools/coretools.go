package coretools

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/harun/neuron/pkg/tool"
)

// Registrar accepts tools; *agent.Agent satisfies it
type Registrar interface {
	RegisterTool(t *tool.Tool)
}

// Options configures built-in tools.
type Options struct {
	HTTPClient     *http.Client
	WeatherBaseURL string
	Now            func() time.Time
	WorkspaceRoot  string
}

type factory func(opts Options) *tool.Tool

var factories = map[string]factory{
	WeatherToolName: func(opts Options) *tool.Tool {
		return WeatherGov(opts.HTTPClient, opts.WeatherBaseURL)
	},
	ClockToolName: func(opts Options) *tool.Tool {
		return CurrentTime(opts.Now)
	},
	ReadFileToolName: func(opts Options) *tool.Tool {
		return ReadFile(opts.WorkspaceRoot)
	},
}

// Names lists the built-in tool names in sorted order
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build resolves tool names to built-in tools in the given order
func Build(names []string, opts Options) ([]*tool.Tool, error) {
	tools := make([]*tool.Tool, 0, len(names))
	for _, name := range names {
		f, ok := factories[strings.TrimSpace(name)]
		if !ok {
			return nil, fmt.Errorf("unknown built-in tool %q (available: %s)", name, strings.Join(Names(), ", "))
		}
		tools = append(tools, f(opts))
	}
	return tools, nil
}

// Register builds the named tools and registers them on r.
func Register(r Registrar, names []string, opts Options) error {
	if r == nil {
		return fmt.Errorf("registrar is required")
	}
	tools, err := Build(names, opts)
	if err != nil {
		return err
	}
	for _, t := range tools {
		r.RegisterTool(t)
	}
	return nil
}

// mustTool builds a tool from a static declaration
func mustTool(name, description string, cfg *tool.Config, impl tool.Func) *tool.Tool {
	t, err := tool.New(name, description, cfg, impl)
	if err != nil {
		panic(fmt.Sprintf("coretools: invalid built-in tool %s: %v", name, err))
	}
	return t
}
