package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/harun/neuron/pkg/errs"
	"github.com/xeipuuv/gojsonschema"
)

// ErrNoImplementation is matched when a tool is executed before a function is registered
var ErrNoImplementation = errors.New("no implementation registered")

// Property describes a single input property of a tool.
// Type is a JSON schema type, or several joined with "|" such as "number|string".
type Property struct {
	Type        string `json:"type" mapstructure:"type" yaml:"type"`
	Description string `json:"description" mapstructure:"description" yaml:"description"`
	Required    bool   `json:"required,omitempty" mapstructure:"required" yaml:"required,omitempty"`
}

func (p Property) types() []string {
	return strings.Split(p.Type, "|")
}

// Config holds the declared inputs and secrets of a tool
type Config struct {
	Properties map[string]Property `json:"properties" mapstructure:"properties" yaml:"properties"`
	Secrets    []string            `json:"secrets,omitempty" mapstructure:"secrets" yaml:"secrets,omitempty"`
}

// Func is the implementation bound to a tool
type Func func(ctx context.Context, input map[string]interface{}, secrets map[string]string) (string, error)

// Tool is a named, schema-validated callable
type Tool struct {
	name        string
	description string
	config      Config
	schema      *gojsonschema.Schema

	mu   sync.RWMutex
	impl Func
}

var validTypes = map[string]bool{
	"string": true, "number": true, "integer": true, "boolean": true,
	"object": true, "array": true, "null": true,
}

// New creates a tool. impl may be nil and registered later.
func New(name, description string, cfg *Config, impl Func) (*Tool, error) {
	var missing []string
	if name == "" {
		missing = append(missing, "name")
	}
	if description == "" {
		missing = append(missing, "description")
	}
	if cfg == nil {
		missing = append(missing, "config")
	}
	if len(missing) > 0 {
		return nil, errs.New(errs.CodeInvalidImplementation,
			"Missing required properties: %s", strings.Join(missing, ", "))
	}

	t := &Tool{
		name:        name,
		description: description,
		config:      copyConfig(*cfg),
		impl:        impl,
	}

	for _, propName := range t.propertyNames() {
		prop := t.config.Properties[propName]
		if prop.Type == "" {
			return nil, errs.New(errs.CodeInvalidImplementation,
				"Property %s of tool %s has no type", propName, name)
		}
		for _, typ := range prop.types() {
			if !validTypes[typ] {
				return nil, errs.New(errs.CodeInvalidImplementation,
					"Property %s of tool %s has invalid type %s", propName, name, prop.Type)
			}
		}
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(t.Parameters()))
	if err != nil {
		return nil, errs.Wrap(errs.CodeInvalidImplementation, err,
			"Invalid parameter schema for tool %s: %v", name, err)
	}
	t.schema = schema

	return t, nil
}

// Name returns the tool name
func (t *Tool) Name() string {
	return t.name
}

// Description returns the tool description
func (t *Tool) Description() string {
	return t.description
}

// Config returns a copy of the tool configuration
func (t *Tool) Config() Config {
	return copyConfig(t.config)
}

// RegisterFunction binds or replaces the implementation
func (t *Tool) RegisterFunction(impl Func) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.impl = impl
}

// HasImplementation reports whether an implementation is bound
func (t *Tool) HasImplementation() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.impl != nil
}

// Parameters returns the JSON Schema parameter block advertised to the model
func (t *Tool) Parameters() map[string]interface{} {
	properties := make(map[string]interface{}, len(t.config.Properties))
	required := []string{}

	for _, propName := range t.propertyNames() {
		prop := t.config.Properties[propName]
		var typ interface{} = prop.Type
		if types := prop.types(); len(types) > 1 {
			typ = types
		}
		properties[propName] = map[string]interface{}{
			"type":        typ,
			"description": prop.Description,
		}
		if prop.Required {
			required = append(required, propName)
		}
	}

	params := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		params["required"] = required
	}
	return params
}

// Ready reports whether the tool could run with secrets: every declared
// secret is present and an implementation is bound. Input is not checked.
func (t *Tool) Ready(secrets map[string]string) error {
	if err := t.validateSecrets(secrets); err != nil {
		return err
	}
	if !t.HasImplementation() {
		return errs.Wrap(errs.CodeExecution, ErrNoImplementation, "No implementation registered")
	}
	return nil
}

// Execute validates secrets and input, then runs the implementation.
// Present input values are type-checked against the declared property types,
// so a number sent for a string property fails with InvalidImplementation.
func (t *Tool) Execute(ctx context.Context, input map[string]interface{}, secrets map[string]string) (string, error) {
	if input == nil {
		input = map[string]interface{}{}
	}
	if secrets == nil {
		secrets = map[string]string{}
	}

	if err := t.validateSecrets(secrets); err != nil {
		return "", err
	}
	if err := t.validateInput(input); err != nil {
		return "", err
	}

	t.mu.RLock()
	impl := t.impl
	t.mu.RUnlock()

	if impl == nil {
		return "", errs.Wrap(errs.CodeExecution, ErrNoImplementation, "No implementation registered")
	}

	return t.invoke(ctx, impl, input, secrets)
}

type invokeResult struct {
	output string
	err    error
}

// invoke runs impl in its own goroutine so a caller's context bounds the wait
func (t *Tool) invoke(ctx context.Context, impl Func, input map[string]interface{}, secrets map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errs.Wrap(errs.CodeExecution, err, "Execution failed: %v", err)
	}

	done := make(chan invokeResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- invokeResult{err: fmt.Errorf("panic: %s", errs.Message(r))}
			}
		}()
		output, err := impl(ctx, input, secrets)
		done <- invokeResult{output: output, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return "", errs.Wrap(errs.CodeExecution, res.err, "Execution failed: %s", res.err.Error())
		}
		return res.output, nil
	case <-ctx.Done():
		return "", errs.Wrap(errs.CodeExecution, ctx.Err(), "Execution failed: %v", ctx.Err())
	}
}

func (t *Tool) validateSecrets(provided map[string]string) error {
	var missing []string
	for _, secret := range t.config.Secrets {
		if _, ok := provided[secret]; !ok {
			missing = append(missing, secret)
		}
	}
	if len(missing) > 0 {
		return errs.New(errs.CodeInvalidSecrets, "Missing required secrets: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (t *Tool) validateInput(input map[string]interface{}) error {
	for _, propName := range t.propertyNames() {
		if t.config.Properties[propName].Required {
			if _, ok := input[propName]; !ok {
				return errs.New(errs.CodeInvalidImplementation, "Missing required property: %s", propName)
			}
		}
	}

	result, err := t.schema.Validate(gojsonschema.NewGoLoader(input))
	if err != nil {
		return errs.Wrap(errs.CodeInvalidImplementation, err, "Invalid input for tool %s: %v", t.name, err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return errs.New(errs.CodeInvalidImplementation,
			"Invalid input for tool %s: %s", t.name, strings.Join(details, "; "))
	}
	return nil
}

// propertyNames returns declared property names in sorted order
func (t *Tool) propertyNames() []string {
	names := make([]string, 0, len(t.config.Properties))
	for name := range t.config.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func copyConfig(cfg Config) Config {
	out := Config{
		Properties: make(map[string]Property, len(cfg.Properties)),
	}
	for name, prop := range cfg.Properties {
		out.Properties[name] = prop
	}
	if cfg.Secrets != nil {
		out.Secrets = append([]string(nil), cfg.Secrets...)
	}
	return out
}
