package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harun/neuron/internal/tracing"
	"github.com/harun/neuron/pkg/errs"
	"github.com/harun/neuron/pkg/llm"
	"github.com/harun/neuron/pkg/tool"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

const (
	finalAnswerPrompt  = "Provide a final answer"
	invalidToolMessage = "Invalid tool_name, please try again"
)

// Execute appends input to the transcript and runs the loop until the model
// sets stop or the iteration budget runs out. It returns the most recent
// non-empty output seen during this call.
//
// Model failures never end the loop; they arrive as degraded turns. Tool
// failures caused by the model's request are narrated back into the
// transcript. Missing secrets, a tool without implementation and a done ctx
// end the call with an error.
func (a *Agent) Execute(ctx context.Context, input string, opts ...ExecuteOption) (string, error) {
	var o executeOptions
	for _, opt := range opts {
		opt(&o)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	ctx = tracing.NewAgentRunContext(ctx, a.name)
	ctx, span := tracing.StartSpan(ctx, "agent.execute",
		attribute.String("agent.name", a.name),
		attribute.Int("agent.max_iterations", a.maxIterations),
	)
	logger := tracing.LoggerFromContext(ctx, a.logger)

	output, calls, err := a.run(ctx, logger, input, o)

	code := ""
	if err != nil {
		code = string(errs.CodeOf(err))
		if code == "" {
			code = "CONTEXT"
		}
		logger.Warn().Err(err).Int("model_calls", calls).Msg("execute aborted")
	} else {
		logger.Debug().Int("model_calls", calls).Msg("execute finished")
	}
	span.SetAttributes(attribute.Int("agent.model_calls", calls))
	a.metrics.RecordExecution(a.name, time.Since(start), calls, code)
	tracing.EndSpan(span, err)

	return output, err
}

func (a *Agent) run(ctx context.Context, logger zerolog.Logger, input string, o executeOptions) (string, int, error) {
	if len(a.messages) == 0 {
		a.push(logger, llm.RoleSystem, a.prompt)
		if o.background != "" {
			a.push(logger, llm.RoleAssistant, o.background)
		}
	}
	a.push(logger, llm.RoleUser, input)

	tools := a.toolSchemas()
	output := ""
	calls := 0

	for iteration := 0; iteration <= a.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return output, calls, err
		}
		if iteration == a.maxIterations {
			a.push(logger, llm.RoleSystem, finalAnswerPrompt)
		}

		stop, err := a.turn(ctx, logger, iteration, tools, &output)
		calls++
		if err != nil {
			return output, calls, err
		}
		if stop {
			break
		}
	}

	return output, calls, nil
}

// turn performs one model call and applies its result to the transcript.
// output is updated with any non-empty model output.
func (a *Agent) turn(ctx context.Context, logger zerolog.Logger, iteration int, tools []llm.ToolSchema, output *string) (stop bool, err error) {
	ctx, span := tracing.StartSpan(ctx, "agent.turn", attribute.Int("agent.iteration", iteration))
	defer func() { tracing.EndSpan(span, err) }()

	result := a.gateway.Call(ctx, append([]llm.Message(nil), a.messages...), tools)
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if result.Content.Output != "" {
		*output = result.Content.Output
	}
	if result.Degraded() {
		span.SetAttributes(attribute.String("llm.error_code", string(errs.CodeOf(result.Err))))
		logger.Warn().Err(result.Err).Int("iteration", iteration).Msg("degraded model turn")
	}

	if result.HasToolCalls() {
		call := result.ToolCalls[0]
		span.SetAttributes(attribute.String("tool.requested", call.FunctionName))
		if err := a.dispatch(ctx, logger, call); err != nil {
			return false, err
		}
	} else {
		content := result.Content.ThoughtProcess
		if content == "" {
			content = result.Content.Output
		}
		a.push(logger, llm.RoleAssistant, content)
	}

	return result.Content.Stop, nil
}

// dispatch runs the requested tool and appends what happened to the transcript
func (a *Agent) dispatch(ctx context.Context, logger zerolog.Logger, call llm.ToolCall) error {
	t := a.findTool(call.FunctionName)
	if t == nil {
		logger.Debug().Str("tool", call.FunctionName).Msg("unknown tool requested")
		a.push(logger, llm.RoleAssistant, invalidToolMessage)
		return nil
	}

	logger.Debug().
		Str("tool", call.FunctionName).
		Str("arguments", a.redactor.Redact(call.Arguments)).
		Msg("tool call")
	// configuration errors end the call before the transcript mentions the tool
	if err := t.Ready(a.secrets); err != nil {
		return err
	}
	a.push(logger, llm.RoleAssistant, "Used the tool "+call.FunctionName)

	input, err := decodeArguments(call.Arguments)
	if err != nil {
		a.push(logger, llm.RoleAssistant, narrate(err))
		return nil
	}

	out, err := a.invokeTool(ctx, t, input)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, errs.ErrInvalidSecrets) || errors.Is(err, tool.ErrNoImplementation) {
			return err
		}
		logger.Debug().Str("tool", t.Name()).Err(err).Msg("tool failed")
		a.push(logger, llm.RoleAssistant, narrate(err))
		return nil
	}

	a.push(logger, llm.RoleAssistant, out)
	return nil
}

func (a *Agent) invokeTool(ctx context.Context, t *tool.Tool, input map[string]interface{}) (string, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "agent.tool", attribute.String("tool.name", t.Name()))

	if a.toolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.toolTimeout)
		defer cancel()
	}

	out, err := t.Execute(ctx, input, a.secrets)

	code := ""
	if err != nil {
		code = string(errs.CodeOf(err))
	}
	a.metrics.RecordToolCall(t.Name(), time.Since(start), code)
	tracing.EndSpan(span, err)

	return out, err
}

func decodeArguments(raw string) (map[string]interface{}, error) {
	input := map[string]interface{}{}
	if strings.TrimSpace(raw) == "" {
		return input, nil
	}
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return nil, fmt.Errorf("Invalid tool arguments: %v", err)
	}
	if input == nil {
		input = map[string]interface{}{}
	}
	return input, nil
}

func narrate(err error) string {
	return "There was an error " + err.Error()
}

func (a *Agent) push(logger zerolog.Logger, role llm.Role, content string) {
	logger.Debug().
		Str("role", string(role)).
		Str("content", a.redactor.Redact(content)).
		Msg("message")
	a.messages = append(a.messages, llm.Message{Role: role, Content: content})
}
