package llm

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxTokens = 4096

// continueTurn is sent when the transcript ends on an assistant turn,
// which the Messages API would otherwise treat as a prefill
const continueTurn = "Continue."

// anthropicBackend calls the Anthropic Messages API
type anthropicBackend struct {
	client anthropic.Client
}

func newAnthropicBackend(cfg Config) *anthropicBackend {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &anthropicBackend{
		client: anthropic.NewClient(opts...),
	}
}

// Complete makes one Messages API call
func (b *anthropicBackend) Complete(ctx context.Context, req Request) (*Completion, error) {
	system, turns := foldTranscript(req.Messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  turns,
		MaxTokens: anthropicMaxTokens,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	if len(req.Tools) > 0 {
		tools := make([]anthropic.ToolUnionParam, 0, len(req.Tools))
		for _, t := range req.Tools {
			toolParam := anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: t.Parameters["properties"],
				},
			}
			if required, ok := t.Parameters["required"].([]string); ok {
				toolParam.InputSchema.Required = required
			}
			tools = append(tools, anthropic.ToolUnionParam{OfTool: &toolParam})
		}
		params.Tools = tools
	}

	response, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	completion := &Completion{}
	var text strings.Builder
	for _, block := range response.Content {
		switch blk := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(blk.Text)
		case anthropic.ToolUseBlock:
			completion.ToolCalls = append(completion.ToolCalls, ToolCall{
				ID:           blk.ID,
				FunctionName: blk.Name,
				Arguments:    blk.JSON.Input.Raw(),
			})
		}
	}
	completion.Content = text.String()

	return completion, nil
}

// foldTranscript moves system messages into the system parameter and merges
// consecutive messages of the same role into one turn. Blank messages are
// dropped. The Messages API
// needs the conversation to open with a user turn, so leading assistant text
// is folded into the system parameter too.
func foldTranscript(messages []Message) (string, []anthropic.MessageParam) {
	var system []string
	var turns []anthropic.MessageParam
	var lastRole Role

	for _, msg := range messages {
		// the Messages API rejects empty text blocks
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}

		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Content)
			continue
		case RoleAssistant:
			if len(turns) == 0 {
				system = append(system, msg.Content)
				continue
			}
		}

		if len(turns) > 0 && msg.Role == lastRole {
			last := &turns[len(turns)-1]
			last.Content = append(last.Content, anthropic.NewTextBlock(msg.Content))
			continue
		}

		if msg.Role == RoleUser {
			turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		} else {
			turns = append(turns, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		}
		lastRole = msg.Role
	}

	if lastRole == RoleAssistant {
		turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(continueTurn)))
	}

	return strings.Join(system, "\n\n"), turns
}
