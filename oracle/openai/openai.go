// Package openai implements oracle.Oracle using the OpenAI Chat Completions
// API (including function/tool calling). It adapts taskmesh's normalized
// Request/Response structures into the SDK's message format and back.
// Structured requests are honored by appending the schema directive to the
// instructions and validating the returned JSON against the schema.
package openai

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/taskmesh/oracle"
)

// Options configure the OpenAI oracle adapter. Fields mirror a subset of Chat
// Completion parameters intentionally kept minimal; extend via functional
// options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	// APIKey overrides the key the client would otherwise read from the
	// environment.
	APIKey string
}

// Oracle wraps the OpenAI Chat Completions API behind the generic
// oracle.Oracle interface.
type Oracle struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI oracle using the official client.
func New(optFns ...func(o *Options)) *Oracle {
	var resolved Options
	for _, fn := range optFns {
		fn(&resolved)
	}

	var clientOpts []option.RequestOption
	if resolved.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(resolved.APIKey))
	}

	client := openai.NewClient(clientOpts...)
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI oracle from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Oracle {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Oracle{client: client, opts: opts}
}

// Invoke implements oracle.Oracle.
func (o *Oracle) Invoke(ctx context.Context, req oracle.Request) (oracle.Response, error) {
	start := time.Now()

	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(req),
		Model:               o.opts.Model,
		Temperature:         openai.Float(o.opts.Temperature),
		MaxCompletionTokens: openai.Int(o.opts.MaxCompletionTokens),
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return oracle.Response{}, &oracle.TimeoutError{Provider: "openai", Elapsed: time.Since(start)}
		}
		return oracle.Response{}, &oracle.ModelError{Provider: "openai", Err: err}
	}
	if len(resp.Choices) == 0 {
		return oracle.Response{}, &oracle.ModelError{Provider: "openai", Err: errors.New("no choices returned")}
	}

	choice := resp.Choices[0]
	out := oracle.Response{
		Text:         choice.Message.Content,
		FinishReason: string(choice.FinishReason),
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, oracle.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	if req.Schema != nil && len(out.ToolCalls) == 0 {
		data, err := oracle.ConformText("openai", out.Text, req.Schema)
		if err != nil {
			return oracle.Response{}, err
		}
		out.Data = data
	}

	return out, nil
}

// Info implements oracle.Oracle.
func (o *Oracle) Info() oracle.Info {
	return oracle.Info{Name: o.opts.Model, Provider: "openai"}
}

// buildMessages converts normalized messages into OpenAI chat messages,
// attaching tool responses with their originating call IDs.
func buildMessages(req oracle.Request) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion

	instructions := req.Instructions
	if req.Schema != nil {
		instructions += oracle.SchemaInstructions(req.SchemaName, req.Schema)
	}
	if instructions != "" {
		messages = append(messages, openai.SystemMessage(instructions))
	}

	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(m.Text))
		case "assistant":
			if len(m.ToolCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(m.Text))
				continue
			}
			toolCalls := make([]openai.ChatCompletionMessageToolCallParam, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				toolCalls[i] = openai.ChatCompletionMessageToolCallParam{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				}
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Role:      "assistant",
					ToolCalls: toolCalls,
				},
			})
		case "tool":
			if m.ToolResult != nil {
				messages = append(messages, openai.ToolMessage(m.ToolResult.Content, m.ToolResult.CallID))
			}
		default:
			messages = append(messages, openai.UserMessage(m.Text))
		}
	}

	return messages
}

// buildTools assembles OpenAI tool definitions.
func buildTools(tools []oracle.ToolDefinition) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, len(tools))
	for i, t := range tools {
		out[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  t.Parameters,
			},
		}
	}
	return out
}
