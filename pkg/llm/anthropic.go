package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"
)

// anthropicClient adapts the Anthropic messages API to the Client
// interface, translating ConversationMessage/ToolDefinition to/from
// Anthropic's message and tool-use blocks.
type anthropicClient struct {
	sdk     anthropic.Client
	breaker *gobreaker.CircuitBreaker
}

// NewAnthropicClient builds a Client backed by the Anthropic API, guarded
// by a circuit breaker that opens after consecutiveFailures transport
// failures in a row and half-opens after openTimeout.
func NewAnthropicClient(apiKey, baseURL string, consecutiveFailures uint32, openTimeout time.Duration) Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "anthropic-llm",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailures
		},
		Timeout: openTimeout,
	})

	return &anthropicClient{sdk: anthropic.NewClient(opts...), breaker: cb}
}

func (c *anthropicClient) Generate(ctx context.Context, input GenerateInput) (*GenerateOutput, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		return c.generate(ctx, input)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("llm: circuit open: %w", err)
		}
		return nil, err
	}
	return result.(*GenerateOutput), nil
}

func (c *anthropicClient) generate(ctx context.Context, input GenerateInput) (*GenerateOutput, error) {
	messages := make([]anthropic.MessageParam, 0, len(input.Messages))
	for _, m := range input.Messages {
		switch m.Role {
		case RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case RoleAssistant:
			if len(m.ToolCalls) == 0 {
				messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
				continue
			}
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.ToolCalls)+1)
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var args any
				_ = json.Unmarshal([]byte(tc.Arguments), &args)
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, args, tc.Name))
			}
			messages = append(messages, anthropic.NewAssistantMessage(blocks...))
		case RoleTool:
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	tools := make([]anthropic.ToolUnionParam, 0, len(input.Tools))
	for _, t := range input.Tools {
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal([]byte(t.ParametersSchema), &schema); err != nil {
			return nil, fmt.Errorf("llm: tool %q has invalid parameters schema: %w", t.Name, err)
		}
		tools = append(tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: schema,
			},
		})
	}

	maxTokens := input.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	resp, err := c.sdk.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(input.Model),
		MaxTokens: int64(maxTokens),
		System:    []anthropic.TextBlockParam{{Text: input.System}},
		Messages:  messages,
		Tools:     tools,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: anthropic request: %w", err)
	}

	return translateResponse(resp), nil
}

func translateResponse(resp *anthropic.Message) *GenerateOutput {
	out := &GenerateOutput{
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}

	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.Content += variant.Text
		case anthropic.ToolUseBlock:
			argBytes, _ := json.Marshal(variant.Input)
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        variant.ID,
				Name:      variant.Name,
				Arguments: string(argBytes),
			})
		}
	}

	switch resp.StopReason {
	case anthropic.StopReasonToolUse:
		out.FinishReason = FinishReasonToolUse
	case anthropic.StopReasonEndTurn, anthropic.StopReasonStopSequence:
		out.FinishReason = FinishReasonStop
	case anthropic.StopReasonMaxTokens:
		out.FinishReason = FinishReasonLength
	case "":
		out.FinishReason = FinishReasonMalformed
	default:
		out.FinishReason = FinishReasonStop
	}

	return out
}
