package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"

	"github.com/paulantoine/coursemate/internal/tools"
)

// AnthropicModel adapts the Anthropic Messages API to the Model
// interface. A token-bucket limiter sits in front of every call to
// stay under the API rate limits.
type AnthropicModel struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewAnthropicModel creates the adapter. maxTokens caps the response
// length of every call.
func NewAnthropicModel(apiKey, model string, maxTokens int, logger *slog.Logger) *AnthropicModel {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnthropicModel{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     anthropic.Model(model),
		maxTokens: int64(maxTokens),
		limiter:   rate.NewLimiter(10, 30), // 10 req/s, burst 30
		logger:    logger,
	}
}

// Generate performs one Messages API call and maps the response blocks
// back to the provider-neutral Response.
func (m *AnthropicModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	params := anthropic.MessageNewParams{
		Model:     m.model,
		MaxTokens: m.maxTokens,
		Messages:  convertMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
	}

	msg, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("messages API call: %w", err)
	}

	resp := &Response{}
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Text += b.Text
		case anthropic.ToolUseBlock:
			var p map[string]any
			if err := json.Unmarshal([]byte(b.JSON.Input.Raw()), &p); err != nil {
				return nil, fmt.Errorf("decoding tool input for %q: %w", b.Name, err)
			}
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{ID: b.ID, Name: b.Name, Params: p})
		}
	}

	m.logger.Debug("model call completed",
		"stop_reason", msg.StopReason, "tool_calls", len(resp.ToolCalls))
	return resp, nil
}

// convertMessages maps provider-neutral turns onto Anthropic message
// params, expanding tool calls and tool results into content blocks.
func convertMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		var blocks []anthropic.ContentBlockParamUnion
		if msg.Content != "" {
			blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
		}

		switch msg.Role {
		case RoleAssistant:
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, call.Params, call.Name))
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		default:
			for _, result := range msg.ToolResults {
				blocks = append(blocks, anthropic.NewToolResultBlock(result.ToolCallID, result.Content, false))
			}
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out
}

func convertTools(defs []tools.Definition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        def.Name,
				Description: anthropic.String(def.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: def.InputSchema,
					Required:   def.Required,
				},
			},
		})
	}
	return out
}
