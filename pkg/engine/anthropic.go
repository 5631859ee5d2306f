package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// anthropicEngine adapts the Anthropic Messages API to the Engine interface.
type anthropicEngine struct {
	client *anthropic.Client
	model  string
	logger *zap.Logger
}

// NewAnthropicEngine creates an Engine backed by the Anthropic Messages API.
// baseURL is optional and overrides the default endpoint when set.
func NewAnthropicEngine(apiKey, model, baseURL string, logger *zap.Logger) (Engine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}

	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}

	return &anthropicEngine{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
		logger: logger.Named("anthropic"),
	}, nil
}

// CreateTurn implements Engine.
func (e *anthropicEngine) CreateTurn(ctx context.Context, req *TurnRequest) (*TurnResponse, error) {
	messages, err := buildAnthropicMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	resp, err := e.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(e.model),
		MaxTokens: req.MaxTokens,
		System:    req.System,
		Messages:  messages,
		Tools:     buildAnthropicTools(req.Tools),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create messages: %w", err)
	}

	out := &TurnResponse{
		StopReason: mapAnthropicStopReason(resp.StopReason),
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}

	for _, block := range resp.Content {
		switch block.Type {
		case anthropic.MessagesContentTypeText:
			if block.Text != nil {
				out.Blocks = append(out.Blocks, ContentBlock{Type: BlockTypeText, Text: *block.Text})
			}
		case anthropic.MessagesContentTypeToolUse:
			if block.MessageContentToolUse == nil {
				continue
			}
			tu := block.MessageContentToolUse
			out.Blocks = append(out.Blocks, ContentBlock{
				Type: BlockTypeToolUse,
				ToolUse: &ToolCall{
					ID:        tu.ID,
					Name:      tu.Name,
					Arguments: string(tu.Input),
				},
			})
		default:
			e.logger.Debug("ignoring unhandled content block", zap.String("type", string(block.Type)))
		}
	}

	return out, nil
}

// Model implements Engine.
func (e *anthropicEngine) Model() string {
	return e.model
}

// ============================================================================
// Wire format conversion
// ============================================================================

func buildAnthropicMessages(messages []Message) ([]anthropic.Message, error) {
	out := make([]anthropic.Message, 0, len(messages))
	for _, msg := range messages {
		role := anthropic.RoleUser
		if msg.Role == "assistant" {
			role = anthropic.RoleAssistant
		}

		content := make([]anthropic.MessageContent, 0, len(msg.Blocks))
		for _, b := range msg.Blocks {
			switch b.Type {
			case BlockTypeText:
				content = append(content, anthropic.NewTextMessageContent(b.Text))
			case BlockTypeToolUse:
				content = append(content, anthropic.MessageContent{
					Type: anthropic.MessagesContentTypeToolUse,
					MessageContentToolUse: &anthropic.MessageContentToolUse{
						ID:    b.ToolUse.ID,
						Name:  b.ToolUse.Name,
						Input: json.RawMessage(b.ToolUse.Arguments),
					},
				})
			case BlockTypeToolResult:
				content = append(content, anthropic.NewToolResultMessageContent(
					b.ToolResult.ToolUseID, b.ToolResult.Content, b.ToolResult.IsError))
			case BlockTypeImage:
				content = append(content, anthropic.NewImageMessageContent(
					anthropic.NewMessageContentSource(
						anthropic.MessagesContentSourceTypeBase64,
						b.Attachment.MediaType,
						b.Attachment.Data,
					)))
			case BlockTypeDocument:
				source := anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64,
					b.Attachment.MediaType,
					b.Attachment.Data,
				)
				content = append(content, anthropic.MessageContent{
					Type:   anthropic.MessagesContentTypeDocument,
					Source: &source,
				})
			default:
				return nil, fmt.Errorf("unsupported content block type: %s", b.Type)
			}
		}

		out = append(out, anthropic.Message{Role: role, Content: content})
	}
	return out, nil
}

func buildAnthropicTools(tools []ToolDefinition) []anthropic.ToolDefinition {
	if len(tools) == 0 {
		return nil
	}
	out := make([]anthropic.ToolDefinition, len(tools))
	for i, def := range tools {
		out[i] = anthropic.ToolDefinition{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		}
	}
	return out
}

func mapAnthropicStopReason(reason anthropic.MessagesStopReason) StopReason {
	switch reason {
	case anthropic.MessagesStopReasonToolUse:
		return StopReasonToolUse
	case anthropic.MessagesStopReasonMaxTokens:
		return StopReasonMaxTokens
	case anthropic.MessagesStopReasonStopSequence:
		return StopReasonStopSequence
	default:
		return StopReasonEndTurn
	}
}

// Ensure anthropicEngine implements Engine at compile time.
var _ Engine = (*anthropicEngine)(nil)
