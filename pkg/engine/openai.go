package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// openaiEngine adapts OpenAI-compatible chat completions to the Engine
// interface. Works against any endpoint that speaks the chat completions
// protocol.
type openaiEngine struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIEngine creates an Engine backed by an OpenAI-compatible chat
// completions endpoint.
func NewOpenAIEngine(apiKey, model, baseURL string, logger *zap.Logger) (Engine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &openaiEngine{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger.Named("openai"),
	}, nil
}

// CreateTurn implements Engine.
func (e *openaiEngine) CreateTurn(ctx context.Context, req *TurnRequest) (*TurnResponse, error) {
	messages, err := buildOpenAIMessages(req.System, req.Messages)
	if err != nil {
		return nil, err
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     e.model,
		Messages:  messages,
		Tools:     buildOpenAITools(req.Tools),
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in completion response")
	}

	choice := resp.Choices[0]
	out := &TurnResponse{
		StopReason: mapOpenAIFinishReason(choice.FinishReason),
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}

	if choice.Message.Content != "" {
		out.Blocks = append(out.Blocks, ContentBlock{Type: BlockTypeText, Text: choice.Message.Content})
	}
	for _, tc := range choice.Message.ToolCalls {
		out.Blocks = append(out.Blocks, ContentBlock{
			Type: BlockTypeToolUse,
			ToolUse: &ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}

	return out, nil
}

// Model implements Engine.
func (e *openaiEngine) Model() string {
	return e.model
}

// ============================================================================
// Wire format conversion
// ============================================================================

// buildOpenAIMessages flattens block-structured messages into chat
// completion messages. Tool results become separate role "tool" messages;
// images travel as data-URL message parts.
func buildOpenAIMessages(system string, messages []Message) ([]openai.ChatCompletionMessage, error) {
	var out []openai.ChatCompletionMessage

	if system != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}

	for _, msg := range messages {
		var texts []string
		var parts []openai.ChatMessagePart
		var toolCalls []openai.ToolCall
		var toolResults []*ToolResult

		for _, b := range msg.Blocks {
			switch b.Type {
			case BlockTypeText:
				texts = append(texts, b.Text)
			case BlockTypeToolUse:
				toolCalls = append(toolCalls, openai.ToolCall{
					ID:   b.ToolUse.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      b.ToolUse.Name,
						Arguments: b.ToolUse.Arguments,
					},
				})
			case BlockTypeToolResult:
				toolResults = append(toolResults, b.ToolResult)
			case BlockTypeImage:
				parts = append(parts, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL: fmt.Sprintf("data:%s;base64,%s", b.Attachment.MediaType, b.Attachment.Data),
					},
				})
			case BlockTypeDocument:
				return nil, fmt.Errorf("document attachments require the anthropic provider")
			default:
				return nil, fmt.Errorf("unsupported content block type: %s", b.Type)
			}
		}

		// Tool results map onto dedicated tool-role messages.
		for _, tr := range toolResults {
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    tr.Content,
				ToolCallID: tr.ToolUseID,
			})
		}

		if len(texts) == 0 && len(parts) == 0 && len(toolCalls) == 0 {
			continue
		}

		role := openai.ChatMessageRoleUser
		if msg.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}

		oaiMsg := openai.ChatCompletionMessage{
			Role:      role,
			ToolCalls: toolCalls,
		}
		if len(parts) > 0 {
			if len(texts) > 0 {
				parts = append([]openai.ChatMessagePart{{
					Type: openai.ChatMessagePartTypeText,
					Text: strings.Join(texts, "\n"),
				}}, parts...)
			}
			oaiMsg.MultiContent = parts
		} else {
			oaiMsg.Content = strings.Join(texts, "\n")
		}

		out = append(out, oaiMsg)
	}

	return out, nil
}

func buildOpenAITools(tools []ToolDefinition) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openai.Tool, len(tools))
	for i, def := range tools {
		paramsJSON, _ := json.Marshal(def.InputSchema)
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  json.RawMessage(paramsJSON),
			},
		}
	}
	return out
}

func mapOpenAIFinishReason(reason openai.FinishReason) StopReason {
	switch reason {
	case openai.FinishReasonToolCalls:
		return StopReasonToolUse
	case openai.FinishReasonLength:
		return StopReasonMaxTokens
	default:
		return StopReasonEndTurn
	}
}

// Ensure openaiEngine implements Engine at compile time.
var _ Engine = (*openaiEngine)(nil)
