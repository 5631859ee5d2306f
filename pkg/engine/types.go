// Package engine abstracts the tool-calling model providers behind a single
// turn-based interface. The orchestration loop talks only to Engine; the
// anthropic and openai adapters translate to their wire formats.
package engine

import "context"

// Block types carried in messages and responses.
const (
	BlockTypeText       = "text"
	BlockTypeToolUse    = "tool_use"
	BlockTypeToolResult = "tool_result"
	BlockTypeImage      = "image"
	BlockTypeDocument   = "document"
)

// StopReason reports why the model ended a turn.
type StopReason string

const (
	StopReasonEndTurn      StopReason = "end_turn"
	StopReasonToolUse      StopReason = "tool_use"
	StopReasonMaxTokens    StopReason = "max_tokens"
	StopReasonStopSequence StopReason = "stop_sequence"
)

// ToolCall is a tool invocation requested by the model. Arguments is the raw
// JSON input string, decoded by the dispatcher.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolResult carries the outcome of one tool call back to the model,
// correlated by the tool use id.
type ToolResult struct {
	ToolUseID string
	Content   string
	IsError   bool
}

// Attachment is an inline binary payload (image or document) sent with a
// user message. Data is base64-encoded.
type Attachment struct {
	MediaType string
	Data      string
}

// ContentBlock is one piece of a message. Exactly one of the payload fields
// is set, selected by Type.
type ContentBlock struct {
	Type       string
	Text       string
	ToolUse    *ToolCall
	ToolResult *ToolResult
	Attachment *Attachment
}

// Message is one conversation entry.
type Message struct {
	Role   string // "user" or "assistant"
	Blocks []ContentBlock
}

// ToolDefinition describes a tool offered to the model. InputSchema is a
// JSON Schema object.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// TurnRequest is one model invocation.
type TurnRequest struct {
	System    string
	Messages  []Message
	Tools     []ToolDefinition
	MaxTokens int
}

// Usage reports token consumption for one turn.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// TurnResponse is the model's reply for one turn.
type TurnResponse struct {
	Blocks     []ContentBlock
	StopReason StopReason
	Usage      Usage
}

// Engine is the provider-independent model interface.
// Use this interface for dependency injection to enable mocking in tests.
type Engine interface {
	// CreateTurn sends the conversation and returns the model's next turn.
	CreateTurn(ctx context.Context, req *TurnRequest) (*TurnResponse, error)

	// Model returns the configured model name.
	Model() string
}

// NewUserText builds a user message with a single text block.
func NewUserText(text string) Message {
	return Message{
		Role:   "user",
		Blocks: []ContentBlock{{Type: BlockTypeText, Text: text}},
	}
}

// NewAssistantMessage builds an assistant message from response blocks,
// for appending a turn back onto the conversation.
func NewAssistantMessage(blocks []ContentBlock) Message {
	return Message{Role: "assistant", Blocks: blocks}
}

// NewToolResultsMessage builds the user message that answers a batch of tool
// calls. All results for one turn travel in a single message.
func NewToolResultsMessage(results []ToolResult) Message {
	blocks := make([]ContentBlock, len(results))
	for i := range results {
		r := results[i]
		blocks[i] = ContentBlock{Type: BlockTypeToolResult, ToolResult: &r}
	}
	return Message{Role: "user", Blocks: blocks}
}

// Text concatenates all text blocks in a response.
func (r *TurnResponse) Text() string {
	var out string
	for _, b := range r.Blocks {
		if b.Type == BlockTypeText {
			out += b.Text
		}
	}
	return out
}

// ToolCalls returns the tool invocations requested in a response, in block
// order.
func (r *TurnResponse) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, b := range r.Blocks {
		if b.Type == BlockTypeToolUse && b.ToolUse != nil {
			calls = append(calls, *b.ToolUse)
		}
	}
	return calls
}
