package engine

import (
	"context"
	"fmt"
)

// MockEngine is a configurable mock for testing engine-driven flows.
// Either set CreateTurnFunc for full control, or preload Turns to script a
// fixed sequence of responses.
type MockEngine struct {
	// CreateTurnFunc is called when CreateTurn is invoked.
	// If nil, responses are popped from Turns.
	CreateTurnFunc func(ctx context.Context, req *TurnRequest) (*TurnResponse, error)

	// Turns is a scripted queue of responses, consumed in order.
	Turns []*TurnResponse

	// ModelName is returned by Model. Defaults to "mock-model".
	ModelName string

	// Requests records every TurnRequest received, for verification.
	Requests []*TurnRequest

	next int
}

// NewMockEngine creates a new mock with sensible defaults.
func NewMockEngine(turns ...*TurnResponse) *MockEngine {
	return &MockEngine{
		Turns:     turns,
		ModelName: "mock-model",
	}
}

// CreateTurn implements Engine.
func (m *MockEngine) CreateTurn(ctx context.Context, req *TurnRequest) (*TurnResponse, error) {
	m.Requests = append(m.Requests, req)
	if m.CreateTurnFunc != nil {
		return m.CreateTurnFunc(ctx, req)
	}
	if m.next >= len(m.Turns) {
		return nil, fmt.Errorf("mock engine: no scripted turn for call %d", m.next+1)
	}
	resp := m.Turns[m.next]
	m.next++
	return resp, nil
}

// Model implements Engine.
func (m *MockEngine) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}

// Reset clears call tracking and rewinds the scripted queue.
func (m *MockEngine) Reset() {
	m.Requests = nil
	m.next = 0
}

// TextTurn builds a scripted response containing a single text block.
func TextTurn(text string, stop StopReason) *TurnResponse {
	return &TurnResponse{
		Blocks:     []ContentBlock{{Type: BlockTypeText, Text: text}},
		StopReason: stop,
	}
}

// ToolUseTurn builds a scripted response requesting the given tool calls.
func ToolUseTurn(calls ...ToolCall) *TurnResponse {
	resp := &TurnResponse{StopReason: StopReasonToolUse}
	for i := range calls {
		c := calls[i]
		resp.Blocks = append(resp.Blocks, ContentBlock{Type: BlockTypeToolUse, ToolUse: &c})
	}
	return resp
}

// Ensure MockEngine implements Engine at compile time.
var _ Engine = (*MockEngine)(nil)
