package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/William-Gao/frootful-sales-aggregation/pkg/apperrors"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/engine"
)

// mockDispatcher records calls and answers from a function field.
type mockDispatcher struct {
	ToolsFunc    func() []engine.ToolDefinition
	DispatchFunc func(ctx context.Context, call engine.ToolCall) DispatchResult
	Calls        []engine.ToolCall
}

func (m *mockDispatcher) Tools() []engine.ToolDefinition {
	if m.ToolsFunc != nil {
		return m.ToolsFunc()
	}
	return []engine.ToolDefinition{{Name: "create_order"}}
}

func (m *mockDispatcher) Dispatch(ctx context.Context, call engine.ToolCall) DispatchResult {
	m.Calls = append(m.Calls, call)
	if m.DispatchFunc != nil {
		return m.DispatchFunc(ctx, call)
	}
	return DispatchResult{Content: `{"ok": true}`}
}

func newTestLoop(eng engine.Engine, d ToolDispatcher, maxTurns int) *Loop {
	return NewLoop(eng, d, maxTurns, 4096, zap.NewNop())
}

func TestLoopRun_NaturalEnd(t *testing.T) {
	eng := engine.NewMockEngine(
		engine.ToolUseTurn(engine.ToolCall{ID: "tu_1", Name: "create_order", Arguments: `{}`}),
		engine.TextTurn("All orders created.", engine.StopReasonEndTurn),
	)
	created := CreatedRecord{Kind: "order", ID: uuid.New(), Customer: "Cafe Sushi", LineCount: 2}
	dispatcher := &mockDispatcher{
		DispatchFunc: func(ctx context.Context, call engine.ToolCall) DispatchResult {
			return DispatchResult{Content: `{"order_id": "x"}`, Created: []CreatedRecord{created}}
		},
	}

	result, err := newTestLoop(eng, dispatcher, 10).Run(context.Background(), "system", engine.NewUserText("go"))
	require.NoError(t, err)

	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, 2, result.Turns)
	assert.Equal(t, "All orders created.", result.FinalText)
	require.Len(t, result.Created, 1)
	assert.Equal(t, "Cafe Sushi", result.Created[0].Customer)
	assert.Empty(t, result.Errors)

	// The second request must carry the assistant turn plus the tool reply.
	require.Len(t, eng.Requests, 2)
	messages := eng.Requests[1].Messages
	require.Len(t, messages, 3)
	assert.Equal(t, "assistant", messages[1].Role)
	assert.Equal(t, "user", messages[2].Role)
}

func TestLoopRun_ToolResultsKeepEmissionOrder(t *testing.T) {
	eng := engine.NewMockEngine(
		engine.ToolUseTurn(
			engine.ToolCall{ID: "tu_1", Name: "fetch_open_orders", Arguments: `{}`},
			engine.ToolCall{ID: "tu_2", Name: "create_order", Arguments: `{}`},
		),
		engine.TextTurn("done", engine.StopReasonEndTurn),
	)
	dispatcher := &mockDispatcher{
		DispatchFunc: func(ctx context.Context, call engine.ToolCall) DispatchResult {
			return DispatchResult{Content: fmt.Sprintf(`{"for": %q}`, call.Name)}
		},
	}

	result, err := newTestLoop(eng, dispatcher, 10).Run(context.Background(), "system", engine.NewUserText("go"))
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)

	require.Len(t, dispatcher.Calls, 2)
	assert.Equal(t, "fetch_open_orders", dispatcher.Calls[0].Name)
	assert.Equal(t, "create_order", dispatcher.Calls[1].Name)

	// One combined reply message, results tagged with the originating ids in
	// the same order the calls were emitted.
	reply := eng.Requests[1].Messages[2]
	require.Len(t, reply.Blocks, 2)
	assert.Equal(t, "tu_1", reply.Blocks[0].ToolResult.ToolUseID)
	assert.Equal(t, "tu_2", reply.Blocks[1].ToolResult.ToolUseID)
}

func TestLoopRun_ToolErrorDoesNotAbort(t *testing.T) {
	eng := engine.NewMockEngine(
		engine.ToolUseTurn(engine.ToolCall{ID: "tu_1", Name: "create_order", Arguments: `{"bad`}),
		engine.TextTurn("gave up on that one", engine.StopReasonEndTurn),
	)
	dispatcher := &mockDispatcher{
		DispatchFunc: func(ctx context.Context, call engine.ToolCall) DispatchResult {
			return DispatchResult{
				Content: `{"error": "invalid arguments"}`,
				IsError: true,
				Errors:  []string{"create_order: invalid arguments"},
			}
		},
	}

	result, err := newTestLoop(eng, dispatcher, 10).Run(context.Background(), "system", engine.NewUserText("go"))
	require.NoError(t, err)

	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, []string{"create_order: invalid arguments"}, result.Errors)
	assert.True(t, eng.Requests[1].Messages[2].Blocks[0].ToolResult.IsError)
}

func TestLoopRun_MaxTurnsReturnsPartialResult(t *testing.T) {
	created := CreatedRecord{Kind: "order", ID: uuid.New(), Customer: "Oleana"}
	eng := &engine.MockEngine{
		CreateTurnFunc: func(ctx context.Context, req *engine.TurnRequest) (*engine.TurnResponse, error) {
			// Never stops asking for tools.
			return engine.ToolUseTurn(engine.ToolCall{ID: "tu", Name: "create_order", Arguments: `{}`}), nil
		},
	}
	dispatcher := &mockDispatcher{
		DispatchFunc: func(ctx context.Context, call engine.ToolCall) DispatchResult {
			return DispatchResult{Content: `{}`, Created: []CreatedRecord{created}}
		},
	}

	result, err := newTestLoop(eng, dispatcher, 3).Run(context.Background(), "system", engine.NewUserText("go"))
	require.ErrorIs(t, err, apperrors.ErrMaxTurnsExceeded)

	assert.Equal(t, StateFailed, result.State)
	assert.Equal(t, 3, result.Turns)
	assert.Len(t, result.Created, 3, "work done before the ceiling is kept")
}

func TestLoopRun_EngineError(t *testing.T) {
	eng := &engine.MockEngine{
		CreateTurnFunc: func(ctx context.Context, req *engine.TurnRequest) (*engine.TurnResponse, error) {
			return nil, fmt.Errorf("connection reset")
		},
	}

	result, err := newTestLoop(eng, &mockDispatcher{}, 10).Run(context.Background(), "system", engine.NewUserText("go"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, StateFailed, result.State)
	assert.Equal(t, 0, result.Turns)
}

func TestLoopRun_UsageAccumulates(t *testing.T) {
	first := engine.ToolUseTurn(engine.ToolCall{ID: "tu_1", Name: "create_order", Arguments: `{}`})
	first.Usage = engine.Usage{InputTokens: 100, OutputTokens: 20}
	second := engine.TextTurn("done", engine.StopReasonEndTurn)
	second.Usage = engine.Usage{InputTokens: 150, OutputTokens: 10}

	eng := engine.NewMockEngine(first, second)
	result, err := newTestLoop(eng, &mockDispatcher{}, 10).Run(context.Background(), "system", engine.NewUserText("go"))
	require.NoError(t, err)

	assert.Equal(t, 250, result.InputTokens)
	assert.Equal(t, 30, result.OutputTokens)
}
