// Package agent drives the turn-based conversation between the decision
// engine and the mutation tools. The loop is a small explicit state machine;
// all side effects happen through the ToolDispatcher.
package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/William-Gao/frootful-sales-aggregation/pkg/apperrors"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/engine"
)

// State of the loop. The loop spends its whole life in StateAwaitingResponse
// and exits to one of the terminal states.
type State string

const (
	StateAwaitingResponse State = "awaiting_response"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// CreatedRecord describes one persisted order or proposal, for the run
// report.
type CreatedRecord struct {
	Kind         string // "order" or "proposal"
	ID           uuid.UUID
	Customer     string
	DeliveryDate string
	LineCount    int
	Detail       string
}

// DispatchResult is the outcome of one tool call. Content always carries the
// JSON serialized back to the engine; recoverable problems set IsError and
// an entry in Errors instead of failing the dispatch.
type DispatchResult struct {
	Content string
	IsError bool
	Created []CreatedRecord
	Errors  []string
}

// ToolDispatcher executes tool calls requested by the engine.
// Use this interface for dependency injection to enable mocking in tests.
type ToolDispatcher interface {
	// Tools returns the tool catalog offered to the engine.
	Tools() []engine.ToolDefinition

	// Dispatch executes one tool call. It must not return transport-level
	// errors for bad arguments; those belong in the result.
	Dispatch(ctx context.Context, call engine.ToolCall) DispatchResult
}

// Result accumulates everything a run produced. On ErrMaxTurnsExceeded the
// partial Result is still returned alongside the error.
type Result struct {
	State        State
	Turns        int
	InputTokens  int
	OutputTokens int
	FinalText    string
	Created      []CreatedRecord
	Errors       []string
}

// Loop runs conversations against one engine and one dispatcher.
type Loop struct {
	engine     engine.Engine
	dispatcher ToolDispatcher
	maxTurns   int
	maxTokens  int
	logger     *zap.Logger
}

// NewLoop creates a loop. maxTurns caps engine round-trips per run; maxTokens
// is the per-turn generation ceiling.
func NewLoop(eng engine.Engine, dispatcher ToolDispatcher, maxTurns, maxTokens int, logger *zap.Logger) *Loop {
	if maxTurns <= 0 {
		maxTurns = 100
	}
	return &Loop{
		engine:     eng,
		dispatcher: dispatcher,
		maxTurns:   maxTurns,
		maxTokens:  maxTokens,
		logger:     logger.Named("agent"),
	}
}

// Run drives turns until the engine signals a natural end or the turn
// ceiling is hit. Tool calls within a turn execute in emission order and
// their results return in that same order, each tagged with the originating
// call id, combined into a single reply message.
//
// A single failing tool never aborts the loop: the failure is serialized
// into that tool's result slot and recorded in Result.Errors. When the
// ceiling is hit the accumulated Result is returned together with
// apperrors.ErrMaxTurnsExceeded.
func (l *Loop) Run(ctx context.Context, system string, initial engine.Message) (*Result, error) {
	result := &Result{State: StateAwaitingResponse}
	messages := []engine.Message{initial}
	tools := l.dispatcher.Tools()

	for result.Turns < l.maxTurns {
		resp, err := l.engine.CreateTurn(ctx, &engine.TurnRequest{
			System:    system,
			Messages:  messages,
			Tools:     tools,
			MaxTokens: l.maxTokens,
		})
		if err != nil {
			result.State = StateFailed
			return result, fmt.Errorf("engine turn %d failed: %w", result.Turns+1, err)
		}

		result.Turns++
		result.InputTokens += resp.Usage.InputTokens
		result.OutputTokens += resp.Usage.OutputTokens

		calls := resp.ToolCalls()
		if text := resp.Text(); text != "" {
			result.FinalText = text
		}

		if len(calls) == 0 {
			// Natural end: nothing left to dispatch.
			result.State = StateDone
			l.logger.Info("run complete",
				zap.Int("turns", result.Turns),
				zap.Int("created", len(result.Created)),
				zap.Int("errors", len(result.Errors)),
				zap.Int("input_tokens", result.InputTokens),
				zap.Int("output_tokens", result.OutputTokens))
			return result, nil
		}

		messages = append(messages, engine.NewAssistantMessage(resp.Blocks))

		toolResults := make([]engine.ToolResult, 0, len(calls))
		for _, call := range calls {
			l.logger.Debug("dispatching tool call",
				zap.String("tool", call.Name),
				zap.String("id", call.ID))

			dr := l.dispatcher.Dispatch(ctx, call)
			result.Created = append(result.Created, dr.Created...)
			result.Errors = append(result.Errors, dr.Errors...)
			toolResults = append(toolResults, engine.ToolResult{
				ToolUseID: call.ID,
				Content:   dr.Content,
				IsError:   dr.IsError,
			})
		}
		messages = append(messages, engine.NewToolResultsMessage(toolResults))
	}

	result.State = StateFailed
	l.logger.Warn("turn ceiling reached",
		zap.Int("turns", result.Turns),
		zap.Int("created", len(result.Created)),
		zap.Int("errors", len(result.Errors)))
	return result, apperrors.ErrMaxTurnsExceeded
}
