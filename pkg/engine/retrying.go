package engine

import (
	"context"

	"github.com/William-Gao/frootful-sales-aggregation/pkg/retry"
)

// retryingEngine wraps an Engine with transient-failure retries. Turns are
// read-only against the provider, so retrying a failed request is safe; tool
// side effects happen outside the turn.
type retryingEngine struct {
	inner Engine
	cfg   *retry.Config
}

// NewRetrying decorates an engine so rate limits and transient provider
// failures are retried with backoff.
func NewRetrying(inner Engine, cfg *retry.Config) Engine {
	if cfg == nil {
		cfg = retry.DefaultConfig()
	}
	return &retryingEngine{inner: inner, cfg: cfg}
}

// CreateTurn implements Engine.
func (e *retryingEngine) CreateTurn(ctx context.Context, req *TurnRequest) (*TurnResponse, error) {
	return retry.DoWithResultIfRetryable(ctx, e.cfg, func() (*TurnResponse, error) {
		return e.inner.CreateTurn(ctx, req)
	})
}

// Model implements Engine.
func (e *retryingEngine) Model() string {
	return e.inner.Model()
}

// Ensure retryingEngine implements Engine at compile time.
var _ Engine = (*retryingEngine)(nil)
