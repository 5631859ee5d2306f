package sheets

import (
	"context"

	"github.com/William-Gao/frootful-sales-aggregation/pkg/retry"
)

// retryingFetcher wraps a RangeFetcher with transient-failure retries.
type retryingFetcher struct {
	inner RangeFetcher
	cfg   *retry.Config
}

// NewRetryingFetcher decorates a fetcher so transient fetch failures (rate
// limits, resets, 5xx) are retried with backoff. Permanent failures pass
// through immediately.
func NewRetryingFetcher(inner RangeFetcher, cfg *retry.Config) RangeFetcher {
	if cfg == nil {
		cfg = retry.DefaultConfig()
	}
	return &retryingFetcher{inner: inner, cfg: cfg}
}

// FetchRange implements RangeFetcher.
func (f *retryingFetcher) FetchRange(ctx context.Context, rangeA1 string) ([][]string, error) {
	return retry.DoWithResultIfRetryable(ctx, f.cfg, func() ([][]string, error) {
		return f.inner.FetchRange(ctx, rangeA1)
	})
}

// Ensure retryingFetcher implements RangeFetcher at compile time.
var _ RangeFetcher = (*retryingFetcher)(nil)
