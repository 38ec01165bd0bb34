package feed

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Governor throttles outbound feed calls to a minimum inter-call spacing.
// The provider's free tier budgets roughly one call per second, so a
// plain spacing model (burst of one) is a better fit than a token bucket
// that would allow bursts. One shared instance gates every feed call in
// the process.
type Governor struct {
	limiter *rate.Limiter
}

// NewGovernor creates a governor enforcing the given spacing between
// permitted calls.
func NewGovernor(spacing time.Duration) *Governor {
	return &Governor{
		limiter: rate.NewLimiter(rate.Every(spacing), 1),
	}
}

// Acquire blocks until the next call is permitted. A cancelled context
// abandons the wait and returns the context's error, so an aborted sync
// run never leaks a waiting caller.
func (g *Governor) Acquire(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}
