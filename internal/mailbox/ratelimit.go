package mailbox

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Finder is a single verification code lookup
type Finder interface {
	FindCode(ctx context.Context, address string) (string, error)
}

// RateLimited spaces out lookups made through the wrapped finder so that all
// verification workers together stay under the mailbox provider's limit
type RateLimited struct {
	next    Finder
	limiter *rate.Limiter
}

// NewRateLimited wraps next with a limiter allowing perSecond lookups with the
// given burst. A non-positive perSecond disables limiting.
func NewRateLimited(next Finder, perSecond float64, burst int) *RateLimited {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}

	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// FindCode waits for a token, then delegates
func (r *RateLimited) FindCode(ctx context.Context, address string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}
	return r.next.FindCode(ctx, address)
}
