package enrichment

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

// NewLimiter returns the limiter shared by the registry lookups. A
// non-positive rate disables limiting.
func NewLimiter(requestsPerSecond float64) *rate.Limiter {
	if requestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(math.Ceil(requestsPerSecond))
	return rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

func wait(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}
