package sheets

import (
	"context"

	"golang.org/x/time/rate"
)

// Conservative defaults, well below the Sheets API read quota, so a full
// rebuild plus a question sync never trips a 429.
const (
	defaultRequestsPerSecond = 2.0
	defaultBurstSize         = 5
)

type rateLimiter struct {
	limiter *rate.Limiter
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{
		limiter: rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), defaultBurstSize),
	}
}

func (r *rateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
