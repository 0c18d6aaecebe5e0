package rank

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultPageInterval is the minimum spacing between two search requests.
const DefaultPageInterval = 500 * time.Millisecond

// Throttle gates outbound requests. *rate.Limiter satisfies it.
type Throttle interface {
	Wait(ctx context.Context) error
}

// NewThrottle returns a limiter admitting one request per interval with no
// burst beyond the first. A non-positive interval disables throttling.
func NewThrottle(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}
