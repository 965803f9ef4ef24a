package netutil

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Gate enforces a minimum delay between outbound requests. One Gate is shared
// by every account so the remote sees a bounded request rate from this host.
// A nil *Gate never blocks.
type Gate struct {
	limiter *rate.Limiter
}

func NewGate(minDelay time.Duration) *Gate {
	if minDelay <= 0 {
		return &Gate{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Gate{limiter: rate.NewLimiter(rate.Every(minDelay), 1)}
}

// Wait blocks until the caller may send a request or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	if g == nil {
		return ctx.Err()
	}
	return g.limiter.Wait(ctx)
}
