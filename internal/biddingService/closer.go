package bidding

import (
	"auction-backend/utils"
	"context"
	"time"
)

// Closer periodically closes auctions whose end time has passed
type Closer struct {
	svc      *BiddingService
	interval time.Duration
}

// NewCloser creates a Closer that sweeps every interval
func NewCloser(svc *BiddingService, interval time.Duration) *Closer {
	return &Closer{svc: svc, interval: interval}
}

// Run sweeps until ctx is cancelled. A failed sweep is logged and retried on the
// next tick.
func (c *Closer) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and returns the number of items closed
func (c *Closer) Sweep(ctx context.Context) int {
	n, err := c.svc.CloseExpired(ctx)
	if err != nil {
		utils.Error("closer: sweep failed", map[string]any{"error": err.Error(), "closed": n})
		return n
	}
	if n > 0 {
		utils.Info("closer: closed expired items", map[string]any{"closed": n})
	}
	return n
}
