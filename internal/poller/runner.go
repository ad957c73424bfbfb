// internal/poller/runner.go
package poller

import (
	"context"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"
)

// maxBackoff bounds the delay between failing cycles.
const maxBackoff = 5 * time.Minute

func (c *Coordinator) backoff() wait.Backoff {
	limit := 4 * c.cfg.Interval
	if limit > maxBackoff {
		limit = maxBackoff
	}
	if limit < c.cfg.Interval {
		limit = c.cfg.Interval
	}
	return wait.Backoff{
		Duration: c.cfg.Interval,
		Factor:   1.5,
		Jitter:   0.1,
		Steps:    1 << 30,
		Cap:      limit,
	}
}

// Run polls immediately, then once per interval until ctx is done.
// Consecutive failures stretch the interval (bounded backoff); a success
// restores it. RequestRefresh starts the next cycle early.
// One goroutine per device. No overlap.
func (c *Coordinator) Run(ctx context.Context) {
	defer func() {
		if err := c.Close(); err != nil {
			klog.V(2).InfoS("Transport close failed", "err", err)
		}
	}()

	klog.InfoS("Polling started", "device", c.cfg.Profile.UniqueID(), "family", c.family,
		"registers", len(c.defs), "blocks", len(c.blocks), "interval", c.cfg.Interval)

	bo := c.backoff()
	for {
		next := c.cfg.Interval
		if _, err := c.PollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			next = bo.Step()
		} else {
			bo = c.backoff()
		}

		timer := time.NewTimer(next)
		select {
		case <-ctx.Done():
			timer.Stop()
			klog.InfoS("Polling stopped", "device", c.cfg.Profile.UniqueID())
			return
		case <-c.refresh:
			timer.Stop()
		case <-timer.C:
		}
	}
}
