package store

import (
	"context"
	"time"
)

// Sweeper drops expired entries and reports how many it removed
type Sweeper interface {
	Sweep() int
}

// StartJanitor sweeps every store each interval until ctx is done. Redis
// stores expire their own keys and need no janitor.
func StartJanitor(ctx context.Context, interval time.Duration, sweepers ...Sweeper) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, s := range sweepers {
					s.Sweep()
				}
			}
		}
	}()
}
