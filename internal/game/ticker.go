package game

import (
	"context"
	"time"
)

// DefaultTickInterval is the elapsed-time polling rate.
const DefaultTickInterval = 100 * time.Millisecond

// RunTicker calls tick every interval until tick returns false or ctx is
// cancelled. The returned channel is closed once the goroutine has exited.
func RunTicker(ctx context.Context, interval time.Duration, now func() time.Time, tick func(time.Time) bool) <-chan struct{} {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if !tick(now()) {
					return
				}
			}
		}
	}()
	return done
}
