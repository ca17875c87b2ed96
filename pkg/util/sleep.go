package util

import (
	"context"
	"time"
)

// Sleep waits for d or until ctx is done. Non-positive durations return at once.
func Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
