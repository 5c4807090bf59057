package engine

import (
	"context"
	"time"

	"github.com/ais-wire/resp3/rconfig"
)

// backoffSleep implements spec §4.G "Reconnection"'s inter-attempt delay:
// doubling backoff from cfg.ReconnectBackoffMin up to
// cfg.ReconnectBackoffMax, interruptible by ctx. A zero min disables the
// delay entirely (immediate retry).
//
// Doubling-with-ceiling is the same shape the ecosystem's service-probe
// watchers use (see other_examples connwatch.BackoffConfig); grounded
// here on it since the teacher repo's house-keeping timers are all
// fixed-interval, not backoff schedules. cur tracks the caller's running
// delay across successive calls within one AsyncRun loop; pass a pointer
// to a zero Duration on the first attempt of a fresh AsyncRun call.
func backoffSleep(ctx context.Context, cfg rconfig.Config, cur *time.Duration) error {
	min := time.Duration(cfg.ReconnectBackoffMin)
	max := time.Duration(cfg.ReconnectBackoffMax)
	if min <= 0 {
		return nil
	}
	if max < min {
		max = min
	}

	if *cur == 0 {
		*cur = min
	} else {
		*cur *= 2
		if *cur > max {
			*cur = max
		}
	}

	t := time.NewTimer(*cur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
