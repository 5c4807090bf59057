package engine

import (
	"context"
	"net"
	"time"

	"github.com/ais-wire/resp3/adapter"
	"github.com/ais-wire/resp3/internal/rlog"
	"github.com/ais-wire/resp3/internal/rmono"
	"github.com/ais-wire/resp3/rerrs"
	"github.com/ais-wire/resp3/resp3"
)

// healthLoop implements spec §4.G's Health-checker: a periodic timer
// sending a no-coalesce probe command with a short deadline; missing the
// deadline fails the generation with HealthTimeout, which AsyncRun's
// reconnect loop treats like any other transport failure.
//
// Grounded on cmn/mono-timed healthcheck patterns used throughout the
// teacher's house-keeping (hk) package, adapted from a registered
// periodic callback to a dedicated goroutine since this library owns no
// shared house-keeping scheduler.
func (e *Engine) healthLoop(ctx context.Context, conn net.Conn) error {
	interval := time.Duration(e.cfg.HealthCheckInterval)
	timeout := time.Duration(e.cfg.HealthCheckTimeout)
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}

		start := rmono.NanoTime()
		probe := resp3.NewRequest()
		probe.Push(e.cfg.HealthCheckCommand)
		probe.Config().Coalesce = false

		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		err := e.AsyncExec(probeCtx, probe, adapter.Ignore{})
		cancel()

		elapsedMs := float64(rmono.NanoTime()-start) / 1e6
		e.metrics.ReplyLatency.Observe(elapsedMs / 1000)

		if err != nil {
			rlog.Warningf("engine[%s]: health probe failed after %.1fms: %v", e.genID, elapsedMs, err)
			return rerrs.Wrap(rerrs.HealthTimeout, err, "health probe deadline exceeded")
		}
	}
}
