package engine

import (
	"context"
	"net"

	"github.com/ais-wire/resp3/rerrs"
)

// writeLoop implements spec §4.G's Writer task: wait for stageable bytes,
// flush front_to_write() in one write, never start a second write until
// the first is fully drained. Grounded on transport/sendmsg.go's
// single-in-flight write discipline (msgoff tracks one message's offset
// at a time); the blocking wait itself is queue.Queue.Wait(), a
// single-slot notification channel standing in for the "queue has
// stageable bytes" condition variable spec §4.G describes.
func (e *Engine) writeLoop(ctx context.Context, conn net.Conn) error {
	for {
		buf := e.queue.FrontToWrite(e.cfg.MaxCoalesceBytes)
		if len(buf) == 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-e.queue.Wait():
				continue
			}
		}

		written := 0
		for written < len(buf) {
			n, err := conn.Write(buf[written:])
			if err != nil {
				return rerrs.Wrap(rerrs.TransportLost, err, "write failed")
			}
			written += n
		}
		e.metrics.BytesWritten.Add(float64(written))
	}
}
