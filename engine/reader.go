package engine

import (
	"context"
	"net"

	"github.com/ais-wire/resp3/adapter"
	"github.com/ais-wire/resp3/internal/rcos"
	"github.com/ais-wire/resp3/internal/rlog"
	"github.com/ais-wire/resp3/rerrs"
	"github.com/ais-wire/resp3/resp3parse"
	"github.com/ais-wire/resp3/wire"
)

// readLoop implements spec §4.G's Reader task: repeatedly ask the parser
// to consume, routing each reply to the queue head's adapter or, for
// push-kind roots, to the side channel (spec §4.G "Push demultiplexing").
// Grounded on transport/pdu.go's resumable read pattern, generalized from
// one fixed record type to the parser's per-reply SinkSelector.
func (e *Engine) readLoop(ctx context.Context, conn net.Conn) error {
	buf := make([]byte, 32*1024)
	// pushTree and headSink record the routing of the reply in progress;
	// like the parser's own routing state they must survive iterations
	// that end in NeedsMore, and are cleared once the reply completes.
	var pushTree *adapter.Tree
	var headSink resp3parse.Sink
	for {
		if ctx.Err() != nil {
			return nil
		}

		selector := func(kind wire.Kind) resp3parse.Sink {
			if kind == wire.Push {
				pushTree = adapter.NewTree()
				return pushTree
			}
			if head := e.queue.HeadAwaitingReply(); head != nil {
				headSink = head.Sink
				return head.Sink
			}
			rlog.Warningf("engine[%s]: reply with no queued head; discarding", e.genID)
			return adapter.Ignore{}
		}

		res, err := e.parser.Consume(nil, selector)
		if err != nil && res != resp3parse.NeedsMore {
			return err
		}
		if res == resp3parse.NeedsMore {
			n, rerr := conn.Read(buf)
			if rerr != nil {
				return rerrs.Wrap(rerrs.TransportLost, rerr, "read failed")
			}
			res, err = e.parser.Consume(buf[:n], selector)
		}

		switch res {
		case resp3parse.NeedsMore:
			continue
		case resp3parse.ReplyComplete:
			if pushTree != nil {
				e.handlePush(pushTree)
			} else {
				// spec §4.E "composite tuple": a multi-command request's
				// Composite sink must advance to its next bound sink as
				// each command's reply completes, before the queue moves
				// on to the entry's next tag (or pops it on the last one).
				if comp, ok := headSink.(*adapter.Composite); ok {
					comp.Next()
				}
				e.queue.AdvanceCommand(err)
				e.metrics.RepliesTotal.Inc()
			}
			pushTree, headSink = nil, nil
		case resp3parse.ParseError:
			return err
		}
	}
}

// handlePush implements the Supplemented Features push-dedup/pushlog
// wiring: the whole push is buffered into tree (so a fingerprint can be
// computed over its full content before delivery), then replayed to the
// sink of the longest-parked AsyncReceive caller, or dropped if none is
// waiting (default-to-ignore, per SUPPLEMENTED FEATURES).
func (e *Engine) handlePush(tree *adapter.Tree) {
	dump, err := tree.DumpJSON()
	if err != nil {
		rlog.Warningf("engine[%s]: push dump failed: %v", e.genID, err)
		return
	}
	fp := rcos.Fingerprint64(dump)
	isNew := e.dedup.InsertUnique(fp)
	e.pushlog.Record(fp, dump, !isNew)
	e.metrics.PushesTotal.Inc()

	if !isNew {
		rlog.Infof("engine[%s]: dropped duplicate push fingerprint=%x", e.genID, fp)
		return
	}

	select {
	case w := <-e.pushWaits:
		for _, n := range tree.Nodes {
			_ = w.sink.Feed(resp3parse.Event{
				Kind: n.Kind, AggregateSize: n.AggregateSize, Depth: n.Depth,
				Payload: n.Payload, VerbatimEncoding: n.VerbatimEncoding,
			})
		}
		w.done <- nil
	default:
		rlog.Infof("engine[%s]: push arrived with no waiting receiver; dropped", e.genID)
	}
}
