// Package engine implements spec §4.G: the connection engine owning one
// duplex net.Conn, a writer/reader/health-checker task trio, push
// demultiplexing, two-scope cancellation, and reconnection with replay.
//
// Grounded on transport/collect.go's background collector goroutine and
// transport/tinit.go's handshake-on-connect, generalized from HTTP
// intra-cluster streams to a single RESP3 duplex socket. Task supervision
// uses golang.org/x/sync/errgroup the way dsort/dsort.go supervises its
// worker goroutines.
package engine

import (
	"context"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ais-wire/resp3/adapter"
	"github.com/ais-wire/resp3/internal/rcos"
	"github.com/ais-wire/resp3/internal/rlog"
	"github.com/ais-wire/resp3/queue"
	"github.com/ais-wire/resp3/rconfig"
	"github.com/ais-wire/resp3/rerrs"
	"github.com/ais-wire/resp3/resp3"
	"github.com/ais-wire/resp3/resp3parse"
	"github.com/ais-wire/resp3/wire"
)

// Dialer establishes the underlying transport; the engine calls it once
// on AsyncRun and again on every reconnect attempt.
type Dialer func(ctx context.Context) (net.Conn, error)

// Scope is the unit of work cancel(scope) tears down (spec §4.G
// "Cancellation").
type Scope int

const (
	ScopeExec Scope = iota
	ScopeRun
	ScopeReceive
)

// Engine is the connection engine of spec §4.G. Not safe for concurrent
// AsyncRun calls; AsyncExec/AsyncReceive/Cancel are safe to call
// concurrently from multiple caller goroutines while AsyncRun is active.
type Engine struct {
	dial Dialer
	cfg  rconfig.Config

	queue  *queue.Queue
	parser *resp3parse.Parser

	metrics *Metrics
	pushlog *PushLog
	dedup   *Dedup

	genID string // correlation id for the current connection generation

	mu        sync.Mutex
	conn      net.Conn
	connected bool

	pushWaits chan *pushWait

	runCancel context.CancelFunc
}

type pushWait struct {
	sink resp3parse.Sink
	done chan error
}

// New builds an Engine. cfg may be rconfig.Default(); metrics/pushlog/
// dedup are constructed eagerly so AsyncExec/AsyncReceive are safe to
// call before AsyncRun (they simply block or fail fast per config).
func New(dial Dialer, cfg rconfig.Config) *Engine {
	return &Engine{
		dial:      dial,
		cfg:       cfg,
		queue:     queue.New(),
		parser:    resp3parse.New(),
		metrics:   NewMetrics(),
		pushlog:   NewPushLog(),
		dedup:     NewDedup(),
		pushWaits: make(chan *pushWait, 64),
	}
}

// NextLayer returns the currently borrowed socket, for pre-connect
// operations a caller wants to perform directly (spec §6 "next_layer()").
// Returns nil before the first successful connect.
func (e *Engine) NextLayer() net.Conn {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn
}

// Metrics exposes the engine's Prometheus collectors for a caller that
// wants to register them against its own registry.
func (e *Engine) Metrics() *Metrics { return e.metrics }

// PushLog exposes the engine's in-memory push diagnostics log.
func (e *Engine) PushLog() *PushLog { return e.pushlog }

// LastAttributes returns the attribute nodes collected immediately
// before the most recently completed reply (spec §9's transparent
// attribute handling), or nil if none preceded it.
func (e *Engine) LastAttributes() []wire.Node { return e.parser.LastAttributes() }

// AsyncRun dials, performs the configured handshake, and runs the
// writer/reader/health-checker trio under one errgroup until ctx is
// cancelled, cancel(run) fires, or a fatal transport/protocol error
// occurs — at which point it reconnects per spec §4.G "Reconnection"
// unless ctx has been cancelled.
func (e *Engine) AsyncRun(ctx context.Context) error {
	var curBackoff time.Duration
	for {
		runCtx, runCancel := context.WithCancel(ctx)
		e.mu.Lock()
		e.runCancel = runCancel
		e.mu.Unlock()

		err := e.runOneGeneration(runCtx)
		runCancel()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			return nil // cancel(run) was called deliberately
		}
		if _, ok := rerrs.KindOf(err); !ok {
			return err // non-taxonomy error: caller's dial func misbehaved
		}

		rlog.Warningf("engine[%s]: generation ended (%v), draining and reconnecting", e.genID, err)
		if drained := e.queue.DrainOnDisconnect(); !drained.Empty() {
			rlog.Warningf("engine[%s]: drained entries on disconnect: %v", e.genID, drained)
		}
		e.metrics.Reconnects.Inc()

		if waitErr := backoffSleep(ctx, e.cfg, &curBackoff); waitErr != nil {
			return waitErr
		}
	}
}

func (e *Engine) runOneGeneration(ctx context.Context) error {
	e.genID = rcos.GenUUID()
	conn, err := e.dial(ctx)
	if err != nil {
		return rerrs.Wrap(rerrs.TransportLost, err, "dial failed")
	}
	e.mu.Lock()
	e.conn = conn
	e.connected = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.connected = false
		_ = conn.Close()
		e.mu.Unlock()
	}()

	if e.cfg.Handshake != nil {
		if err := e.handshake(ctx, conn); err != nil {
			return rerrs.Wrap(rerrs.HandshakeFailed, err, "handshake failed")
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	// Closing the socket once the group is cancelled unblocks a reader or
	// writer parked in conn.Read/conn.Write, so every task can exit.
	go func() {
		<-gctx.Done()
		_ = conn.Close()
	}()
	g.Go(func() error { return e.writeLoop(gctx, conn) })
	g.Go(func() error { return e.readLoop(gctx, conn) })
	if e.cfg.HealthCheckCommand != "" && e.cfg.HealthCheckInterval > 0 {
		g.Go(func() error { return e.healthLoop(gctx, conn) })
	}
	err = g.Wait()
	if ctx.Err() != nil {
		// cancel(run) or the caller's ctx: a deliberate teardown, so the
		// I/O errors from the closed socket are not a reason to reconnect.
		return nil
	}
	return err
}

func (e *Engine) handshake(ctx context.Context, conn net.Conn) error {
	sink := adapter.Ignore{}
	return e.execOn(ctx, conn, e.cfg.Handshake, sink)
}

// AsyncExec stages req with sink bound to its replies and awaits
// settlement (spec §6 "async_exec"). A nil sink defaults to
// adapter.Ignore{} (Supplemented Features: aedis always has some adapter
// bound).
func (e *Engine) AsyncExec(ctx context.Context, req *resp3.Request, sink resp3parse.Sink) error {
	if sink == nil {
		sink = adapter.Ignore{}
	}
	e.mu.Lock()
	connected := e.connected
	e.mu.Unlock()
	if !connected && req.Config().CancelIfNotConnected {
		return rerrs.New(rerrs.TransportLost, "not connected")
	}

	h := e.queue.Stage(req, sink)
	e.metrics.CommandsTotal.Inc()
	select {
	case <-h.Done():
		return h.Err()
	case <-ctx.Done():
		e.queue.Cancel(h, ctx.Err())
		return rerrs.New(rerrs.OperationCancelled, "%v", ctx.Err())
	}
}

// execOn is AsyncExec for a specific conn, used only for the handshake
// before the writer/reader tasks exist — it writes and reads synchronously
// on the caller's goroutine rather than going through the queue.
func (e *Engine) execOn(ctx context.Context, conn net.Conn, req *resp3.Request, sink resp3parse.Sink) error {
	if _, err := conn.Write(req.Bytes()); err != nil {
		return err
	}
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return err
		}
		res, perr := e.parser.Consume(buf[:n], func(wire.Kind) resp3parse.Sink { return sink })
		if perr != nil {
			return perr
		}
		if res == resp3parse.ReplyComplete {
			return nil
		}
	}
}

// AsyncReceive blocks until the next server push is routed to sink (spec
// §6 "async_receive"). If no push arrives before ctx is cancelled, it
// returns ctx's error.
func (e *Engine) AsyncReceive(ctx context.Context, sink resp3parse.Sink) error {
	if sink == nil {
		sink = adapter.Ignore{}
	}
	w := &pushWait{sink: sink, done: make(chan error, 1)}
	select {
	case e.pushWaits <- w:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-w.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel implements spec §4.G's two cancellation scopes (ScopeReceive is
// a third, engine-specific scope: it unblocks any callers parked in
// AsyncReceive without tearing down the connection).
func (e *Engine) Cancel(scope Scope) {
	switch scope {
	case ScopeExec:
		if errs := e.queue.CancelAll(rerrs.New(rerrs.OperationCancelled, "cancel(exec)")); !errs.Empty() {
			rlog.Warningf("engine[%s]: cancel(exec) settled: %v", e.genID, errs)
		}
	case ScopeRun:
		e.mu.Lock()
		cancel := e.runCancel
		e.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	case ScopeReceive:
		drainPushWaits(e.pushWaits, rerrs.New(rerrs.OperationCancelled, "receive cancelled"))
	}
}

func drainPushWaits(ch chan *pushWait, err error) {
	for {
		select {
		case w := <-ch:
			w.done <- err
		default:
			return
		}
	}
}
