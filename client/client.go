// Package client is the top-level façade: a thin, function-per-concern
// wrapper over engine.Engine, grounded on api/daemon.go's style of small
// exported functions operating on a shared handle rather than a fat
// god-object. Command-name enumeration stays out of scope (same as
// spec.md) — callers build requests with resp3.NewRequest directly;
// Command is a one-line convenience for the common single-command case.
package client

import (
	"context"
	"net"

	"github.com/ais-wire/resp3/engine"
	"github.com/ais-wire/resp3/rconfig"
	"github.com/ais-wire/resp3/resp3"
	"github.com/ais-wire/resp3/resp3parse"
	"github.com/ais-wire/resp3/wire"
)

// Connection is spec §6's connection(executor): one engine instance plus
// the config it was built with. The config is kept unexported; no method
// returns it.
type Connection struct {
	eng *engine.Engine
	cfg rconfig.Config
}

// New builds a Connection around dial, which the engine calls once per
// connect/reconnect attempt.
func New(dial engine.Dialer, cfg rconfig.Config) *Connection {
	return &Connection{eng: engine.New(dial, cfg), cfg: cfg}
}

// Dial returns a Dialer wrapping a plain net.Dial-style function, for a
// caller whose transport needs no TLS or proxy setup (spec's "no TLS
// negotiation policy" — the caller supplies one if it wants one).
func Dial(network, address string) engine.Dialer {
	return func(ctx context.Context) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, network, address)
	}
}

// Run drives the connection until ctx is cancelled or cancel(run) fires
// (spec §6 "async_run"). Blocks; call it from a dedicated goroutine.
func (c *Connection) Run(ctx context.Context) error {
	return c.eng.AsyncRun(ctx)
}

// Exec stages req, routes its reply to sink, and awaits settlement (spec
// §6 "async_exec"). A nil sink discards the reply.
func (c *Connection) Exec(ctx context.Context, req *resp3.Request, sink resp3parse.Sink) error {
	return c.eng.AsyncExec(ctx, req, sink)
}

// Receive blocks until the next out-of-band push is routed to sink (spec
// §6 "async_receive").
func (c *Connection) Receive(ctx context.Context, sink resp3parse.Sink) error {
	return c.eng.AsyncReceive(ctx, sink)
}

// Cancel tears down the named scope (spec §6 "cancel(scope)").
func (c *Connection) Cancel(scope engine.Scope) {
	c.eng.Cancel(scope)
}

// NextLayer returns the borrowed socket for pre-connect operations (spec
// §6 "next_layer()"). Nil before the first successful connect.
func (c *Connection) NextLayer() net.Conn {
	return c.eng.NextLayer()
}

// LastAttributes returns the attribute nodes that preceded the most
// recently completed reply (spec §9), or nil if none did.
func (c *Connection) LastAttributes() []wire.Node {
	return c.eng.LastAttributes()
}

// Metrics exposes the connection's Prometheus collectors for a caller
// that wants to register them against its own registry.
func (c *Connection) Metrics() *engine.Metrics {
	return c.eng.Metrics()
}

// PushLog exposes the connection's in-memory push diagnostics log.
func (c *Connection) PushLog() *engine.PushLog {
	return c.eng.PushLog()
}

// Command is a one-line convenience for the overwhelmingly common case
// of a single-command request; equivalent to
// resp3.NewRequest().Push(name, args...).
func Command(name string, args ...resp3.Elem) *resp3.Request {
	return resp3.NewRequest().Push(name, args...)
}
