package engine

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ais-wire/resp3/adapter"
	"github.com/ais-wire/resp3/rconfig"
	"github.com/ais-wire/resp3/resp3"
)

// fakeServer is a minimal RESP3 peer over a net.Pipe, answering every
// read with +PONG whatever the command, for exercising AsyncRun's
// writer/reader loop without a real socket.
func fakeServer(t *testing.T, conn net.Conn) {
	t.Helper()
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				return
			}
			if n > 0 {
				if _, err := conn.Write([]byte("+PONG\r\n")); err != nil {
					return
				}
			}
		}
	}()
}

func newTestEngine(t *testing.T) (*Engine, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	fakeServer(t, server)

	dialed := false
	dial := func(ctx context.Context) (net.Conn, error) {
		if dialed {
			return nil, context.Canceled
		}
		dialed = true
		return client, nil
	}

	cfg := rconfig.Default()
	cfg.HealthCheckCommand = ""
	cfg.HealthCheckInterval = 0
	e := New(dial, cfg)
	return e, server
}

func TestAsyncExecRoundTrip(t *testing.T) {
	e, server := newTestEngine(t)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- e.AsyncRun(ctx) }()

	req := resp3.NewRequest()
	req.Push("PING")
	sink := adapter.StringScalar()

	execCtx, execCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer execCancel()
	if err := e.AsyncExec(execCtx, req, sink); err != nil {
		t.Fatalf("AsyncExec failed: %v", err)
	}
	if sink.Value != "PONG" {
		t.Fatalf("expected PONG, got %q", sink.Value)
	}

	e.Cancel(ScopeRun)
	select {
	case <-runDone:
	case <-time.After(2 * time.Second):
		t.Fatal("AsyncRun did not return after cancel(run)")
	}
}

func TestAsyncExecFailsFastWhenNotConnected(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	defer client.Close()

	dial := func(ctx context.Context) (net.Conn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	e := New(dial, rconfig.Default())

	req := resp3.NewRequest()
	req.Push("GET")
	req.Config().CancelIfNotConnected = true

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := e.AsyncExec(ctx, req, adapter.Ignore{}); err == nil {
		t.Fatal("expected error from not-connected/cancelled exec")
	}
}

func TestCancelExecSettlesQueuedEntries(t *testing.T) {
	e, server := newTestEngine(t)
	defer server.Close()

	req := resp3.NewRequest()
	req.Push("GET")
	h := e.queue.Stage(req, adapter.Ignore{})

	e.Cancel(ScopeExec)

	select {
	case <-h.Done():
	default:
		t.Fatal("expected cancel(exec) to settle the staged entry")
	}
}
