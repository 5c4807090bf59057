package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ais-wire/resp3/adapter"
	"github.com/ais-wire/resp3/engine"
	"github.com/ais-wire/resp3/rconfig"
)

func TestConnectionExecRoundTrip(t *testing.T) {
	clientConn, server := net.Pipe()
	defer server.Close()
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := server.Read(buf)
			if err != nil {
				return
			}
			if n > 0 {
				server.Write([]byte("+PONG\r\n"))
			}
		}
	}()

	dial := func(ctx context.Context) (net.Conn, error) { return clientConn, nil }
	cfg := rconfig.Default()
	cfg.HealthCheckCommand = ""
	cfg.HealthCheckInterval = 0
	conn := New(dial, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go conn.Run(ctx)

	sink := adapter.StringScalar()
	execCtx, execCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer execCancel()
	if err := conn.Exec(execCtx, Command("PING"), sink); err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if sink.Value != "PONG" {
		t.Fatalf("expected PONG, got %q", sink.Value)
	}

	conn.Cancel(engine.ScopeRun)
}
