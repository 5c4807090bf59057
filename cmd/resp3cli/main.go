// Command resp3cli is a thin smoke client: connect, send one command,
// print the reply. Not a full interactive shell — command-name
// enumeration and reply post-processing are out of scope (see
// SPEC_FULL.md); this just proves the wire end to end.
/*
 * Grounded on cmd/xmeta/xmeta.go's flag-driven single-file main style.
 */
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ais-wire/resp3/adapter"
	"github.com/ais-wire/resp3/client"
	"github.com/ais-wire/resp3/rconfig"
	"github.com/ais-wire/resp3/resp3"
)

var flags struct {
	addr    string
	timeout time.Duration
	dump    bool
}

const helpMsg = `Build:
	go install ./cmd/resp3cli

Examples:
	resp3cli -addr=localhost:6379 PING
	resp3cli -addr=localhost:6379 -dump CLIENT INFO
`

func main() {
	flag.StringVar(&flags.addr, "addr", "localhost:6379", "host:port to dial")
	flag.DurationVar(&flags.timeout, "timeout", 5*time.Second, "reply deadline")
	flag.BoolVar(&flags.dump, "dump", false, "dump the reply tree as JSON instead of a scalar")
	flag.Usage = func() { fmt.Fprint(os.Stderr, helpMsg) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(args[0], args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "resp3cli:", err)
		os.Exit(1)
	}
}

func run(cmd string, args []string) error {
	conn := client.New(client.Dial("tcp", flags.addr), rconfig.Default())

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	runErr := make(chan error, 1)
	go func() { runErr <- conn.Run(runCtx) }()

	elems := make([]resp3.Elem, len(args))
	for i, a := range args {
		elems[i] = a
	}

	execCtx, cancel := context.WithTimeout(context.Background(), flags.timeout)
	defer cancel()

	if flags.dump {
		tree := adapter.NewTree()
		if err := conn.Exec(execCtx, client.Command(cmd, elems...), tree); err != nil {
			return err
		}
		out, err := tree.DumpJSON()
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	sink := adapter.StringScalar()
	if err := conn.Exec(execCtx, client.Command(cmd, elems...), sink); err != nil {
		return err
	}
	fmt.Println(sink.Value)
	return nil
}
