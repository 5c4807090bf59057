package resp3parse_test

import (
	"math/rand"
	"testing"

	"github.com/ais-wire/resp3/resp3parse"
	"github.com/ais-wire/resp3/wire"
)

// collect runs full through a fresh Parser fed in arbitrary slices and
// returns the flattened event sequence, proving spec §8 property 2:
// identical events regardless of how the caller chunks the input.
func collect(t *testing.T, full []byte, splits []int) []resp3parse.Event {
	t.Helper()
	p := resp3parse.New()
	var got []resp3parse.Event
	sel := func(wire.Kind) resp3parse.Sink {
		return resp3parse.SinkFunc(func(ev resp3parse.Event) error {
			cp := ev
			cp.Payload = append([]byte(nil), ev.Payload...)
			got = append(got, cp)
			return nil
		})
	}

	start := 0
	var lastRes resp3parse.Result
	for _, cut := range append(splits, len(full)) {
		if cut < start {
			continue
		}
		res, err := p.Consume(full[start:cut], sel)
		if err != nil {
			t.Fatalf("consume chunk [%d:%d]: %v", start, cut, err)
		}
		lastRes = res
		start = cut
	}
	if lastRes != resp3parse.ReplyComplete {
		t.Fatalf("expected ReplyComplete after full input, got %v", lastRes)
	}
	return got
}

func TestResumabilityAcrossArbitrarySplits(t *testing.T) {
	full := []byte("*4\r\n$3\r\nfoo\r\n%1\r\n$1\r\nk\r\n$1\r\nv\r\n$?\r\n;3\r\nabc\r\n;2\r\nde\r\n;0\r\n:42\r\n")
	baseline := collect(t, full, nil)

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 50; trial++ {
		n := len(full)
		cuts := map[int]bool{}
		numCuts := rng.Intn(6)
		for i := 0; i < numCuts; i++ {
			cuts[1+rng.Intn(n-1)] = true
		}
		splits := make([]int, 0, len(cuts))
		for c := range cuts {
			splits = append(splits, c)
		}
		for i := 0; i < len(splits); i++ {
			for j := i + 1; j < len(splits); j++ {
				if splits[j] < splits[i] {
					splits[i], splits[j] = splits[j], splits[i]
				}
			}
		}

		got := collect(t, full, splits)
		if len(got) != len(baseline) {
			t.Fatalf("trial %d splits=%v: got %d events, want %d", trial, splits, len(got), len(baseline))
		}
		for i := range baseline {
			if got[i].Kind != baseline[i].Kind || got[i].Depth != baseline[i].Depth ||
				got[i].AggregateSize != baseline[i].AggregateSize || string(got[i].Payload) != string(baseline[i].Payload) {
				t.Fatalf("trial %d splits=%v: event %d mismatch: got %+v want %+v", trial, splits, i, got[i], baseline[i])
			}
		}
	}
}

func TestResumabilityByteAtATime(t *testing.T) {
	full := []byte("~2\r\n+a\r\n+b\r\n")
	splits := make([]int, 0, len(full)-1)
	for i := 1; i < len(full); i++ {
		splits = append(splits, i)
	}
	got := collect(t, full, splits)
	if len(got) != 3 {
		t.Fatalf("expected 3 events (set header + 2 members), got %d", len(got))
	}
	if got[0].Kind != wire.Set || got[0].AggregateSize != 2 {
		t.Fatalf("unexpected header event: %+v", got[0])
	}
}
