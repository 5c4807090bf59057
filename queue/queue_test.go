package queue

import (
	"testing"

	"github.com/ais-wire/resp3/adapter"
	"github.com/ais-wire/resp3/resp3"
)

func TestStageAndFrontToWriteCoalesces(t *testing.T) {
	q := New()
	r1 := resp3.NewRequest()
	r1.Push("PING")
	r2 := resp3.NewRequest()
	r2.Push("PING")

	q.Stage(r1, adapter.Ignore{})
	q.Stage(r2, adapter.Ignore{})

	got := q.FrontToWrite(0)
	want := string(r1.Bytes()) + string(r2.Bytes())
	if string(got) != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if q.entries[0].State != Written || q.entries[1].State != Written {
		t.Fatal("expected both entries marked Written")
	}
}

func TestFrontToWriteStopsAtNonCoalescing(t *testing.T) {
	q := New()
	r1 := resp3.NewRequest()
	r1.Push("PING")
	r1.Config().Coalesce = false
	r2 := resp3.NewRequest()
	r2.Push("PING")

	q.Stage(r1, adapter.Ignore{})
	q.Stage(r2, adapter.Ignore{})

	got := q.FrontToWrite(0)
	if string(got) != string(r1.Bytes()) {
		t.Fatalf("expected only first request's bytes, got %q", got)
	}
	if q.entries[1].State != Staged {
		t.Fatal("expected second entry to remain staged")
	}
}

func TestFrontToWriteHeadOfLineBlocksAcrossWrittenHead(t *testing.T) {
	q := New()
	r1 := resp3.NewRequest()
	r1.Push("PING")
	q.Stage(r1, adapter.Ignore{})
	q.FrontToWrite(0) // marks r1 Written

	r2 := resp3.NewRequest()
	r2.Push("PING")
	q.Stage(r2, adapter.Ignore{})

	if got := q.FrontToWrite(0); got != nil {
		t.Fatalf("expected nil while head is Written, got %q", got)
	}
}

func TestAdvanceCommandSettlesHead(t *testing.T) {
	q := New()
	r := resp3.NewRequest()
	r.Push("PING")
	h := q.Stage(r, adapter.Ignore{})
	q.FrontToWrite(0)

	q.AdvanceCommand(nil)

	select {
	case <-h.Done():
	default:
		t.Fatal("expected handle to be settled")
	}
	if h.Err() != nil {
		t.Fatalf("expected nil error, got %v", h.Err())
	}
	if q.Len() != 0 {
		t.Fatal("expected queue empty after advancing sole entry")
	}
}

func TestCancelStagedRemovesEntry(t *testing.T) {
	q := New()
	r := resp3.NewRequest()
	r.Push("PING")
	h := q.Stage(r, adapter.Ignore{})

	q.Cancel(h, errBoom)

	select {
	case <-h.Done():
	default:
		t.Fatal("expected handle settled after cancel")
	}
	if q.Len() != 0 {
		t.Fatal("expected staged entry removed from queue")
	}
}

func TestCancelWrittenKeepsDrainingUntilAdvance(t *testing.T) {
	q := New()
	r := resp3.NewRequest()
	r.Push("PING")
	h := q.Stage(r, adapter.Ignore{})
	q.FrontToWrite(0)

	q.Cancel(h, errBoom)

	select {
	case <-h.Done():
	default:
		t.Fatal("expected caller's wait satisfied immediately")
	}
	if q.HeadAwaitingReply() == nil {
		t.Fatal("expected engine to keep seeing the written head until its reply drains")
	}

	q.AdvanceCommand(nil)
	if q.Len() != 0 {
		t.Fatal("expected entry popped after its reply drained")
	}
}

func TestDrainOnDisconnectSplitsByPolicy(t *testing.T) {
	q := New()
	keep := resp3.NewRequest()
	keep.Push("SUBSCRIBE")
	hKeep := q.Stage(keep, adapter.Ignore{})

	drop := resp3.NewRequest()
	drop.Push("GET")
	drop.Config().CancelIfUnresponsive = true
	hDrop := q.Stage(drop, adapter.Ignore{})

	errs := q.DrainOnDisconnect()
	if errs.Empty() {
		t.Fatal("expected at least one collected error")
	}
	select {
	case <-hDrop.Done():
	default:
		t.Fatal("expected CancelIfUnresponsive entry to settle")
	}
	select {
	case <-hKeep.Done():
		t.Fatal("expected survivor entry to remain unsettled for replay")
	default:
	}
	if q.Len() != 1 {
		t.Fatalf("expected one surviving entry, got %d", q.Len())
	}
}

var errBoom = testErr("boom")

type testErr string

func (e testErr) Error() string { return string(e) }
