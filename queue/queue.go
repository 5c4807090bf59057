// Package queue implements spec §4.F: a slice-backed ordered queue of
// staged requests, the coalescing rule for the writer task, and the
// state machine each entry moves through before its completion signal
// fires.
//
// Grounded on transport/sendmsg.go's mutex-protected work queue and
// offset bookkeeping (msgoff), generalized from "track how much of one
// outgoing message has been written" to "track which requests are
// eligible to share the next write and which command tags within the
// head entry remain unanswered".
package queue

import (
	"sync"

	"github.com/ais-wire/resp3/internal/rdebug"
	"github.com/ais-wire/resp3/rerrs"
	"github.com/ais-wire/resp3/resp3"
	"github.com/ais-wire/resp3/resp3parse"
)

// State is an entry's position in spec §3's "Request queue entry" state
// machine: staged → written → done | cancelled | failed.
type State int

const (
	Staged State = iota
	Written
	Done
	Cancelled
	Failed
)

func (s State) String() string {
	switch s {
	case Staged:
		return "staged"
	case Written:
		return "written"
	case Done:
		return "done"
	case Cancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// Entry is spec §3's "Request queue entry": `{request, adapter_for_each_
// command, completion_signal, state, bytes_written_so_far}`.
type Entry struct {
	Request      *resp3.Request
	Sink         resp3parse.Sink
	State        State
	BytesWritten int

	remainingTags int
	done          chan struct{}
	err           error
	once          sync.Once
	// cancelledEarly is set by Cancel on an already-Written entry: the
	// engine must keep draining its replies to stay byte-aligned, so
	// State remains Written (HeadAwaitingReply keeps returning it) while
	// the caller's wait is already satisfied via settle below.
	cancelledEarly bool
}

// Handle is the opaque reference a caller retains after Stage, used to
// request cancellation later.
type Handle struct {
	entry *Entry
}

// Done returns a channel closed once the entry settles (Done, Cancelled,
// or Failed). Callers await it cooperatively, matching spec §5's
// "suspension point: awaiting a reply".
func (h *Handle) Done() <-chan struct{} { return h.entry.done }

// Err returns the settlement error, or nil on success. Only meaningful
// after Done() has fired.
func (h *Handle) Err() error { return h.entry.err }

func (e *Entry) settle(state State, err error) {
	e.once.Do(func() {
		e.State = state
		e.err = err
		close(e.done)
	})
}

// settleKeepState closes the completion signal and records err without
// moving State, used when Cancel targets an already-Written entry: the
// engine still needs HeadAwaitingReply to see State==Written so it keeps
// draining the entry's replies off the wire.
func (e *Entry) settleKeepState(err error) {
	e.once.Do(func() {
		e.err = err
		close(e.done)
	})
}

// Queue is the ordered list of entries shared by the engine's writer and
// reader tasks. All methods assume single-threaded access from the
// engine's own goroutine except Stage and Cancel, which user tasks call
// concurrently — hence the mutex, unlike the teacher's single-reader
// workCh which sidesteps the issue by construction.
type Queue struct {
	mu      sync.Mutex
	entries []*Entry
	signal  chan struct{}
}

func New() *Queue { return &Queue{signal: make(chan struct{}, 1)} }

// Wait returns a channel that receives a value shortly after a Stage call
// makes new bytes stageable — the writer task's "queue has stageable
// bytes" condition from spec §4.G, implemented as a single-slot
// notification channel rather than a condition variable since Go's
// stdlib has no cross-goroutine condvar that composes with select/ctx.
func (q *Queue) Wait() <-chan struct{} { return q.signal }

func (q *Queue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Stage appends req in the Staged state, bound to sink (spec §4.F
// "stage"). The entry owes one reply per command tag the request carries
// (resp3.Request.NumCommands()); AdvanceCommand consumes one per
// completed reply.
func (q *Queue) Stage(req *resp3.Request, sink resp3parse.Sink) *Handle {
	e := &Entry{
		Request:       req,
		Sink:          sink,
		State:         Staged,
		remainingTags: req.NumCommands(),
		done:          make(chan struct{}),
	}
	q.mu.Lock()
	q.entries = append(q.entries, e)
	q.mu.Unlock()
	q.wake()
	return &Handle{entry: e}
}

// FrontToWrite returns the concatenated bytes of every adjacent Staged
// entry at the front of the queue whose Request.Config().Coalesce is true
// (and whose predecessor in the run also coalesces), marking them Written
// (spec §4.F "front_to_write"). The head-of-line rule: if the current
// head is already Written (awaiting replies), nothing coalesces across
// it — front_to_write returns nil until the head advances past Written.
//
// maxBytes caps how many bytes get coalesced into this one batch; 0 means
// unbounded. The first entry is always included even if it alone exceeds
// maxBytes, since a batch can never shrink below one whole request.
func (q *Queue) FrontToWrite(maxBytes int) []byte {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 || q.entries[0].State != Staged {
		return nil
	}

	var buf []byte
	for i, e := range q.entries {
		if e.State != Staged {
			break
		}
		if i > 0 && maxBytes > 0 && len(buf)+len(e.Request.Bytes()) > maxBytes {
			break
		}
		if i > 0 && !e.Request.Config().Coalesce {
			break
		}
		buf = append(buf, e.Request.Bytes()...)
		e.State = Written
		if !e.Request.Config().Coalesce {
			break
		}
	}
	return buf
}

// HeadAwaitingReply returns the first Written entry still owed replies,
// or nil (spec §4.F "head_awaiting_reply").
func (q *Queue) HeadAwaitingReply() *Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return nil
	}
	head := q.entries[0]
	if head.State != Written {
		return nil
	}
	return head
}

// AdvanceCommand marks one command tag of the head entry consumed; once
// every tag of the head is accounted for, it pops the head and signals
// completion (spec §4.F "advance_command").
func (q *Queue) AdvanceCommand(replyErr error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return
	}
	head := q.entries[0]
	rdebug.Assertf(head.State == Written, "advance_command on non-written head (state=%s)", head.State)
	head.remainingTags--
	if replyErr != nil && head.err == nil {
		head.err = replyErr
	}
	if head.remainingTags > 0 {
		return
	}
	q.entries = q.entries[1:]
	switch {
	case head.cancelledEarly:
		head.State = Cancelled
	case head.err != nil:
		head.settle(Failed, head.err)
	default:
		head.settle(Done, nil)
	}
	// Popping the head may unblock entries staged behind it that missed
	// the writer's last FrontToWrite batch (head-of-line: FrontToWrite
	// returns nil while the old head is still Written).
	q.wake()
}

// Cancel cancels handle's entry (spec §4.F "cancel"). If the entry is
// still Staged, it is removed outright. If it is already Written, the
// engine must keep consuming its replies to stay byte-aligned (silent
// cancellation is not honored for in-flight writes): Cancel marks the
// entry so the reader discards its events but still calls
// AdvanceCommand per reply, and the caller's wait is satisfied
// immediately regardless.
func (q *Queue) Cancel(h *Handle, reason error) {
	q.mu.Lock()
	e := h.entry
	staged := e.State == Staged
	if staged {
		for i, other := range q.entries {
			if other == e {
				q.entries = append(q.entries[:i], q.entries[i+1:]...)
				break
			}
		}
	} else {
		e.cancelledEarly = true
		e.Sink = discardSink{}
	}
	q.mu.Unlock()

	cancelErr := rerrs.New(rerrs.OperationCancelled, "%v", reason)
	if staged {
		e.settle(Cancelled, cancelErr)
	} else {
		e.settleKeepState(cancelErr)
	}
}

// CancelAll cancels every entry regardless of policy — spec §4.G
// "cancel(exec)": staged entries are removed immediately; written entries
// keep draining their in-flight replies (same discard-and-signal
// treatment as Cancel) so the byte stream stays aligned and the
// connection remains usable afterwards. Returns the collected
// cancellation errors.
func (q *Queue) CancelAll(reason error) *rerrs.Errs {
	q.mu.Lock()
	entries := q.entries
	var staged, written []*Entry
	for _, e := range entries {
		if e.State == Staged {
			staged = append(staged, e)
		} else {
			written = append(written, e)
			e.cancelledEarly = true
			e.Sink = discardSink{}
		}
	}
	q.entries = written
	q.mu.Unlock()

	var errs rerrs.Errs
	cancelErr := rerrs.New(rerrs.OperationCancelled, "%v", reason)
	for _, e := range staged {
		e.settle(Cancelled, cancelErr)
		errs.Add(cancelErr)
	}
	for _, e := range written {
		e.settleKeepState(cancelErr)
		errs.Add(cancelErr)
	}
	return &errs
}

// DrainOnDisconnect walks every remaining entry: if its request opts into
// CancelIfUnresponsive, it settles with Cancelled now; otherwise it is
// left Staged for AsyncRun's reconnect replay (spec §4.F
// "drain_on_disconnect"). Returns the collected cancellation errors.
func (q *Queue) DrainOnDisconnect() *rerrs.Errs {
	q.mu.Lock()
	defer q.mu.Unlock()

	var errs rerrs.Errs
	kept := q.entries[:0]
	for _, e := range q.entries {
		if e.Request.Config().CancelIfUnresponsive {
			err := rerrs.New(rerrs.TransportLost, "connection lost before reply")
			e.settle(Cancelled, err)
			errs.Add(err)
			continue
		}
		e.State = Staged
		e.BytesWritten = 0
		kept = append(kept, e)
	}
	q.entries = kept
	return &errs
}

// Len reports the number of entries currently queued, staged or written.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

type discardSink struct{}

func (discardSink) Feed(resp3parse.Event) error { return nil }
