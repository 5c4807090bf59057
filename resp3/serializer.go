// Package resp3 implements spec §4.C, the request serializer: building a
// pipeline of commands over a byte buffer, tracking one opaque command tag
// per pushed command, and carrying per-request Config.
//
// Grounded on api/daemon.go's request-building functions, generalized from
// building http.Request parameters to building RESP3 wire bytes.
package resp3

import (
	"fmt"
	"strconv"

	"github.com/ais-wire/resp3/frame"
	"github.com/ais-wire/resp3/internal/rcos"
	"github.com/ais-wire/resp3/rerrs"
)

// Request is an append-only byte buffer plus an ordered list of opaque
// command tags (one per pushed command), plus a Config (spec §3
// "Request").
type Request struct {
	buf  []byte
	tags []string
	cfg  Config
}

// NewRequest returns an empty Request with the documented default Config
// (Coalesce: true, cancellation flags: false).
func NewRequest() *Request {
	return &Request{cfg: defaultConfig()}
}

// Bytes returns the accumulated wire bytes. The engine calls this when
// flushing a write batch; callers should not mutate the returned slice.
func (r *Request) Bytes() []byte { return r.buf }

// Tags returns the command tags pushed so far, one per Push*/PushRange/
// PushKeyedRange call, in submission order.
func (r *Request) Tags() []string { return append([]string(nil), r.tags...) }

// NumCommands is len(Tags()) without the copy.
func (r *Request) NumCommands() int { return len(r.tags) }

// Config returns a pointer to the request's mutable policy record (spec
// §4.C "config()").
func (r *Request) Config() *Config { return &r.cfg }

// Elem is one argument to PushRange/PushKeyedRange. A plain value (string,
// []byte, int, int64, bool) contributes one bulk element; a Pair
// contributes two (key then value), matching spec §4.C's "for pair-valued
// inputs, each element contributes two bulks" rule — multiplicity is
// discovered per element via the Pair type, not a runtime flag.
type Elem interface{}

// Pair is the per-element trait spec §4.C calls for: an Elem that is
// statically known to occupy two wire bulks instead of one. Used by
// callers building hash-set-style commands (e.g. HSET-shaped pipelines).
type Pair struct {
	Key   Elem
	Value Elem
}

func elemMultiplicity(e Elem) int {
	if _, ok := e.(Pair); ok {
		return 2
	}
	return 1
}

// Push emits one command with 1+len(args) bulk elements and records one
// command tag (spec §4.C "push").
func (r *Request) Push(cmd string, args ...Elem) *Request {
	r.buf = frame.AddHeader(r.buf, 1+len(args))
	r.buf = frame.AddBulkString(r.buf, cmd)
	for _, a := range args {
		r.buf = appendElem(r.buf, a)
	}
	r.tags = append(r.tags, rcos.GenUUID())
	return r
}

// PushRange emits `1 + child_multiplicity*len(items)` bulk elements: the
// command name followed by items, each expanded per elemMultiplicity
// (spec §4.C "push_range"). An empty items slice is a contract violation
// and returns rerrs.EmptyRange without mutating the buffer.
func (r *Request) PushRange(cmd string, items []Elem) (*Request, error) {
	if len(items) == 0 {
		return r, rerrs.New(rerrs.EmptyRange, "PushRange(%q): empty range", cmd)
	}
	n := 1
	for _, it := range items {
		n += elemMultiplicity(it)
	}
	r.buf = frame.AddHeader(r.buf, n)
	r.buf = frame.AddBulkString(r.buf, cmd)
	for _, it := range items {
		r.buf = appendRangeElem(r.buf, it)
	}
	r.tags = append(r.tags, rcos.GenUUID())
	return r, nil
}

// PushKeyedRange is PushRange with a leading key: `2 +
// child_multiplicity*len(items)` bulk elements (spec §4.C
// "push_keyed_range"). Unlike PushRange, an empty items slice is allowed —
// the key alone still makes a well-formed command (e.g. "DEL key" with no
// further args is meaningless for some commands but not for all, and the
// spec reserves the empty-range violation for the unkeyed form only).
func (r *Request) PushKeyedRange(cmd, key string, items []Elem) *Request {
	n := 2
	for _, it := range items {
		n += elemMultiplicity(it)
	}
	r.buf = frame.AddHeader(r.buf, n)
	r.buf = frame.AddBulkString(r.buf, cmd)
	r.buf = frame.AddBulkString(r.buf, key)
	for _, it := range items {
		r.buf = appendRangeElem(r.buf, it)
	}
	r.tags = append(r.tags, rcos.GenUUID())
	return r
}

func appendRangeElem(buf []byte, e Elem) []byte {
	if p, ok := e.(Pair); ok {
		buf = appendElem(buf, p.Key)
		return appendElem(buf, p.Value)
	}
	return appendElem(buf, e)
}

func appendElem(buf []byte, a Elem) []byte {
	switch v := a.(type) {
	case string:
		return frame.AddBulkString(buf, v)
	case []byte:
		return frame.AddBulk(buf, v)
	case int:
		return frame.AddBulkInt(buf, int64(v))
	case int64:
		return frame.AddBulkInt(buf, v)
	case uint64:
		return frame.AddBulkString(buf, strconv.FormatUint(v, 10))
	case bool:
		if v {
			return frame.AddBulkString(buf, "1")
		}
		return frame.AddBulkString(buf, "0")
	case fmt.Stringer:
		return frame.AddBulkString(buf, v.String())
	default:
		return frame.AddBulkString(buf, fmt.Sprint(v))
	}
}
