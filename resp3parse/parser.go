// Package resp3parse implements spec §4.D: a resumable streaming state
// machine that consumes bytes incrementally and emits a pre-order sequence
// of typed events to a caller-selected Sink.
//
// Grounded on transport/pdu.go's rpdu.readHdr/stack-of-frames resumable
// read pattern: a parser that returns "not enough bytes yet" without
// consuming or corrupting partial input, preserving all state for the next
// call.
package resp3parse

import (
	"bytes"

	"github.com/ais-wire/resp3/rerrs"
	"github.com/ais-wire/resp3/wire"
)

// Event is the transient tuple spec §3 describes: delivered to a Sink,
// never retained by the parser itself.
type Event struct {
	Kind             wire.Kind
	AggregateSize    int
	Depth            int
	Payload          []byte
	VerbatimEncoding string
	// Err is set before delivery when Kind is SimpleError or BlobError
	// (spec §4.D "Errors signalling to adapters"), letting scalar-shaped
	// sinks short-circuit without inspecting Kind themselves.
	Err error
}

// Sink receives parse events. Returning a non-nil error marks this reply's
// projection as failed; the parser keeps consuming structurally (to stay
// byte-aligned with the stream) but stops delivering further events for
// this reply to a failed sink.
type Sink interface {
	Feed(ev Event) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event) error

func (f SinkFunc) Feed(ev Event) error { return f(ev) }

// SinkSelector is invoked exactly once per reply, as soon as the parser
// knows the reply's root Kind (after any leading attribute has been
// transparently consumed) — letting the caller route pushes to one sink
// and ordinary replies to another without peeking at the wire itself
// (spec §4.G "the push adapter if the next element's kind is push").
type SinkSelector func(rootKind wire.Kind) Sink

// Result is Consume's outcome for the current call.
type Result int

const (
	NeedsMore Result = iota
	ReplyComplete
	ParseError
)

func (r Result) String() string {
	switch r {
	case NeedsMore:
		return "needs_more"
	case ReplyComplete:
		return "reply_complete"
	default:
		return "error"
	}
}

type frame struct {
	remaining int
	depth     int
	isAttr    bool
}

type streamState struct {
	depth int
	buf   []byte
}

// Parser is a single-reply-at-a-time resumable state machine. It is not
// safe for concurrent use; the connection engine serializes access to it
// on its single reader task, matching spec §5's single-threaded model.
type Parser struct {
	buf       []byte
	stack     []frame
	streaming *streamState
	consumed  int64

	lastAttrs []wire.Node

	// The following three fields hold the in-progress reply's routing
	// decision. They must survive across Consume calls: once a root
	// element has been classified (attribute vs real reply) and, for a
	// real reply, selectSink has been asked once, every subsequent event
	// for that same reply — even ones delivered on a later Consume call
	// after a NeedsMore — must keep going to the same sink. They are
	// reset to zero only when a brand new root element starts (both
	// p.stack and p.streaming empty).
	curSink    Sink
	curCapture *errCapture
	curIsAttr  bool
}

func New() *Parser { return &Parser{} }

// LastAttributes returns the attribute nodes collected immediately before
// the most recently completed reply, or nil if none preceded it. Spec §9
// treats attributes as transparent side-metadata on the next reply rather
// than events delivered to the primary sink.
func (p *Parser) LastAttributes() []wire.Node { return p.lastAttrs }

const maxLineBytes = 64 * 1024

var crlf = []byte("\r\n")

// Consume appends data to the parser's residual buffer and makes as much
// progress as possible toward completing one reply. It returns NeedsMore
// without consuming anything further once bytes run out — all state
// (frame stack, partially-read streamed string, residual bytes) survives
// for the next call, which is what makes repeated Consume calls over an
// arbitrarily split byte stream produce the same event sequence as one
// call over the whole thing (spec §8 property 2).
func (p *Parser) Consume(data []byte, selectSink SinkSelector) (Result, error) {
	if len(data) > 0 {
		p.buf = append(p.buf, data...)
	}

	for {
		if p.streaming != nil {
			progressed, err := p.continueStreamedString(p.curSink)
			if err != nil {
				return ParseError, err
			}
			if !progressed {
				return NeedsMore, nil
			}
			if done, result := p.replyDone(p.curIsAttr); done {
				return result, p.finishReply()
			}
			continue
		}

		var depth int
		if n := len(p.stack); n > 0 {
			top := p.stack[n-1]
			depth = top.depth + 1
			p.curIsAttr = top.isAttr
		} else if p.curSink != nil && !p.curIsAttr {
			// A real reply's root element was classified on an earlier
			// call but its line or payload was still incomplete: resume
			// with the same routing instead of asking selectSink again.
			depth = 0
		} else {
			// Starting a brand new root element: peek the discriminant
			// byte to decide whether this is a transparent attribute
			// prefix or the real reply, and — only for the real reply —
			// ask the caller which sink should receive it. This
			// classification, once made, is pinned on the Parser (not a
			// local variable) so it survives a NeedsMore return and keeps
			// routing every later event of this same reply correctly.
			if len(p.buf) == 0 {
				return NeedsMore, nil
			}
			kind := wire.FromWireByte(p.buf[0])
			if kind == wire.Invalid {
				return ParseError, rerrs.AtOffset(rerrs.ProtocolError, p.consumed,
					"unknown discriminant byte %q", p.buf[0])
			}
			if kind == wire.Attribute {
				p.curIsAttr = true
				p.lastAttrs = nil
				p.curSink, p.curCapture = discard{}, nil
			} else {
				// Keep the attribute nodes if an attribute subtree closed
				// just before this root; otherwise none preceded it.
				if !p.curIsAttr {
					p.lastAttrs = nil
				}
				p.curIsAttr = false
				chosen := selectSink(kind)
				if chosen == nil {
					chosen = discard{}
				}
				p.curCapture = &errCapture{inner: chosen}
				p.curSink = p.curCapture
			}
			depth = 0
		}

		progressed, err := p.step(depth, p.curIsAttr, p.curSink)
		if err != nil {
			return ParseError, err
		}
		if !progressed {
			return NeedsMore, nil
		}
		if done, result := p.replyDone(p.curIsAttr); done {
			return result, p.finishReply()
		}
	}
}

// finishReply returns the captured sink error (if any) for the reply
// that just completed and clears the routing state so the next Consume
// loop iteration's "stack empty" branch re-classifies the next root
// element instead of reusing stale routing.
func (p *Parser) finishReply() error {
	err := p.curCapture.errOrNil()
	p.curSink, p.curCapture, p.curIsAttr = nil, nil, false
	return err
}

// replyDone reports whether the stack emptying just now means a full
// reply is complete (as opposed to an attribute subtree closing, which
// just means the real reply parse should begin next).
func (p *Parser) replyDone(collectingAttr bool) (bool, Result) {
	if len(p.stack) != 0 || p.streaming != nil {
		return false, NeedsMore
	}
	if collectingAttr {
		return false, NeedsMore
	}
	return true, ReplyComplete
}

// step parses exactly one wire element at depth, delivering it to sink,
// and updates the frame stack accordingly (spec §4.D steps 2-5).
func (p *Parser) step(depth int, isAttr bool, sink Sink) (bool, error) {
	line, n, ok := readLine(p.buf)
	if !ok {
		if len(p.buf) > maxLineBytes {
			return false, rerrs.AtOffset(rerrs.ProtocolError, p.consumed, "line exceeds maximum length")
		}
		return false, nil
	}
	if len(line) == 0 {
		return false, rerrs.AtOffset(rerrs.ProtocolError, p.consumed, "empty line")
	}
	kind := wire.FromWireByte(line[0])
	if kind == wire.Invalid {
		return false, rerrs.AtOffset(rerrs.ProtocolError, p.consumed, "unknown discriminant byte %q", line[0])
	}
	rest := line[1:]

	if wire.IsAggregate(kind) {
		cnt, perr := parseDecimalInt(rest)
		if perr != nil {
			return false, rerrs.AtOffset(rerrs.ProtocolError, p.consumed, "bad aggregate count %q: %v", rest, perr)
		}
		p.advance(n)
		feed(sink, Event{Kind: kind, AggregateSize: int(cnt), Depth: depth})
		if cnt > 0 {
			p.stack = append(p.stack, frame{remaining: int(cnt) * wire.ChildMultiplicity(kind), depth: depth, isAttr: isAttr})
		} else {
			p.closeElement()
		}
		if isAttr {
			p.recordAttr(Event{Kind: kind, AggregateSize: int(cnt), Depth: depth})
		}
		return true, nil
	}

	switch kind {
	case wire.SimpleString, wire.Number, wire.Double, wire.Boolean, wire.BigNumber, wire.Null:
		p.advance(n)
		payload := cloneBytes(rest)
		ev := Event{Kind: kind, AggregateSize: 1, Depth: depth, Payload: payload}
		p.deliverSimple(ev, isAttr, sink)
		return true, nil

	case wire.SimpleError:
		p.advance(n)
		payload := cloneBytes(rest)
		ev := Event{Kind: kind, AggregateSize: 1, Depth: depth, Payload: payload, Err: rerrs.ServerReply(payload)}
		p.deliverSimple(ev, isAttr, sink)
		return true, nil

	case wire.BlobString, wire.BlobError, wire.VerbatimString:
		if kind == wire.BlobString && len(rest) == 1 && rest[0] == '?' {
			p.advance(n)
			p.streaming = &streamState{depth: depth}
			return true, nil
		}
		ln, perr := parseDecimalInt(rest)
		if perr != nil {
			return false, rerrs.AtOffset(rerrs.ProtocolError, p.consumed, "bad bulk length %q: %v", rest, perr)
		}
		body, bn, ok, berr := readExact(p.buf[n:], int(ln))
		if berr != nil {
			return false, rerrs.AtOffset(rerrs.ProtocolError, p.consumed+int64(n), "%v", berr)
		}
		if !ok {
			if len(p.buf) > maxLineBytes+int(ln) {
				return false, rerrs.AtOffset(rerrs.ProtocolError, p.consumed, "bulk payload exceeds maximum buffered size")
			}
			return false, nil
		}
		payload := cloneBytes(body)
		var encoding string
		if kind == wire.VerbatimString {
			if len(payload) < 4 || payload[3] != ':' {
				return false, rerrs.AtOffset(rerrs.ProtocolError, p.consumed, "malformed verbatim string encoding prefix")
			}
			encoding = string(payload[:3])
			payload = payload[4:]
		}
		p.advance(n + bn)
		ev := Event{Kind: kind, AggregateSize: 1, Depth: depth, Payload: payload, VerbatimEncoding: encoding}
		if kind == wire.BlobError {
			ev.Err = rerrs.ServerReply(payload)
		}
		p.deliverSimple(ev, isAttr, sink)
		return true, nil

	default:
		return false, rerrs.AtOffset(rerrs.ProtocolError, p.consumed, "unexpected kind %s at element position", kind)
	}
}

func (p *Parser) deliverSimple(ev Event, isAttr bool, sink Sink) {
	feed(sink, ev)
	if isAttr {
		p.recordAttr(ev)
	}
	p.closeElement()
}

func (p *Parser) recordAttr(ev Event) {
	p.lastAttrs = append(p.lastAttrs, wire.Node{
		Kind: ev.Kind, AggregateSize: ev.AggregateSize, Depth: ev.Depth,
		Payload: ev.Payload, VerbatimEncoding: ev.VerbatimEncoding,
	})
}

func (p *Parser) continueStreamedString(sink Sink) (bool, error) {
	line, n, ok := readLine(p.buf)
	if !ok {
		if len(p.buf) > maxLineBytes {
			return false, rerrs.AtOffset(rerrs.ProtocolError, p.consumed, "streamed-string chunk header too long")
		}
		return false, nil
	}
	if len(line) == 0 || line[0] != ';' {
		return false, rerrs.AtOffset(rerrs.ProtocolError, p.consumed, "expected streamed-string chunk marker")
	}
	ln, perr := parseDecimalInt(line[1:])
	if perr != nil {
		return false, rerrs.AtOffset(rerrs.ProtocolError, p.consumed, "bad chunk length %q: %v", line[1:], perr)
	}
	if ln == 0 {
		p.advance(n)
		st := p.streaming
		p.streaming = nil
		ev := Event{Kind: wire.StreamedStringPart, AggregateSize: 1, Depth: st.depth, Payload: st.buf}
		feed(sink, ev)
		p.closeElement()
		return true, nil
	}
	body, bn, ok, berr := readExact(p.buf[n:], int(ln))
	if berr != nil {
		return false, rerrs.AtOffset(rerrs.ProtocolError, p.consumed+int64(n), "%v", berr)
	}
	if !ok {
		return false, nil
	}
	p.streaming.buf = append(p.streaming.buf, body...)
	p.advance(n + bn)
	return true, nil
}

// closeElement decrements the innermost open frame's remaining count and
// cascades pops up the stack when a frame fully closes, exactly spec
// §4.D step 4's "decrement the top frame's remaining_children; while the
// top reaches 0, pop".
func (p *Parser) closeElement() {
	for len(p.stack) > 0 {
		top := len(p.stack) - 1
		p.stack[top].remaining--
		if p.stack[top].remaining > 0 {
			return
		}
		p.stack = p.stack[:top]
	}
}

func (p *Parser) advance(n int) {
	p.buf = p.buf[n:]
	p.consumed += int64(n)
}

func feed(sink Sink, ev Event) {
	if sink == nil {
		return
	}
	_ = sink.Feed(ev)
}

type discard struct{}

func (discard) Feed(Event) error { return nil }

// errCapture wraps a caller sink: once it returns an error, further events
// in this reply are swallowed (parsing keeps going structurally) and the
// first error is surfaced to Consume's caller at ReplyComplete.
type errCapture struct {
	inner Sink
	err   error
}

func (e *errCapture) Feed(ev Event) error {
	if e.err != nil {
		return nil
	}
	if err := e.inner.Feed(ev); err != nil {
		e.err = err
	}
	return nil
}

// errOrNil lets Consume call this on a possibly-nil *errCapture (the attr
// collector path never creates one) without a nil check at every call site.
func (e *errCapture) errOrNil() error {
	if e == nil {
		return nil
	}
	return e.err
}

func readLine(buf []byte) (line []byte, n int, ok bool) {
	idx := bytes.Index(buf, crlf)
	if idx < 0 {
		return nil, 0, false
	}
	return buf[:idx], idx + 2, true
}

// readExact reads exactly ln bytes followed by \r\n from buf. ok is false
// (err nil) when buf doesn't yet hold enough bytes; err is non-nil when
// enough bytes exist but the terminator is malformed.
func readExact(buf []byte, ln int) (body []byte, n int, ok bool, err error) {
	need := ln + 2
	if len(buf) < need {
		return nil, 0, false, nil
	}
	if buf[ln] != '\r' || buf[ln+1] != '\n' {
		return nil, 0, false, rerrs.New(rerrs.ProtocolError, "malformed bulk terminator")
	}
	return buf[:ln], need, true, nil
}

func parseDecimalInt(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, rerrs.New(rerrs.ProtocolError, "empty numeric field")
	}
	var n int64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, rerrs.New(rerrs.ProtocolError, "non-digit byte %q in numeric field", c)
		}
		n = n*10 + int64(c-'0')
	}
	return n, nil
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return []byte{}
	}
	return append([]byte(nil), b...)
}
