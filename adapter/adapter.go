// Package adapter implements spec §4.E: the closed set of sinks that
// project a parse event stream into typed caller containers. Each adapter
// is a resp3parse.Sink; the engine binds one to each staged command.
//
// Grounded on cmn/cos's generic collection helpers for the container
// variants, generalized from "project a JSON document into a typed Go
// value" to "project a pre-order parse event stream".
package adapter

import (
	"math"
	"strconv"

	"github.com/ais-wire/resp3/rerrs"
	"github.com/ais-wire/resp3/resp3parse"
	"github.com/ais-wire/resp3/wire"
)

// Scalar parses a single simple event at depth 0 into T. Aggregate input
// fails with UnexpectedType (spec §4.E "scalar(T)").
type Scalar[T any] struct {
	Value T
	parse func([]byte) (T, error)
	seen  bool
}

// NewScalar builds a Scalar bound to the given payload parser. Callers
// working with one of the built-in parseable kinds should prefer
// StringScalar/IntScalar/FloatScalar/BoolScalar instead of
// hand-rolling parse.
func NewScalar[T any](parse func([]byte) (T, error)) *Scalar[T] {
	return &Scalar[T]{parse: parse}
}

func (s *Scalar[T]) Feed(ev resp3parse.Event) error {
	if s.seen {
		return rerrs.New(rerrs.UnexpectedType, "scalar adapter fed more than one event")
	}
	if wire.IsAggregate(ev.Kind) {
		return rerrs.New(rerrs.UnexpectedType, "scalar adapter fed aggregate kind %s", ev.Kind)
	}
	if ev.Depth != 0 {
		return rerrs.New(rerrs.UnexpectedType, "scalar adapter fed non-root event at depth %d", ev.Depth)
	}
	if ev.Err != nil {
		s.seen = true
		return ev.Err
	}
	v, err := s.parse(ev.Payload)
	if err != nil {
		return rerrs.Wrap(rerrs.UnexpectedType, err, "scalar adapter: payload parse")
	}
	s.Value = v
	s.seen = true
	return nil
}

// OptionalScalar is Scalar, but a Null event yields an absent value
// instead of attempting to parse it (spec §4.E "optional_scalar(T)").
type OptionalScalar[T any] struct {
	Value T
	Valid bool
	parse func([]byte) (T, error)
	seen  bool
}

func NewOptionalScalar[T any](parse func([]byte) (T, error)) *OptionalScalar[T] {
	return &OptionalScalar[T]{parse: parse}
}

func (s *OptionalScalar[T]) Feed(ev resp3parse.Event) error {
	if s.seen {
		return rerrs.New(rerrs.UnexpectedType, "optional_scalar adapter fed more than one event")
	}
	s.seen = true
	if wire.IsAggregate(ev.Kind) {
		return rerrs.New(rerrs.UnexpectedType, "optional_scalar adapter fed aggregate kind %s", ev.Kind)
	}
	if ev.Depth != 0 {
		return rerrs.New(rerrs.UnexpectedType, "optional_scalar adapter fed non-root event at depth %d", ev.Depth)
	}
	if ev.Kind == wire.Null {
		return nil
	}
	if ev.Err != nil {
		return ev.Err
	}
	v, err := s.parse(ev.Payload)
	if err != nil {
		return rerrs.Wrap(rerrs.UnexpectedType, err, "optional_scalar adapter: payload parse")
	}
	s.Value = v
	s.Valid = true
	return nil
}

// Ignore accepts and discards every event. Used as the default sink for
// commands the caller doesn't care to project (spec §4.E "ignore").
type Ignore struct{}

func (Ignore) Feed(resp3parse.Event) error { return nil }

// Sequence resizes to the declared child count on the root aggregate
// event, then fills successive depth-1 positions (spec §4.E
// "sequence(T)"). Nested aggregates below the root reject with
// NestedUnsupported.
type Sequence[T any] struct {
	Items []T
	parse func([]byte) (T, error)
	root  bool
	rootD int
	next  int
}

func NewSequence[T any](parse func([]byte) (T, error)) *Sequence[T] {
	return &Sequence[T]{parse: parse}
}

func (s *Sequence[T]) Feed(ev resp3parse.Event) error {
	if !s.root {
		if !wire.IsAggregate(ev.Kind) {
			return rerrs.New(rerrs.UnexpectedType, "sequence adapter fed non-aggregate root kind %s", ev.Kind)
		}
		s.root = true
		s.rootD = ev.Depth
		n := ev.AggregateSize * wire.ChildMultiplicity(ev.Kind)
		s.Items = make([]T, n)
		return nil
	}
	if ev.Depth != s.rootD+1 {
		return rerrs.New(rerrs.NestedUnsupported, "sequence adapter: nested aggregate at depth %d", ev.Depth)
	}
	if wire.IsAggregate(ev.Kind) {
		return rerrs.New(rerrs.NestedUnsupported, "sequence adapter: nested aggregate kind %s", ev.Kind)
	}
	if ev.Err != nil {
		return ev.Err
	}
	if s.next >= len(s.Items) {
		return rerrs.New(rerrs.UnexpectedType, "sequence adapter: more children delivered than declared")
	}
	v, err := s.parse(ev.Payload)
	if err != nil {
		return rerrs.Wrap(rerrs.UnexpectedType, err, "sequence adapter: element parse")
	}
	s.Items[s.next] = v
	s.next++
	return nil
}

// LinkedSequence is Sequence for containers without random access: it
// appends instead of pre-sizing (spec §4.E "linked_sequence(T)").
type LinkedSequence[T any] struct {
	Items []T
	parse func([]byte) (T, error)
	root  bool
	rootD int
}

func NewLinkedSequence[T any](parse func([]byte) (T, error)) *LinkedSequence[T] {
	return &LinkedSequence[T]{parse: parse}
}

func (s *LinkedSequence[T]) Feed(ev resp3parse.Event) error {
	if !s.root {
		if !wire.IsAggregate(ev.Kind) {
			return rerrs.New(rerrs.UnexpectedType, "linked_sequence adapter fed non-aggregate root kind %s", ev.Kind)
		}
		s.root = true
		s.rootD = ev.Depth
		return nil
	}
	if ev.Depth != s.rootD+1 || wire.IsAggregate(ev.Kind) {
		return rerrs.New(rerrs.NestedUnsupported, "linked_sequence adapter: nested aggregate at depth %d", ev.Depth)
	}
	if ev.Err != nil {
		return ev.Err
	}
	v, err := s.parse(ev.Payload)
	if err != nil {
		return rerrs.Wrap(rerrs.UnexpectedType, err, "linked_sequence adapter: element parse")
	}
	s.Items = append(s.Items, v)
	return nil
}

// Set requires a wire.Set root; children are parsed as keys with an
// ordered-hint: callers insert in arrival order, matching the teacher's
// cuckoofilter-backed dedup insertion pattern (spec §4.E "set(K)").
type Set[K comparable] struct {
	Members map[K]struct{}
	Order   []K
	parse   func([]byte) (K, error)
	root    bool
	rootD   int
}

func NewSet[K comparable](parse func([]byte) (K, error)) *Set[K] {
	return &Set[K]{Members: make(map[K]struct{}), parse: parse}
}

func (s *Set[K]) Feed(ev resp3parse.Event) error {
	if !s.root {
		if ev.Kind != wire.Set {
			return rerrs.New(rerrs.UnexpectedType, "set adapter fed non-set root kind %s", ev.Kind)
		}
		s.root = true
		s.rootD = ev.Depth
		return nil
	}
	if ev.Depth != s.rootD+1 || wire.IsAggregate(ev.Kind) {
		return rerrs.New(rerrs.NestedUnsupported, "set adapter: nested aggregate at depth %d", ev.Depth)
	}
	if ev.Err != nil {
		return ev.Err
	}
	k, err := s.parse(ev.Payload)
	if err != nil {
		return rerrs.Wrap(rerrs.UnexpectedType, err, "set adapter: member parse")
	}
	if _, dup := s.Members[k]; !dup {
		s.Order = append(s.Order, k)
	}
	s.Members[k] = struct{}{}
	return nil
}

// Map requires a wire.Map root; children alternate key, value (spec §4.E
// "map(K,V)").
type Map[K comparable, V any] struct {
	Entries  map[K]V
	Order    []K
	parseKey func([]byte) (K, error)
	parseVal func([]byte) (V, error)
	root     bool
	rootD    int
	pendKey  K
	haveKey  bool
}

func NewMap[K comparable, V any](parseKey func([]byte) (K, error), parseVal func([]byte) (V, error)) *Map[K, V] {
	return &Map[K, V]{Entries: make(map[K]V), parseKey: parseKey, parseVal: parseVal}
}

func (m *Map[K, V]) Feed(ev resp3parse.Event) error {
	if !m.root {
		if ev.Kind != wire.Map {
			return rerrs.New(rerrs.UnexpectedType, "map adapter fed non-map root kind %s", ev.Kind)
		}
		m.root = true
		m.rootD = ev.Depth
		return nil
	}
	if ev.Depth != m.rootD+1 || wire.IsAggregate(ev.Kind) {
		return rerrs.New(rerrs.NestedUnsupported, "map adapter: nested aggregate at depth %d", ev.Depth)
	}
	if ev.Err != nil {
		return ev.Err
	}
	if !m.haveKey {
		k, err := m.parseKey(ev.Payload)
		if err != nil {
			return rerrs.Wrap(rerrs.UnexpectedType, err, "map adapter: key parse")
		}
		m.pendKey = k
		m.haveKey = true
		return nil
	}
	v, err := m.parseVal(ev.Payload)
	if err != nil {
		return rerrs.Wrap(rerrs.UnexpectedType, err, "map adapter: value parse")
	}
	if _, dup := m.Entries[m.pendKey]; !dup {
		m.Order = append(m.Order, m.pendKey)
	}
	m.Entries[m.pendKey] = v
	m.haveKey = false
	return nil
}

// Tree retains every event as a wire.Node in insertion order, the full
// pre-order view (spec §4.E "tree"). Accepts arbitrary depth, unlike
// Sequence/Set/Map.
type Tree struct {
	Nodes []wire.Node
}

func NewTree() *Tree { return &Tree{} }

func (t *Tree) Feed(ev resp3parse.Event) error {
	t.Nodes = append(t.Nodes, wire.Node{
		Kind:             ev.Kind,
		AggregateSize:    ev.AggregateSize,
		Depth:            ev.Depth,
		Payload:          ev.Payload,
		VerbatimEncoding: ev.VerbatimEncoding,
	})
	return nil
}

// Root is the first node recorded, or the zero Node if Feed was never
// called.
func (t *Tree) Root() wire.Node {
	if len(t.Nodes) == 0 {
		return wire.Node{}
	}
	return t.Nodes[0]
}

// Composite is a fixed-arity tuple of per-command adapters, advanced one
// at a time as each command's reply completes (spec §4.E "composite
// tuple"). The connection engine, not Composite itself, is responsible
// for calling Next after ReplyComplete — Composite's Feed here exists only
// so Composite can itself be handed to Consume as a convenience when a
// caller wants a single object representing "the sinks for this
// pipeline".
type Composite struct {
	Sinks []resp3parse.Sink
	idx   int
}

func NewComposite(sinks ...resp3parse.Sink) *Composite {
	return &Composite{Sinks: sinks}
}

func (c *Composite) Feed(ev resp3parse.Event) error {
	if c.idx >= len(c.Sinks) {
		return rerrs.New(rerrs.UnexpectedType, "composite adapter: more replies delivered than bound sinks")
	}
	return c.Sinks[c.idx].Feed(ev)
}

// Next advances to the next bound sink, called by the engine once the
// current command's reply completes.
func (c *Composite) Next() {
	if c.idx < len(c.Sinks) {
		c.idx++
	}
}

// Done reports whether every bound sink has received its reply.
func (c *Composite) Done() bool { return c.idx >= len(c.Sinks) }

// ParseString, ParseInt, ParseFloat, and ParseBool are the built-in
// payload parsers used by the String/Int/Float/Bool adapter constructors
// below; exported so callers composing their own Scalar[T] can reuse
// them.
func ParseString(b []byte) (string, error) { return string(b), nil }

func ParseBytes(b []byte) ([]byte, error) { return append([]byte(nil), b...), nil }

func ParseInt(b []byte) (int64, error) { return strconv.ParseInt(string(b), 10, 64) }

func ParseFloat(b []byte) (float64, error) {
	s := string(b)
	switch s {
	case "inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	case "nan":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func ParseBool(b []byte) (bool, error) {
	if len(b) == 1 {
		switch b[0] {
		case 't', '1':
			return true, nil
		case 'f', '0':
			return false, nil
		}
	}
	return false, rerrs.New(rerrs.UnexpectedType, "not a boolean payload: %q", b)
}

// StringScalar, IntScalar, FloatScalar, and BoolScalar are the common
// Scalar instantiations spec.md's examples use directly.
func StringScalar() *Scalar[string] { return NewScalar(ParseString) }
func IntScalar() *Scalar[int64]     { return NewScalar(ParseInt) }
func FloatScalar() *Scalar[float64] { return NewScalar(ParseFloat) }
func BoolScalar() *Scalar[bool]     { return NewScalar(ParseBool) }

// StringSequence and StringMap are the common Sequence/Map instantiations
// spec §8's S2/S3 scenarios exercise directly.
func StringSequence() *Sequence[string] { return NewSequence(ParseString) }
func StringMap() *Map[string, string]   { return NewMap(ParseString, ParseString) }
