package wire

import (
	"github.com/tinylib/msgp/msgp"
)

// Node is a single element of the pre-order traversal of a reply tree
// (spec §3 "Node"). Equality is componentwise by design: two Nodes are the
// same reply element iff every field matches.
type Node struct {
	Kind          Kind
	AggregateSize int // number of child elements; 1 for simples
	Depth         int // 0 at the root
	Payload       []byte
	// VerbatimEncoding carries the 3-byte type prefix stripped from a
	// VerbatimString payload (e.g. "txt", "mkd"); empty for every other
	// kind. See SPEC_FULL.md "Supplemented Features".
	VerbatimEncoding string
}

func (n Node) Equal(o Node) bool {
	if n.Kind != o.Kind || n.AggregateSize != o.AggregateSize ||
		n.Depth != o.Depth || n.VerbatimEncoding != o.VerbatimEncoding {
		return false
	}
	if len(n.Payload) != len(o.Payload) {
		return false
	}
	for i := range n.Payload {
		if n.Payload[i] != o.Payload[i] {
			return false
		}
	}
	return true
}

// MarshalMsg implements msgp.Marshaler by hand, in the same append-style
// the teacher's generated code follows (see dsort/dsort.go's
// msgp.NewWriterSize usage) — a portable binary form of one node of a
// parsed reply tree. resp3cli's --dump flag does not use it; it prints
// adapter.Tree.DumpJSON.
func (n *Node) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.AppendMapHeader(b, 5)
	o = msgp.AppendString(o, "kind")
	o = msgp.AppendUint8(o, uint8(n.Kind))
	o = msgp.AppendString(o, "size")
	o = msgp.AppendInt(o, n.AggregateSize)
	o = msgp.AppendString(o, "depth")
	o = msgp.AppendInt(o, n.Depth)
	o = msgp.AppendString(o, "payload")
	o = msgp.AppendBytes(o, n.Payload)
	o = msgp.AppendString(o, "enc")
	o = msgp.AppendString(o, n.VerbatimEncoding)
	return o, nil
}

// UnmarshalMsg implements msgp.Unmarshaler, the inverse of MarshalMsg.
func (n *Node) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var sz uint32
	sz, o, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < sz; i++ {
		var field string
		field, o, err = msgp.ReadStringBytes(o)
		if err != nil {
			return nil, err
		}
		switch field {
		case "kind":
			var k uint8
			k, o, err = msgp.ReadUint8Bytes(o)
			n.Kind = Kind(k)
		case "size":
			n.AggregateSize, o, err = msgp.ReadIntBytes(o)
		case "depth":
			n.Depth, o, err = msgp.ReadIntBytes(o)
		case "payload":
			n.Payload, o, err = msgp.ReadBytesBytes(o, nil)
		case "enc":
			n.VerbatimEncoding, o, err = msgp.ReadStringBytes(o)
		default:
			o, err = msgp.Skip(o)
		}
		if err != nil {
			return nil, err
		}
	}
	return o, nil
}

// EncodeMsg and DecodeMsg implement msgp.Encodable/Decodable against a
// streaming msgp.Writer/Reader, for callers that want to write many nodes
// to a single stream without building an intermediate []byte per node.
func (n *Node) EncodeMsg(w *msgp.Writer) error {
	if err := w.WriteMapHeader(5); err != nil {
		return err
	}
	for _, kv := range []struct {
		key string
		wr  func() error
	}{
		{"kind", func() error { return w.WriteUint8(uint8(n.Kind)) }},
		{"size", func() error { return w.WriteInt(n.AggregateSize) }},
		{"depth", func() error { return w.WriteInt(n.Depth) }},
		{"payload", func() error { return w.WriteBytes(n.Payload) }},
		{"enc", func() error { return w.WriteString(n.VerbatimEncoding) }},
	} {
		if err := w.WriteString(kv.key); err != nil {
			return err
		}
		if err := kv.wr(); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) DecodeMsg(r *msgp.Reader) error {
	sz, err := r.ReadMapHeader()
	if err != nil {
		return err
	}
	for i := uint32(0); i < sz; i++ {
		field, err := r.ReadString()
		if err != nil {
			return err
		}
		switch field {
		case "kind":
			k, err := r.ReadUint8()
			if err != nil {
				return err
			}
			n.Kind = Kind(k)
		case "size":
			if n.AggregateSize, err = r.ReadInt(); err != nil {
				return err
			}
		case "depth":
			if n.Depth, err = r.ReadInt(); err != nil {
				return err
			}
		case "payload":
			if n.Payload, err = r.ReadBytes(n.Payload[:0]); err != nil {
				return err
			}
		case "enc":
			if n.VerbatimEncoding, err = r.ReadString(); err != nil {
				return err
			}
		default:
			if err = r.Skip(); err != nil {
				return err
			}
		}
	}
	return nil
}
