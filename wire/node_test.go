package wire

import "testing"

func TestNodeEqual(t *testing.T) {
	a := Node{Kind: SimpleString, AggregateSize: 1, Depth: 0, Payload: []byte("OK")}
	b := Node{Kind: SimpleString, AggregateSize: 1, Depth: 0, Payload: []byte("OK")}
	if !a.Equal(b) {
		t.Fatal("expected equal")
	}
	c := b
	c.Depth = 1
	if a.Equal(c) {
		t.Fatal("expected not equal on depth mismatch")
	}
}

func TestNodeMsgpRoundTrip(t *testing.T) {
	n := Node{Kind: BlobString, AggregateSize: 1, Depth: 2, Payload: []byte("hello\r\nworld"), VerbatimEncoding: ""}
	b, err := n.MarshalMsg(nil)
	if err != nil {
		t.Fatal(err)
	}
	var got Node
	rest, err := got.UnmarshalMsg(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 0 {
		t.Fatalf("leftover bytes: %d", len(rest))
	}
	if !n.Equal(got) {
		t.Fatalf("round trip mismatch: %+v != %+v", n, got)
	}
}
