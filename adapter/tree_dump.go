package adapter

import (
	jsoniter "github.com/json-iterator/go"
)

// treeNodeView is the JSON-facing projection of a wire.Node: payload is
// rendered as a string since tree dumps are a debugging/export aid, not a
// wire-exact round trip (use wire.Node.MarshalMsg for that).
type treeNodeView struct {
	Kind    string `json:"kind"`
	Size    int    `json:"size"`
	Depth   int    `json:"depth"`
	Payload string `json:"payload,omitempty"`
	Enc     string `json:"enc,omitempty"`
}

// DumpJSON renders the tree's pre-order node list as a JSON array, used by
// resp3cli's --dump flag and by tests asserting a reply's full shape
// without hand-building a wire.Node slice.
func (t *Tree) DumpJSON() ([]byte, error) {
	views := make([]treeNodeView, len(t.Nodes))
	for i, n := range t.Nodes {
		views[i] = treeNodeView{
			Kind:    n.Kind.String(),
			Size:    n.AggregateSize,
			Depth:   n.Depth,
			Payload: string(n.Payload),
			Enc:     n.VerbatimEncoding,
		}
	}
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(views)
}
