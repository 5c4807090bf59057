package client

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/ais-wire/resp3/wire"
)

// nodeView mirrors adapter's treeNodeView for a single node, kept
// separate since callers here often have one wire.Node (an attribute
// header, say) rather than a full adapter.Tree.
type nodeView struct {
	Kind    string `json:"kind"`
	Size    int    `json:"size"`
	Depth   int    `json:"depth"`
	Payload string `json:"payload,omitempty"`
	Enc     string `json:"enc,omitempty"`
}

// DumpJSON renders nodes (e.g. LastAttributes()'s result) as JSON for
// humans, grounded on cmn/cos/fs.go's jsoniter usage.
func DumpJSON(nodes []wire.Node) ([]byte, error) {
	views := make([]nodeView, len(nodes))
	for i, n := range nodes {
		views[i] = nodeView{
			Kind:    n.Kind.String(),
			Size:    n.AggregateSize,
			Depth:   n.Depth,
			Payload: string(n.Payload),
			Enc:     n.VerbatimEncoding,
		}
	}
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(views)
}
