package dagql

import (
	"fmt"

	"github.com/veldran/nexpr/pkg/expr"
)

// Instantiate clones the subgraph reachable from root into a new editable
// graph with freshly minted IDs, and returns it together with the old->new
// ID mapping. The clone carries no aliases. Structural sharing inside the
// subgraph is preserved: a node with two parents is cloned once.
//
// This is the primitive behind loop re-evaluation. The fold evaluator
// caches results per node ID, so a handler that wants to run a subgraph
// again (a while body, a retry target) must fold a fresh-ID clone rather
// than the original IDs.
//
// Returns [expr.ErrUnknownNode] if root does not exist, or
// [expr.ErrDanglingReference] if the subgraph references a missing node.
func Instantiate(g expr.Graph, root expr.NodeID) (*expr.DirtyExpr, map[expr.NodeID]expr.NodeID, error) {
	if _, ok := g.Entry(root); !ok {
		return nil, nil, fmt.Errorf("instantiate %q: %w", root, expr.ErrUnknownNode)
	}

	clone := expr.NewDirty()
	mapping := make(map[expr.NodeID]expr.NodeID)

	var copyNode func(id expr.NodeID) (expr.NodeID, error)
	copyNode = func(id expr.NodeID) (expr.NodeID, error) {
		if newID, done := mapping[id]; done {
			return newID, nil
		}
		e, ok := g.Entry(id)
		if !ok {
			return "", fmt.Errorf("instantiate: subgraph references %q: %w", id, expr.ErrDanglingReference)
		}
		newID := clone.FreshID()
		mapping[id] = newID
		for i, c := range e.Children {
			if !c.IsRef() {
				continue
			}
			childID, err := copyNode(c.Target())
			if err != nil {
				return "", err
			}
			e.Children[i] = expr.Ref(childID)
		}
		clone.Nodes[newID] = e
		return newID, nil
	}

	newRoot, err := copyNode(root)
	if err != nil {
		return nil, nil, err
	}
	clone.Root = newRoot
	return clone, mapping, nil
}
