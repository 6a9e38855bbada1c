package dagql

import (
	"github.com/veldran/nexpr/pkg/expr"
	"github.com/veldran/nexpr/pkg/observability"
)

// GC discards every node not reachable from the root or from an aliased
// node. Aliases are externally addressable, so their targets (and
// everything below them) survive even when no parent references them;
// aliases whose target no longer exists are dropped. GC edits the given
// working copy in place and returns it for chaining.
//
// GC is evaluation-neutral: the retained subgraph folds to the same result
// as before, because discarded nodes were unreachable from the root.
func GC(d *expr.DirtyExpr) *expr.DirtyExpr {
	before := len(d.Nodes)

	live := make(map[expr.NodeID]bool, len(d.Nodes))
	var mark func(id expr.NodeID)
	mark = func(id expr.NodeID) {
		if live[id] {
			return
		}
		e, ok := d.Nodes[id]
		if !ok {
			return
		}
		live[id] = true
		for _, c := range e.Children {
			if c.IsRef() {
				mark(c.Target())
			}
		}
	}

	mark(d.Root)
	for _, id := range d.Aliases {
		mark(id)
	}

	for id := range d.Nodes {
		if !live[id] {
			delete(d.Nodes, id)
		}
	}
	for name, id := range d.Aliases {
		if !live[id] {
			delete(d.Aliases, name)
		}
	}

	observability.Rewrite().OnGC(before, len(d.Nodes))
	return d
}
