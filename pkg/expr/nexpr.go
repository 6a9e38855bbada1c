package expr

import (
	"maps"

	"github.com/zclconf/go-cty/cty"
)

// NExpr is a sealed, committed expression graph: a root node ID plus a flat
// adjacency map of entries. NExpr values are immutable — every accessor
// returns a defensive copy — and safe for concurrent use. They are produced
// exclusively by [DirtyExpr.Commit], which guarantees referential integrity
// and acyclicity, so holders of an NExpr may evaluate it without
// re-validating.
//
// The zero value is an empty graph with no root; it fails any fold.
type NExpr struct {
	root    NodeID
	nodes   map[NodeID]Entry
	aliases map[string]NodeID
}

// RootID returns the ID of the root node.
func (g NExpr) RootID() NodeID { return g.root }

// Entry returns a copy of the entry stored at id and true,
// or a zero entry and false if the node does not exist.
func (g NExpr) Entry(id NodeID) (Entry, bool) {
	e, ok := g.nodes[id]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// IDs returns every node ID in the adjacency map.
// The order is not guaranteed.
func (g NExpr) IDs() []NodeID {
	ids := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of nodes in the adjacency map.
func (g NExpr) Len() int { return len(g.nodes) }

// Alias resolves a human-chosen name to a node ID.
func (g NExpr) Alias(name string) (NodeID, bool) {
	id, ok := g.aliases[name]
	return id, ok
}

// AliasTable returns a copy of the alias table. Never nil.
func (g NExpr) AliasTable() map[string]NodeID {
	out := make(map[string]NodeID, len(g.aliases))
	maps.Copy(out, g.aliases)
	return out
}

// Dirty returns an editable working copy of the graph. The copy shares no
// mutable state with the receiver: entries, child slices, and the alias
// table are all cloned, and the fresh-ID counter is seeded past the highest
// existing generated ID. Committing an unedited copy yields a graph
// structurally equal to the original.
func (g NExpr) Dirty() *DirtyExpr {
	return NewDirtyFrom(g)
}

// Equal reports whether two sealed graphs are structurally equal: same root,
// same adjacency map (kinds, child slots, output tags), same alias table.
// Literal children are compared with [cty.Value.RawEquals].
func (g NExpr) Equal(o NExpr) bool {
	if g.root != o.root || len(g.nodes) != len(o.nodes) || len(g.aliases) != len(o.aliases) {
		return false
	}
	for id, e := range g.nodes {
		oe, ok := o.nodes[id]
		if !ok || !e.equal(oe) {
			return false
		}
	}
	return maps.Equal(g.aliases, o.aliases)
}

// typeOrDynamic normalizes the zero cty.Type to the dynamic pseudo-type so
// unset output tags compare and check as "anything goes".
func typeOrDynamic(t cty.Type) cty.Type {
	if t == cty.NilType {
		return cty.DynamicPseudoType
	}
	return t
}

// TypesCompatible reports whether replacing a node whose output tag is old
// with one whose output tag is new preserves what ancestors consume. The
// dynamic pseudo-type (and the unset zero type) is compatible with anything.
func TypesCompatible(old, new cty.Type) bool {
	o, n := typeOrDynamic(old), typeOrDynamic(new)
	if o == cty.DynamicPseudoType || n == cty.DynamicPseudoType {
		return true
	}
	return o.Equals(n)
}
