package expr

import (
	"github.com/zclconf/go-cty/cty"
)

// NodeID identifies a node within one graph. IDs are opaque strings; fresh
// IDs minted by [DirtyExpr.FreshID] have the form "n5", but builders may use
// any non-empty string.
type NodeID string

// Child is one slot in a node's ordered child list: either a reference to
// another node in the same graph, or an inline literal value. Use [Ref] and
// [Lit] to construct children and [Child.IsRef] to tell them apart.
//
// The zero value is a null literal.
type Child struct {
	ref NodeID
	lit cty.Value
}

// Ref returns a child slot referencing the node with the given ID. The id
// must be non-empty: Ref("") is the zero Child, a null literal, and will
// pass commit validation as one instead of failing as a dangling reference.
func Ref(id NodeID) Child { return Child{ref: id} }

// Lit returns a child slot holding an inline literal value.
// Literals resolve to themselves during evaluation without a graph lookup.
func Lit(v cty.Value) Child { return Child{lit: v} }

// IsRef reports whether the child references another node
// (as opposed to holding an inline literal).
func (c Child) IsRef() bool { return c.ref != "" }

// Target returns the referenced node ID, or "" for a literal child.
func (c Child) Target() NodeID { return c.ref }

// Literal returns the inline literal value. For reference children it
// returns [cty.NilVal]; check [Child.IsRef] first.
func (c Child) Literal() cty.Value { return c.lit }

// equal reports structural equality between two child slots.
func (c Child) equal(o Child) bool {
	if c.IsRef() != o.IsRef() {
		return false
	}
	if c.IsRef() {
		return c.ref == o.ref
	}
	return c.lit.RawEquals(o.lit)
}

// Entry describes one operation node: its kind, its ordered children, and an
// output type tag. Kind strings are namespaced "<plugin>/<operation>"
// (e.g. "math/add"). The Out tag participates only in edit-time validation;
// evaluation never consults it. [cty.DynamicPseudoType] (or the zero
// [cty.Type]) opts the node out of type checking.
type Entry struct {
	Kind     string
	Children []Child
	Out      cty.Type
}

// clone returns a copy of the entry with its own child slice.
func (e Entry) clone() Entry {
	if e.Children == nil {
		return e
	}
	children := make([]Child, len(e.Children))
	copy(children, e.Children)
	e.Children = children
	return e
}

// equal reports structural equality between two entries.
func (e Entry) equal(o Entry) bool {
	if e.Kind != o.Kind || len(e.Children) != len(o.Children) {
		return false
	}
	for i := range e.Children {
		if !e.Children[i].equal(o.Children[i]) {
			return false
		}
	}
	return typeOrDynamic(e.Out).Equals(typeOrDynamic(o.Out))
}

// Graph is the read-only view shared by sealed and editable graphs. Queries
// and rewrites accept a Graph so they work uniformly over both forms.
type Graph interface {
	// RootID returns the ID of the graph's root node.
	RootID() NodeID

	// Entry returns the entry stored at id and true, or a zero entry and
	// false if the node does not exist.
	Entry(id NodeID) (Entry, bool)

	// IDs returns every node ID in the adjacency map, including nodes not
	// reachable from the root. The order is not guaranteed.
	IDs() []NodeID

	// Len returns the number of nodes in the adjacency map.
	Len() int

	// Alias resolves a human-chosen name to a node ID.
	Alias(name string) (NodeID, bool)

	// AliasTable returns a copy of the full alias table.
	AliasTable() map[string]NodeID
}
