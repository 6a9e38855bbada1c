package dagql

import (
	"errors"
	"fmt"

	"github.com/veldran/nexpr/pkg/expr"
	"github.com/veldran/nexpr/pkg/observability"
)

var (
	// ErrSpliceOnLeaf is returned by [SpliceWhere] when a matched node has no
	// children: there is nothing to promote into its place.
	ErrSpliceOnLeaf = errors.New("cannot splice a leaf node")

	// ErrSpliceLiteral is returned by [SpliceWhere] when a matched node's
	// first child is an inline literal: literals have no node ID for the
	// matched node's parents to reference.
	ErrSpliceLiteral = errors.New("cannot splice a node whose first child is a literal")
)

// ReplaceWhere sets the kind of every matched node to newKind, leaving
// children and output tags untouched. This is a pure relabeling; it is the
// caller's responsibility that the new kind accepts the old kind's arity
// and child types.
func ReplaceWhere(g expr.Graph, p Predicate, newKind string) *expr.DirtyExpr {
	d := expr.NewDirtyFrom(g)
	matched := SelectWhere(d, p)
	for _, id := range matched {
		e := d.Nodes[id]
		e.Kind = newKind
		d.Nodes[id] = e
	}
	observability.Rewrite().OnRewrite("replaceWhere", len(matched))
	return d
}

// MapWhere replaces the entry of every matched node with fn(entry). The
// function may change kind, children, and output tag arbitrarily; the
// resulting graph is validated at commit, not here. fn receives a copy, so
// returning the argument modified is safe.
func MapWhere(g expr.Graph, p Predicate, fn func(expr.Entry) expr.Entry) *expr.DirtyExpr {
	d := expr.NewDirtyFrom(g)
	matched := SelectWhere(d, p)
	for _, id := range matched {
		e, _ := d.Entry(id) // copy, so fn cannot alias the stored slice
		d.Nodes[id] = fn(e)
	}
	observability.Rewrite().OnRewrite("mapWhere", len(matched))
	return d
}

// SpliceWhere removes every matched node, rewiring each reference to it
// (parent edges, the root, and aliases) to point at its first child
// instead. Remaining children lose one parent and may become orphans; run
// [GC] to discard them.
//
// The operation is atomic over the match set: if any matched node has no
// children (ErrSpliceOnLeaf) or a literal first child (ErrSpliceLiteral),
// no rewrite is applied and the input graph is untouched.
func SpliceWhere(g expr.Graph, p Predicate) (*expr.DirtyExpr, error) {
	d := expr.NewDirtyFrom(g)
	matched := SelectWhere(d, p)

	for _, id := range matched {
		e := d.Nodes[id]
		if len(e.Children) == 0 {
			return nil, fmt.Errorf("splice %q: %w", id, ErrSpliceOnLeaf)
		}
		if !e.Children[0].IsRef() {
			return nil, fmt.Errorf("splice %q: %w", id, ErrSpliceLiteral)
		}
	}

	for _, id := range matched {
		promoted := d.Nodes[id].Children[0].Target()
		for nid, e := range d.Nodes {
			for i, c := range e.Children {
				if c.IsRef() && c.Target() == id {
					e.Children[i] = expr.Ref(promoted)
				}
			}
			d.Nodes[nid] = e
		}
		if d.Root == id {
			d.Root = promoted
		}
		for name, target := range d.Aliases {
			if target == id {
				d.Aliases[name] = promoted
			}
		}
		delete(d.Nodes, id)
	}

	observability.Rewrite().OnRewrite("spliceWhere", len(matched))
	return d, nil
}

// WrapByName mints a fresh node of kind newKind whose single child
// references id, then redirects every existing reference to id (parent
// edges and the root) to the wrapper instead. The wrapped node is untouched
// and stays reachable through the wrapper; aliases keep pointing at it, so
// it remains addressable by name. The wrapper inherits the wrapped node's
// output tag, keeping the edit invisible to type checks above it.
//
// Wrapping and then splicing the wrapper's kind is an exact round trip.
//
// Returns the edited graph and the wrapper's ID, or [expr.ErrUnknownNode]
// if id does not exist.
func WrapByName(g expr.Graph, id expr.NodeID, newKind string) (*expr.DirtyExpr, expr.NodeID, error) {
	d := expr.NewDirtyFrom(g)
	wrapped, ok := d.Nodes[id]
	if !ok {
		return nil, "", fmt.Errorf("wrap %q: %w", id, expr.ErrUnknownNode)
	}

	wrapper := d.AddNode(expr.Entry{
		Kind:     newKind,
		Children: []expr.Child{expr.Ref(id)},
		Out:      wrapped.Out,
	})

	for nid, e := range d.Nodes {
		if nid == wrapper {
			continue
		}
		for i, c := range e.Children {
			if c.IsRef() && c.Target() == id {
				e.Children[i] = expr.Ref(wrapper)
			}
		}
		d.Nodes[nid] = e
	}
	if d.Root == id {
		d.Root = wrapper
	}

	observability.Rewrite().OnRewrite("wrapByName", 1)
	return d, wrapper, nil
}

// Name registers alias -> id in the graph's alias table and returns the
// edited graph. Registering an existing alias rebinds it. Returns
// [expr.ErrUnknownNode] if id does not exist; node structure is never
// touched.
func Name(g expr.Graph, alias string, id expr.NodeID) (*expr.DirtyExpr, error) {
	d := expr.NewDirtyFrom(g)
	if _, ok := d.Nodes[id]; !ok {
		return nil, fmt.Errorf("name %q -> %q: %w", alias, id, expr.ErrUnknownNode)
	}
	d.Aliases[alias] = id
	observability.Rewrite().OnRewrite("name", 1)
	return d, nil
}
