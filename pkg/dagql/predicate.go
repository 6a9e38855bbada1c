package dagql

import (
	"strings"

	"github.com/veldran/nexpr/pkg/expr"
)

// Predicate decides whether a node matches a query. It receives the node's
// ID, its entry, and the graph being queried (for predicates that need
// context beyond the entry, such as alias lookups). Predicates must not
// mutate the graph.
type Predicate func(id expr.NodeID, e expr.Entry, g expr.Graph) bool

// ByKind matches nodes whose kind equals exactly the given namespaced kind
// string (e.g. "math/add").
func ByKind(kind string) Predicate {
	return func(_ expr.NodeID, e expr.Entry, _ expr.Graph) bool {
		return e.Kind == kind
	}
}

// ByKindGlob matches nodes whose kind starts with the given prefix.
// ByKindGlob("math/") matches every operation in the math plugin.
func ByKindGlob(prefix string) Predicate {
	return func(_ expr.NodeID, e expr.Entry, _ expr.Graph) bool {
		return strings.HasPrefix(e.Kind, prefix)
	}
}

// IsLeaf matches nodes with no children at all — neither references nor
// inline literals.
func IsLeaf() Predicate {
	return func(_ expr.NodeID, e expr.Entry, _ expr.Graph) bool {
		return len(e.Children) == 0
	}
}

// HasChildCount matches nodes with exactly n children (references and
// literals both count).
func HasChildCount(n int) Predicate {
	return func(_ expr.NodeID, e expr.Entry, _ expr.Graph) bool {
		return len(e.Children) == n
	}
}

// ByName matches only the node the given alias resolves to. If the alias is
// not registered, nothing matches.
func ByName(alias string) Predicate {
	return func(id expr.NodeID, _ expr.Entry, g expr.Graph) bool {
		target, ok := g.Alias(alias)
		return ok && target == id
	}
}

// And matches nodes satisfying every given predicate.
func And(preds ...Predicate) Predicate {
	return func(id expr.NodeID, e expr.Entry, g expr.Graph) bool {
		for _, p := range preds {
			if !p(id, e, g) {
				return false
			}
		}
		return true
	}
}

// Or matches nodes satisfying at least one of the given predicates.
func Or(preds ...Predicate) Predicate {
	return func(id expr.NodeID, e expr.Entry, g expr.Graph) bool {
		for _, p := range preds {
			if p(id, e, g) {
				return true
			}
		}
		return false
	}
}

// Not inverts a predicate.
func Not(p Predicate) Predicate {
	return func(id expr.NodeID, e expr.Entry, g expr.Graph) bool {
		return !p(id, e, g)
	}
}

// SelectWhere returns the IDs of every node whose entry satisfies the
// predicate. The whole adjacency map is scanned, including nodes not
// reachable from the root. The order of the returned slice is not
// guaranteed; callers needing determinism must sort it.
func SelectWhere(g expr.Graph, p Predicate) []expr.NodeID {
	var ids []expr.NodeID
	for _, id := range g.IDs() {
		e, _ := g.Entry(id)
		if p(id, e, g) {
			ids = append(ids, id)
		}
	}
	return ids
}
