// Package dagql provides the query and rewrite algebra over expression
// graphs: select nodes with predicates, relabel or replace matched entries,
// splice nodes out, wrap nodes, register aliases, garbage-collect orphans,
// and clone subgraphs with fresh IDs.
//
// # Queries
//
// [SelectWhere] scans the full adjacency map and returns every node whose
// entry satisfies a [Predicate]. The scan is deliberately not limited to
// nodes reachable from the root: orphans created by earlier rewrites stay
// visible until [GC] removes them, so tooling can find and inspect them.
// No iteration order is guaranteed.
//
// Built-in predicates ([ByKind], [ByKindGlob], [IsLeaf], [HasChildCount],
// [ByName]) cover the common cases and compose with [And], [Or], and [Not].
//
// # Rewrites
//
// Every rewrite copies its input into a fresh [expr.DirtyExpr] before
// touching anything, so a failed rewrite leaves the argument unchanged and
// a successful one never mutates it. The result is editable and must be
// committed before it can be evaluated.
//
//	d, err := dagql.SpliceWhere(g, dagql.ByKind("math/mul"))
//	if err != nil { ... }
//	g2, err := dagql.GC(d).Commit()
//
// Rewrites do not re-validate the graph; integrity problems they introduce
// (a relabel with the wrong arity, a map function dropping a needed child)
// surface at commit, not earlier.
//
// # Cloning
//
// [Instantiate] deep-copies the subgraph reachable from a node into a new
// graph with freshly minted IDs. Loop-like handlers use it to re-evaluate a
// body subgraph per iteration: the fold evaluator caches results per node
// ID, so folding the same IDs again would replay the cache instead of the
// work.
package dagql
