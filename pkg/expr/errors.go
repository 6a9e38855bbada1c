package expr

import "errors"

var (
	// ErrUnknownNode is returned by [DirtyExpr.SwapEntry] and
	// [DirtyExpr.RewireChildren] when the addressed node does not exist
	// in the adjacency map.
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnknownRoot is returned by [DirtyExpr.Commit] when the root ID
	// does not resolve to an entry in the adjacency map.
	ErrUnknownRoot = errors.New("root node does not exist")

	// ErrDanglingReference is returned by [DirtyExpr.Commit] when a child
	// slot references a node ID that does not exist in the same map.
	ErrDanglingReference = errors.New("dangling child reference")

	// ErrDanglingAlias is returned by [DirtyExpr.Commit] when an alias
	// targets a node ID that does not exist in the adjacency map.
	ErrDanglingAlias = errors.New("alias targets unknown node")

	// ErrGraphHasCycle is returned by [DirtyExpr.Commit] when a cycle is
	// detected. Cycles are detected using depth-first search with
	// white/gray/black coloring.
	ErrGraphHasCycle = errors.New("graph contains a cycle")

	// ErrTypeMismatch is returned by [DirtyExpr.SwapEntry] and
	// [DirtyExpr.RewireChildren] when the edit would change the output type
	// that ancestors of the node consume.
	ErrTypeMismatch = errors.New("incompatible output type")
)
