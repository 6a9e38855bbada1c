package fold

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/veldran/nexpr/pkg/expr"
)

// Call is a handler's view of the node it is evaluating and its line back
// into the evaluator. It exposes the node's entry and resolves child values
// on demand; requesting a child is the handler's suspension point.
//
// A Call is valid only for the duration of its handler invocation.
// Its methods are safe for concurrent use by goroutines the handler spawns.
type Call struct {
	r     *runner
	id    expr.NodeID
	entry expr.Entry
}

// ID returns the ID of the node being evaluated.
func (c *Call) ID() expr.NodeID { return c.id }

// Kind returns the node's namespaced operation kind.
func (c *Call) Kind() string { return c.entry.Kind }

// Entry returns a copy of the node's entry.
func (c *Call) Entry() expr.Entry {
	e, _ := c.r.g.Entry(c.id)
	return e
}

// Len returns the number of children, so handlers can implement optional
// and variadic argument shapes without null placeholders.
func (c *Call) Len() int { return len(c.entry.Children) }

// Arg resolves the value of the child at position i. Inline literals return
// immediately; references recursively evaluate the target node through the
// fold's result cache, so a shared child is evaluated at most once per fold
// no matter how many parents request it. Children may be requested in any
// order, conditionally, or not at all; evaluation order across siblings is
// whatever order handlers request them in.
//
// Errors from the child's handler propagate unchanged.
func (c *Call) Arg(ctx context.Context, i int) (cty.Value, error) {
	if i < 0 || i >= len(c.entry.Children) {
		return cty.NilVal, fmt.Errorf("fold: node %q kind %q: no child at position %d (have %d)",
			c.id, c.entry.Kind, i, len(c.entry.Children))
	}
	child := c.entry.Children[i]
	if !child.IsRef() {
		return child.Literal(), nil
	}
	return c.r.eval(ctx, child.Target())
}

// Graph returns the sealed graph this fold is evaluating. Handlers that
// re-run subgraphs use it as the source for cloning.
func (c *Call) Graph() expr.NExpr { return c.r.g }

// Stash returns the fold-scoped value store shared by all handlers of the
// root fold call and its subfolds.
func (c *Call) Stash() *Stash { return c.r.stash }

// Subfold evaluates another sealed graph with the same interpreter and
// stash but a fresh result cache. This is the escape hatch from
// memoization: loop and retry handlers clone their target subgraph with
// fresh IDs, commit it, and Subfold the clone once per iteration.
func (c *Call) Subfold(ctx context.Context, g expr.NExpr) (cty.Value, error) {
	return c.r.subfold(ctx, g)
}
