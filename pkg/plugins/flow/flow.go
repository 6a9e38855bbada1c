// Package flow provides the flow/* operation kinds: control flow.
//
// Kinds and child shapes:
//
//	flow/if    [cond, then, else?]   evaluate then or else depending on
//	                                 cond; the untaken branch is never
//	                                 evaluated; a missing else yields null
//	flow/seq   [a, b, ...]           evaluate children left to right,
//	                                 return the last; null when empty
//	flow/while [cond, body]          re-evaluate body while cond is true;
//	                                 returns the last body value, or null
//	                                 if the body never ran
//	flow/fail  [msg?]                fail the node with ErrFailed
//	flow/try   [attempt, fallback]   the attempt's value, or the fallback's
//	                                 if the attempt fails
//
// # Loop Re-Evaluation
//
// The fold evaluator caches results per node ID, so flow/while cannot fold
// its cond and body IDs repeatedly — that would replay the first
// iteration's cached values forever. Both children must be references, and
// every iteration clones each subgraph with fresh IDs (dagql.Instantiate),
// commits the clone, and evaluates it in a subfold. Cell state lives in
// the fold's stash and is shared across iterations, which is how loop
// conditions make progress.
package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/veldran/nexpr/pkg/dagql"
	"github.com/veldran/nexpr/pkg/expr"
	"github.com/veldran/nexpr/pkg/fold"
)

var (
	// ErrFailed is the failure raised by flow/fail. Catch it (or any other
	// handler error) with flow/try.
	ErrFailed = errors.New("expression failed")

	// ErrNotASubgraph is returned by flow/while when a child that must be
	// re-evaluated per iteration is an inline literal: literals have no node
	// to clone.
	ErrNotASubgraph = errors.New("child must reference a subgraph")
)

// New returns the flow/* interpreter.
func New() fold.Interpreter {
	return fold.Interpreter{
		"flow/if":    ifElse,
		"flow/seq":   seq,
		"flow/while": while,
		"flow/fail":  fail,
		"flow/try":   try,
	}
}

func null() cty.Value { return cty.NullVal(cty.DynamicPseudoType) }

func condArg(ctx context.Context, c *fold.Call, i int) (bool, error) {
	v, err := c.Arg(ctx, i)
	if err != nil {
		return false, err
	}
	b, err := convert.Convert(v, cty.Bool)
	if err != nil {
		return false, fmt.Errorf("%s: condition: %w", c.Kind(), err)
	}
	return b.True(), nil
}

func ifElse(ctx context.Context, c *fold.Call) (cty.Value, error) {
	cond, err := condArg(ctx, c, 0)
	if err != nil {
		return cty.NilVal, err
	}
	if cond {
		return c.Arg(ctx, 1)
	}
	if c.Len() > 2 {
		return c.Arg(ctx, 2)
	}
	return null(), nil
}

func seq(ctx context.Context, c *fold.Call) (cty.Value, error) {
	last := null()
	for i := 0; i < c.Len(); i++ {
		v, err := c.Arg(ctx, i)
		if err != nil {
			return cty.NilVal, err
		}
		last = v
	}
	return last, nil
}

// instance clones the subgraph referenced by child i into a fresh-ID
// sealed graph ready for one subfold.
func instance(c *fold.Call, i int) (expr.NExpr, error) {
	if i >= c.Len() {
		return expr.NExpr{}, fmt.Errorf("%s: no child at position %d (have %d)", c.Kind(), i, c.Len())
	}
	ch := c.Entry().Children[i]
	if !ch.IsRef() {
		return expr.NExpr{}, fmt.Errorf("%s child %d: %w", c.Kind(), i, ErrNotASubgraph)
	}
	clone, _, err := dagql.Instantiate(c.Graph(), ch.Target())
	if err != nil {
		return expr.NExpr{}, err
	}
	return clone.Commit()
}

func while(ctx context.Context, c *fold.Call) (cty.Value, error) {
	if c.Len() < 2 {
		return cty.NilVal, fmt.Errorf("%s: needs [cond, body]", c.Kind())
	}
	last := null()
	for {
		if err := ctx.Err(); err != nil {
			return cty.NilVal, err
		}

		condG, err := instance(c, 0)
		if err != nil {
			return cty.NilVal, err
		}
		v, err := c.Subfold(ctx, condG)
		if err != nil {
			return cty.NilVal, err
		}
		b, err := convert.Convert(v, cty.Bool)
		if err != nil {
			return cty.NilVal, fmt.Errorf("%s: condition: %w", c.Kind(), err)
		}
		if b.False() {
			return last, nil
		}

		bodyG, err := instance(c, 1)
		if err != nil {
			return cty.NilVal, err
		}
		if last, err = c.Subfold(ctx, bodyG); err != nil {
			return cty.NilVal, err
		}
	}
}

func fail(ctx context.Context, c *fold.Call) (cty.Value, error) {
	if c.Len() == 0 {
		return cty.NilVal, ErrFailed
	}
	v, err := c.Arg(ctx, 0)
	if err != nil {
		return cty.NilVal, err
	}
	msg, err := convert.Convert(v, cty.String)
	if err != nil {
		return cty.NilVal, fmt.Errorf("%s: message: %w", c.Kind(), err)
	}
	return cty.NilVal, fmt.Errorf("%w: %s", ErrFailed, msg.AsString())
}

func try(ctx context.Context, c *fold.Call) (cty.Value, error) {
	v, err := c.Arg(ctx, 0)
	if err == nil {
		return v, nil
	}
	if c.Len() < 2 {
		return cty.NilVal, err
	}
	return c.Arg(ctx, 1)
}
