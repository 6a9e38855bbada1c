// Package boolean provides the bool/* and cmp/* operation kinds: logic and
// comparisons.
//
// Kinds and child shapes:
//
//	bool/and [a, b]    logical and; b is not evaluated when a is false
//	bool/or  [a, b]    logical or; b is not evaluated when a is true
//	bool/not [a]       logical negation
//	cmp/eq   [a, b]    structural equality of any two values
//	cmp/ne   [a, b]    structural inequality
//	cmp/lt   [a, b]    a < b   (numbers)
//	cmp/le   [a, b]    a <= b  (numbers)
//	cmp/gt   [a, b]    a > b   (numbers)
//	cmp/ge   [a, b]    a >= b  (numbers)
//
// The short-circuit behavior of bool/and and bool/or is observable: the
// untaken child's subgraph is never evaluated, so its side effects do not
// fire.
package boolean

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/veldran/nexpr/pkg/fold"
)

// New returns the bool/* and cmp/* interpreter.
func New() fold.Interpreter {
	return fold.Interpreter{
		"bool/and": and,
		"bool/or":  or,
		"bool/not": not,
		"cmp/eq":   eq(false),
		"cmp/ne":   eq(true),
		"cmp/lt":   order(cty.Value.LessThan),
		"cmp/le":   order(cty.Value.LessThanOrEqualTo),
		"cmp/gt":   order(cty.Value.GreaterThan),
		"cmp/ge":   order(cty.Value.GreaterThanOrEqualTo),
	}
}

// boolArg resolves child i and converts it to cty.Bool.
func boolArg(ctx context.Context, c *fold.Call, i int) (cty.Value, error) {
	v, err := c.Arg(ctx, i)
	if err != nil {
		return cty.NilVal, err
	}
	b, err := convert.Convert(v, cty.Bool)
	if err != nil {
		return cty.NilVal, fmt.Errorf("%s child %d: %w", c.Kind(), i, err)
	}
	return b, nil
}

// numArg resolves child i and converts it to cty.Number.
func numArg(ctx context.Context, c *fold.Call, i int) (cty.Value, error) {
	v, err := c.Arg(ctx, i)
	if err != nil {
		return cty.NilVal, err
	}
	n, err := convert.Convert(v, cty.Number)
	if err != nil {
		return cty.NilVal, fmt.Errorf("%s child %d: %w", c.Kind(), i, err)
	}
	return n, nil
}

func and(ctx context.Context, c *fold.Call) (cty.Value, error) {
	a, err := boolArg(ctx, c, 0)
	if err != nil {
		return cty.NilVal, err
	}
	if a.False() {
		return cty.False, nil
	}
	return boolArg(ctx, c, 1)
}

func or(ctx context.Context, c *fold.Call) (cty.Value, error) {
	a, err := boolArg(ctx, c, 0)
	if err != nil {
		return cty.NilVal, err
	}
	if a.True() {
		return cty.True, nil
	}
	return boolArg(ctx, c, 1)
}

func not(ctx context.Context, c *fold.Call) (cty.Value, error) {
	a, err := boolArg(ctx, c, 0)
	if err != nil {
		return cty.NilVal, err
	}
	return a.Not(), nil
}

func eq(negate bool) fold.Handler {
	return func(ctx context.Context, c *fold.Call) (cty.Value, error) {
		a, err := c.Arg(ctx, 0)
		if err != nil {
			return cty.NilVal, err
		}
		b, err := c.Arg(ctx, 1)
		if err != nil {
			return cty.NilVal, err
		}
		got := cty.BoolVal(a.RawEquals(b))
		if negate {
			got = got.Not()
		}
		return got, nil
	}
}

func order(op func(cty.Value, cty.Value) cty.Value) fold.Handler {
	return func(ctx context.Context, c *fold.Call) (cty.Value, error) {
		a, err := numArg(ctx, c, 0)
		if err != nil {
			return cty.NilVal, err
		}
		b, err := numArg(ctx, c, 1)
		if err != nil {
			return cty.NilVal, err
		}
		return op(a, b), nil
	}
}
