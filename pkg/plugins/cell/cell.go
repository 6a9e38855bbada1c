// Package cell provides the cell/* operation kinds: named mutable cells
// scoped to one fold call.
//
// Cells live in the fold's [fold.Stash], so they are shared by every
// handler of one root fold — including loop-iteration subfolds — and reset
// between independent folds. Because a shared cell node is evaluated at
// most once per fold, observable ordering between cell operations follows
// the dependency order of the graph; sequence unrelated cell writes with
// flow/seq.
//
// Kinds and child shapes:
//
//	cell/set  [name, value]    store value under name; returns value
//	cell/get  [name]           current value, or null if never set
//	cell/incr [name, delta?]   add delta (default 1) to a numeric cell
//	                           starting from 0; returns the new value
package cell

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/veldran/nexpr/pkg/fold"
)

// New returns the cell/* interpreter.
func New() fold.Interpreter {
	return fold.Interpreter{
		"cell/set":  set,
		"cell/get":  get,
		"cell/incr": incr,
	}
}

// cellName resolves child 0 as the cell's name.
func cellName(ctx context.Context, c *fold.Call) (string, error) {
	v, err := c.Arg(ctx, 0)
	if err != nil {
		return "", err
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", fmt.Errorf("%s: cell name: %w", c.Kind(), err)
	}
	return s.AsString(), nil
}

func set(ctx context.Context, c *fold.Call) (cty.Value, error) {
	name, err := cellName(ctx, c)
	if err != nil {
		return cty.NilVal, err
	}
	v, err := c.Arg(ctx, 1)
	if err != nil {
		return cty.NilVal, err
	}
	c.Stash().Set(name, v)
	return v, nil
}

func get(ctx context.Context, c *fold.Call) (cty.Value, error) {
	name, err := cellName(ctx, c)
	if err != nil {
		return cty.NilVal, err
	}
	v, ok := c.Stash().Get(name)
	if !ok {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	return v, nil
}

func incr(ctx context.Context, c *fold.Call) (cty.Value, error) {
	name, err := cellName(ctx, c)
	if err != nil {
		return cty.NilVal, err
	}
	delta := cty.NumberIntVal(1)
	if c.Len() > 1 {
		v, err := c.Arg(ctx, 1)
		if err != nil {
			return cty.NilVal, err
		}
		if delta, err = convert.Convert(v, cty.Number); err != nil {
			return cty.NilVal, fmt.Errorf("%s: delta: %w", c.Kind(), err)
		}
	}
	return c.Stash().Update(name, func(v cty.Value, ok bool) (cty.Value, error) {
		if !ok {
			return delta, nil
		}
		n, err := convert.Convert(v, cty.Number)
		if err != nil {
			return cty.NilVal, fmt.Errorf("cell %q is not numeric: %w", name, err)
		}
		return n.Add(delta), nil
	})
}
