// Package arith provides the math/* operation kinds: arithmetic over cty
// numbers.
//
// Kinds and child shapes:
//
//	math/const [value]          echo the single child (usually a literal)
//	math/add   [a, b]           a + b
//	math/sub   [a, b]           a - b
//	math/mul   [a, b]           a * b
//	math/div   [a, b]           a / b, ErrDivisionByZero when b = 0
//	math/mod   [a, b]           a mod b, ErrDivisionByZero when b = 0
//	math/neg   [a]              -a
//	math/min   [a, b, ...]      smallest child (variadic, at least one)
//	math/max   [a, b, ...]      largest child (variadic, at least one)
//
// Children are converted to cty.Number before use; a child that cannot
// convert fails the node.
package arith

import (
	"context"
	"errors"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/veldran/nexpr/pkg/fold"
)

// ErrDivisionByZero is returned by math/div and math/mod when the divisor
// evaluates to zero.
var ErrDivisionByZero = errors.New("division by zero")

// New returns the math/* interpreter.
func New() fold.Interpreter {
	return fold.Interpreter{
		"math/const": constant,
		"math/add":   binary(cty.Value.Add),
		"math/sub":   binary(cty.Value.Subtract),
		"math/mul":   binary(cty.Value.Multiply),
		"math/div":   divide(cty.Value.Divide),
		"math/mod":   divide(cty.Value.Modulo),
		"math/neg":   neg,
		"math/min":   variadic(stdlib.Min),
		"math/max":   variadic(stdlib.Max),
	}
}

// number resolves child i and converts it to cty.Number.
func number(ctx context.Context, c *fold.Call, i int) (cty.Value, error) {
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

func constant(ctx context.Context, c *fold.Call) (cty.Value, error) {
	return number(ctx, c, 0)
}

func binary(op func(cty.Value, cty.Value) cty.Value) fold.Handler {
	return func(ctx context.Context, c *fold.Call) (cty.Value, error) {
		a, err := number(ctx, c, 0)
		if err != nil {
			return cty.NilVal, err
		}
		b, err := number(ctx, c, 1)
		if err != nil {
			return cty.NilVal, err
		}
		return op(a, b), nil
	}
}

func divide(op func(cty.Value, cty.Value) cty.Value) fold.Handler {
	return func(ctx context.Context, c *fold.Call) (cty.Value, error) {
		a, err := number(ctx, c, 0)
		if err != nil {
			return cty.NilVal, err
		}
		b, err := number(ctx, c, 1)
		if err != nil {
			return cty.NilVal, err
		}
		if b.RawEquals(cty.Zero) {
			return cty.NilVal, fmt.Errorf("%s: %w", c.Kind(), ErrDivisionByZero)
		}
		return op(a, b), nil
	}
}

func neg(ctx context.Context, c *fold.Call) (cty.Value, error) {
	a, err := number(ctx, c, 0)
	if err != nil {
		return cty.NilVal, err
	}
	return a.Negate(), nil
}

func variadic(op func(...cty.Value) (cty.Value, error)) fold.Handler {
	return func(ctx context.Context, c *fold.Call) (cty.Value, error) {
		if c.Len() == 0 {
			return cty.NilVal, fmt.Errorf("%s: needs at least one child", c.Kind())
		}
		vals := make([]cty.Value, c.Len())
		for i := range vals {
			v, err := number(ctx, c, i)
			if err != nil {
				return cty.NilVal, err
			}
			vals[i] = v
		}
		return op(vals...)
	}
}
