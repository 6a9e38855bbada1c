// Package strs provides the str/* operation kinds: string operations over
// cty strings.
//
// Kinds and child shapes:
//
//	str/const  [value]            echo the single child as a string
//	str/concat [a, b, ...]        concatenation of all children (variadic)
//	str/upper  [s]                upper-cased s
//	str/lower  [s]                lower-cased s
//	str/trim   [s]                s without leading/trailing whitespace
//	str/len    [s]                length of s in characters (a number)
//	str/format [fmt, a, b, ...]   printf-style formatting of the remaining
//	                              children into fmt (cty stdlib Format verbs)
//
// Children are converted to cty.String before use (numbers and bools
// stringify); a child that cannot convert fails the node.
package strs

import (
	"context"
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/veldran/nexpr/pkg/fold"
)

// New returns the str/* interpreter.
func New() fold.Interpreter {
	return fold.Interpreter{
		"str/const":  constant,
		"str/concat": concat,
		"str/upper":  unary(stdlib.Upper),
		"str/lower":  unary(stdlib.Lower),
		"str/trim":   trim,
		"str/len":    unary(stdlib.Strlen),
		"str/format": format,
	}
}

// str resolves child i and converts it to cty.String.
func str(ctx context.Context, c *fold.Call, i int) (cty.Value, error) {
	v, err := c.Arg(ctx, i)
	if err != nil {
		return cty.NilVal, err
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return cty.NilVal, fmt.Errorf("%s child %d: %w", c.Kind(), i, err)
	}
	return s, nil
}

func constant(ctx context.Context, c *fold.Call) (cty.Value, error) {
	return str(ctx, c, 0)
}

func concat(ctx context.Context, c *fold.Call) (cty.Value, error) {
	var b strings.Builder
	for i := 0; i < c.Len(); i++ {
		s, err := str(ctx, c, i)
		if err != nil {
			return cty.NilVal, err
		}
		b.WriteString(s.AsString())
	}
	return cty.StringVal(b.String()), nil
}

func unary(op func(cty.Value) (cty.Value, error)) fold.Handler {
	return func(ctx context.Context, c *fold.Call) (cty.Value, error) {
		s, err := str(ctx, c, 0)
		if err != nil {
			return cty.NilVal, err
		}
		return op(s)
	}
}

func trim(ctx context.Context, c *fold.Call) (cty.Value, error) {
	s, err := str(ctx, c, 0)
	if err != nil {
		return cty.NilVal, err
	}
	return cty.StringVal(strings.TrimSpace(s.AsString())), nil
}

func format(ctx context.Context, c *fold.Call) (cty.Value, error) {
	if c.Len() == 0 {
		return cty.NilVal, fmt.Errorf("%s: needs a format child", c.Kind())
	}
	f, err := str(ctx, c, 0)
	if err != nil {
		return cty.NilVal, err
	}
	args := make([]cty.Value, 0, c.Len()-1)
	for i := 1; i < c.Len(); i++ {
		v, err := c.Arg(ctx, i)
		if err != nil {
			return cty.NilVal, err
		}
		args = append(args, v)
	}
	return stdlib.Format(f, args...)
}
