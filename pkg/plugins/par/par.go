// Package par provides the par/* operation kinds: concurrency combinators.
//
// The fold evaluator itself is sequential; these handlers introduce
// concurrency by resolving independent children from multiple goroutines
// and combining the outcomes. Child resolution goes through the fold's
// single-flight cache, so two combinators racing over a shared subgraph
// still evaluate it once.
//
// Kinds and child shapes:
//
//	par/all     [a, b, ...]              evaluate all children concurrently;
//	                                     returns a tuple of their values, or
//	                                     the first error
//	par/race    [a, b, ...]              first settled child wins, value or
//	                                     error; losers' contexts are
//	                                     canceled (best-effort)
//	par/timeout [ms, inner, fallback?]   inner's value if it settles within
//	                                     ms milliseconds, otherwise the
//	                                     fallback (null if absent)
//	par/retry   [attempts, target, delayMs?]
//	                                     re-evaluate a fresh clone of the
//	                                     target subgraph until it succeeds,
//	                                     up to attempts tries with doubling
//	                                     delay
//	par/delay   [ms, inner]              wait ms milliseconds, then evaluate
//	                                     inner
//
// # Cancellation
//
// Cancellation is logical, not pre-emptive: a losing race branch or a
// timed-out inner evaluation keeps running until its handlers observe the
// canceled context, and its result (or error) stays in the fold's cache.
//
// # Retry and Memoization
//
// par/retry cannot simply re-request its target: a failed evaluation is
// cached for the rest of the fold, so re-requesting the same node ID would
// replay the failure. Like flow/while, the target must be a reference, and
// each attempt clones the subgraph with fresh IDs before subfolding it.
package par

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"golang.org/x/sync/errgroup"

	"github.com/veldran/nexpr/pkg/dagql"
	"github.com/veldran/nexpr/pkg/fold"
	"github.com/veldran/nexpr/pkg/httputil"
)

// ErrNotASubgraph is returned by par/retry when the target child is an
// inline literal: literals have no node to clone per attempt.
var ErrNotASubgraph = errors.New("child must reference a subgraph")

// New returns the par/* interpreter.
func New() fold.Interpreter {
	return fold.Interpreter{
		"par/all":     all,
		"par/race":    race,
		"par/timeout": timeout,
		"par/retry":   retry,
		"par/delay":   delay,
	}
}

func null() cty.Value { return cty.NullVal(cty.DynamicPseudoType) }

// millis resolves child i as a duration in milliseconds.
func millis(ctx context.Context, c *fold.Call, i int) (time.Duration, error) {
	v, err := c.Arg(ctx, i)
	if err != nil {
		return 0, err
	}
	n, err := convert.Convert(v, cty.Number)
	if err != nil {
		return 0, fmt.Errorf("%s child %d: %w", c.Kind(), i, err)
	}
	ms, _ := n.AsBigFloat().Int64()
	return time.Duration(ms) * time.Millisecond, nil
}

func all(ctx context.Context, c *fold.Call) (cty.Value, error) {
	if c.Len() == 0 {
		return cty.EmptyTupleVal, nil
	}
	g, ctx := errgroup.WithContext(ctx)
	vals := make([]cty.Value, c.Len())
	for i := 0; i < c.Len(); i++ {
		g.Go(func() error {
			v, err := c.Arg(ctx, i)
			if err != nil {
				return err
			}
			vals[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return cty.NilVal, err
	}
	return cty.TupleVal(vals), nil
}

func race(ctx context.Context, c *fold.Call) (cty.Value, error) {
	if c.Len() == 0 {
		return cty.NilVal, fmt.Errorf("%s: needs at least one child", c.Kind())
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type settled struct {
		val cty.Value
		err error
	}
	first := make(chan settled, c.Len())
	for i := 0; i < c.Len(); i++ {
		go func() {
			v, err := c.Arg(ctx, i)
			first <- settled{v, err}
		}()
	}

	select {
	case s := <-first:
		return s.val, s.err
	case <-ctx.Done():
		return cty.NilVal, ctx.Err()
	}
}

func timeout(ctx context.Context, c *fold.Call) (cty.Value, error) {
	d, err := millis(ctx, c, 0)
	if err != nil {
		return cty.NilVal, err
	}
	inner, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type settled struct {
		val cty.Value
		err error
	}
	done := make(chan settled, 1)
	go func() {
		v, err := c.Arg(inner, 1)
		done <- settled{v, err}
	}()

	select {
	case s := <-done:
		if s.err == nil || !errors.Is(s.err, context.DeadlineExceeded) {
			return s.val, s.err
		}
	case <-inner.Done():
		if ctx.Err() != nil {
			return cty.NilVal, ctx.Err()
		}
	}

	// Deadline hit: the abandoned evaluation keeps its cache slot; we
	// substitute the fallback.
	if c.Len() > 2 {
		return c.Arg(ctx, 2)
	}
	return null(), nil
}

func retry(ctx context.Context, c *fold.Call) (cty.Value, error) {
	if c.Len() < 2 {
		return cty.NilVal, fmt.Errorf("%s: needs [attempts, target]", c.Kind())
	}
	attemptsVal, err := c.Arg(ctx, 0)
	if err != nil {
		return cty.NilVal, err
	}
	n, err := convert.Convert(attemptsVal, cty.Number)
	if err != nil {
		return cty.NilVal, fmt.Errorf("%s: attempts: %w", c.Kind(), err)
	}
	attempts64, _ := n.AsBigFloat().Int64()
	attempts := int(attempts64)

	target := c.Entry().Children[1]
	if !target.IsRef() {
		return cty.NilVal, fmt.Errorf("%s child 1: %w", c.Kind(), ErrNotASubgraph)
	}

	wait := time.Duration(0)
	if c.Len() > 2 {
		if wait, err = millis(ctx, c, 2); err != nil {
			return cty.NilVal, err
		}
	}

	var val cty.Value
	err = httputil.Retry(ctx, attempts, wait, func() error {
		clone, _, err := dagql.Instantiate(c.Graph(), target.Target())
		if err != nil {
			return err
		}
		sealed, err := clone.Commit()
		if err != nil {
			return err
		}
		v, err := c.Subfold(ctx, sealed)
		if err != nil {
			// Handler failures are worth another attempt; graph-shape errors
			// above are not.
			return &httputil.RetryableError{Err: err}
		}
		val = v
		return nil
	})
	if err != nil {
		var re *httputil.RetryableError
		if errors.As(err, &re) {
			return cty.NilVal, re.Err
		}
		return cty.NilVal, err
	}
	return val, nil
}

func delay(ctx context.Context, c *fold.Call) (cty.Value, error) {
	d, err := millis(ctx, c, 0)
	if err != nil {
		return cty.NilVal, err
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
		return cty.NilVal, ctx.Err()
	}
	return c.Arg(ctx, 1)
}
