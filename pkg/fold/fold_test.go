package fold

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/zclconf/go-cty/cty"

	"github.com/veldran/nexpr/pkg/expr"
)

// testInterp returns a minimal arithmetic interpreter sufficient for the
// evaluator tests. Plugins ship the real ones.
func testInterp() Interpreter {
	return Interpreter{
		"test/const": func(ctx context.Context, c *Call) (cty.Value, error) {
			return c.Arg(ctx, 0)
		},
		"test/add": func(ctx context.Context, c *Call) (cty.Value, error) {
			a, err := c.Arg(ctx, 0)
			if err != nil {
				return cty.NilVal, err
			}
			b, err := c.Arg(ctx, 1)
			if err != nil {
				return cty.NilVal, err
			}
			return a.Add(b), nil
		},
		"test/mul": func(ctx context.Context, c *Call) (cty.Value, error) {
			a, err := c.Arg(ctx, 0)
			if err != nil {
				return cty.NilVal, err
			}
			b, err := c.Arg(ctx, 1)
			if err != nil {
				return cty.NilVal, err
			}
			return a.Multiply(b), nil
		},
	}
}

func seal(t *testing.T, d *expr.DirtyExpr) expr.NExpr {
	t.Helper()
	g, err := d.Commit()
	if err != nil {
		t.Fatalf("Commit() = %v", err)
	}
	return g
}

func num(v cty.Value) int64 {
	i, _ := v.AsBigFloat().Int64()
	return i
}

func TestFoldArithmetic(t *testing.T) {
	// (x + 10) * 2 with x = 5.
	d := expr.NewDirty()
	d.Nodes["x"] = expr.Entry{Kind: "test/const", Children: []expr.Child{expr.Lit(cty.NumberIntVal(5))}}
	d.Nodes["add"] = expr.Entry{Kind: "test/add", Children: []expr.Child{expr.Ref("x"), expr.Lit(cty.NumberIntVal(10))}}
	d.Nodes["mul"] = expr.Entry{Kind: "test/mul", Children: []expr.Child{expr.Ref("add"), expr.Lit(cty.NumberIntVal(2))}}
	d.Root = "mul"
	g := seal(t, d)

	v, err := Fold(context.Background(), testInterp(), g)
	if err != nil {
		t.Fatalf("Fold() = %v", err)
	}
	if num(v) != 30 {
		t.Errorf("Fold() = %v, want 30", v)
	}
}

func TestFoldMissingHandler(t *testing.T) {
	d := expr.NewDirty()
	d.Root = d.AddNode(expr.Entry{Kind: "nope/op"})
	g := seal(t, d)

	_, err := Fold(context.Background(), testInterp(), g)
	if !errors.Is(err, ErrMissingHandler) {
		t.Errorf("Fold() error = %v, want ErrMissingHandler", err)
	}
}

func TestFoldAtMostOnce(t *testing.T) {
	var fired atomic.Int64
	in := Merge(testInterp(), Interpreter{
		"test/counter": func(ctx context.Context, c *Call) (cty.Value, error) {
			return cty.NumberIntVal(fired.Add(1)), nil
		},
	})

	// Two parents share one side-effecting child.
	d := expr.NewDirty()
	d.Nodes["tick"] = expr.Entry{Kind: "test/counter"}
	d.Nodes["l"] = expr.Entry{Kind: "test/add", Children: []expr.Child{expr.Ref("tick"), expr.Lit(cty.Zero)}}
	d.Nodes["r"] = expr.Entry{Kind: "test/add", Children: []expr.Child{expr.Ref("tick"), expr.Lit(cty.Zero)}}
	d.Nodes["top"] = expr.Entry{Kind: "test/add", Children: []expr.Child{expr.Ref("l"), expr.Ref("r")}}
	d.Root = "top"
	g := seal(t, d)

	v, err := Fold(context.Background(), in, g)
	if err != nil {
		t.Fatalf("Fold() = %v", err)
	}
	if fired.Load() != 1 {
		t.Errorf("side effect fired %d times, want 1", fired.Load())
	}
	if num(v) != 2 {
		t.Errorf("Fold() = %v, want 2 (1 + 1)", v)
	}

	// A second fold call gets a fresh cache.
	if _, err := Fold(context.Background(), in, g); err != nil {
		t.Fatalf("Fold() = %v", err)
	}
	if fired.Load() != 2 {
		t.Errorf("side effect fired %d times after two folds, want 2", fired.Load())
	}
}

func TestFoldCoalescesConcurrentRequests(t *testing.T) {
	var fired atomic.Int64
	release := make(chan struct{})
	in := Interpreter{
		"test/slow": func(ctx context.Context, c *Call) (cty.Value, error) {
			fired.Add(1)
			<-release
			return cty.NumberIntVal(42), nil
		},
		"test/fanout": func(ctx context.Context, c *Call) (cty.Value, error) {
			var wg sync.WaitGroup
			vals := make([]cty.Value, c.Len())
			errs := make([]error, c.Len())
			for i := 0; i < c.Len(); i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					vals[i], errs[i] = c.Arg(ctx, i)
				}(i)
			}
			close(release)
			wg.Wait()
			sum := cty.Zero
			for i := range vals {
				if errs[i] != nil {
					return cty.NilVal, errs[i]
				}
				sum = sum.Add(vals[i])
			}
			return sum, nil
		},
	}

	d := expr.NewDirty()
	d.Nodes["slow"] = expr.Entry{Kind: "test/slow"}
	d.Nodes["top"] = expr.Entry{Kind: "test/fanout", Children: []expr.Child{
		expr.Ref("slow"), expr.Ref("slow"), expr.Ref("slow"), expr.Ref("slow"),
	}}
	d.Root = "top"
	g := seal(t, d)

	v, err := Fold(context.Background(), in, g)
	if err != nil {
		t.Fatalf("Fold() = %v", err)
	}
	if fired.Load() != 1 {
		t.Errorf("handler ran %d times under concurrent requests, want 1", fired.Load())
	}
	if num(v) != 4*42 {
		t.Errorf("Fold() = %v, want %d", v, 4*42)
	}
}

func TestFoldCachesErrors(t *testing.T) {
	var fired atomic.Int64
	boom := errors.New("boom")
	in := Merge(testInterp(), Interpreter{
		"test/fails": func(ctx context.Context, c *Call) (cty.Value, error) {
			fired.Add(1)
			return cty.NilVal, boom
		},
		"test/both": func(ctx context.Context, c *Call) (cty.Value, error) {
			// Request the failing child twice; the second hit must come from
			// the cache, not a re-run.
			_, err1 := c.Arg(ctx, 0)
			_, err2 := c.Arg(ctx, 1)
			if !errors.Is(err1, boom) || !errors.Is(err2, boom) {
				return cty.NilVal, errors.New("expected cached failure")
			}
			return cty.NilVal, err2
		},
	})

	d := expr.NewDirty()
	d.Nodes["bad"] = expr.Entry{Kind: "test/fails"}
	d.Nodes["top"] = expr.Entry{Kind: "test/both", Children: []expr.Child{expr.Ref("bad"), expr.Ref("bad")}}
	d.Root = "top"
	g := seal(t, d)

	_, err := Fold(context.Background(), in, g)
	if !errors.Is(err, boom) {
		t.Fatalf("Fold() error = %v, want boom", err)
	}
	if fired.Load() != 1 {
		t.Errorf("failing handler ran %d times, want 1", fired.Load())
	}
}

func TestFoldConditionalArgRequests(t *testing.T) {
	var rightFired atomic.Int64
	in := Merge(testInterp(), Interpreter{
		"test/first": func(ctx context.Context, c *Call) (cty.Value, error) {
			// Only ever request child 0; child 1 must stay untouched.
			return c.Arg(ctx, 0)
		},
		"test/traced": func(ctx context.Context, c *Call) (cty.Value, error) {
			rightFired.Add(1)
			return cty.True, nil
		},
	})

	d := expr.NewDirty()
	d.Nodes["skipped"] = expr.Entry{Kind: "test/traced"}
	d.Nodes["top"] = expr.Entry{Kind: "test/first", Children: []expr.Child{
		expr.Lit(cty.NumberIntVal(1)), expr.Ref("skipped"),
	}}
	d.Root = "top"
	g := seal(t, d)

	if _, err := Fold(context.Background(), in, g); err != nil {
		t.Fatalf("Fold() = %v", err)
	}
	if rightFired.Load() != 0 {
		t.Errorf("unrequested child evaluated %d times, want 0", rightFired.Load())
	}
}

func TestCallArgOutOfRange(t *testing.T) {
	in := Interpreter{
		"test/greedy": func(ctx context.Context, c *Call) (cty.Value, error) {
			return c.Arg(ctx, 3)
		},
	}
	d := expr.NewDirty()
	d.Root = d.AddNode(expr.Entry{Kind: "test/greedy", Children: []expr.Child{expr.Lit(cty.Zero)}})
	g := seal(t, d)

	if _, err := Fold(context.Background(), in, g); err == nil {
		t.Error("Fold() = nil error for out-of-range arg request")
	}
}

func TestSubfoldGetsFreshCache(t *testing.T) {
	var fired atomic.Int64

	// inner graph: a single counter node.
	di := expr.NewDirty()
	di.Root = di.AddNode(expr.Entry{Kind: "test/counter"})
	inner := seal(t, di)

	in := Interpreter{
		"test/counter": func(ctx context.Context, c *Call) (cty.Value, error) {
			return cty.NumberIntVal(fired.Add(1)), nil
		},
		"test/twice": func(ctx context.Context, c *Call) (cty.Value, error) {
			if _, err := c.Subfold(ctx, inner); err != nil {
				return cty.NilVal, err
			}
			return c.Subfold(ctx, inner)
		},
	}

	d := expr.NewDirty()
	d.Root = d.AddNode(expr.Entry{Kind: "test/twice"})
	g := seal(t, d)

	v, err := Fold(context.Background(), in, g)
	if err != nil {
		t.Fatalf("Fold() = %v", err)
	}
	if fired.Load() != 2 {
		t.Errorf("counter fired %d times across two subfolds, want 2", fired.Load())
	}
	if num(v) != 2 {
		t.Errorf("Fold() = %v, want 2", v)
	}
}

func TestStashSharedAcrossSubfolds(t *testing.T) {
	di := expr.NewDirty()
	di.Root = di.AddNode(expr.Entry{Kind: "test/bump"})
	inner := seal(t, di)

	in := Interpreter{
		"test/bump": func(ctx context.Context, c *Call) (cty.Value, error) {
			return c.Stash().Update("n", func(v cty.Value, ok bool) (cty.Value, error) {
				if !ok {
					return cty.NumberIntVal(1), nil
				}
				return v.Add(cty.NumberIntVal(1)), nil
			})
		},
		"test/loop3": func(ctx context.Context, c *Call) (cty.Value, error) {
			var last cty.Value
			var err error
			for i := 0; i < 3; i++ {
				if last, err = c.Subfold(ctx, inner); err != nil {
					return cty.NilVal, err
				}
			}
			return last, nil
		},
	}

	d := expr.NewDirty()
	d.Root = d.AddNode(expr.Entry{Kind: "test/loop3"})
	g := seal(t, d)

	v, err := Fold(context.Background(), in, g)
	if err != nil {
		t.Fatalf("Fold() = %v", err)
	}
	if num(v) != 3 {
		t.Errorf("Fold() = %v, want 3 (stash shared across subfolds)", v)
	}

	// An independent fold starts with an empty stash.
	v2, err := Fold(context.Background(), in, g)
	if err != nil {
		t.Fatalf("Fold() = %v", err)
	}
	if num(v2) != 3 {
		t.Errorf("second Fold() = %v, want 3 (fresh stash)", v2)
	}
}

func TestMerge(t *testing.T) {
	a := Interpreter{"x/a": nil, "x/shared": func(context.Context, *Call) (cty.Value, error) {
		return cty.StringVal("first"), nil
	}}
	b := Interpreter{"x/b": nil, "x/shared": func(context.Context, *Call) (cty.Value, error) {
		return cty.StringVal("second"), nil
	}}

	m := Merge(a, b)
	if len(m) != 3 {
		t.Errorf("len = %d, want 3", len(m))
	}
	v, _ := m["x/shared"](context.Background(), nil)
	if v.AsString() != "second" {
		t.Errorf("shared kind resolved to %q, want last-write-wins \"second\"", v.AsString())
	}
}

func TestFoldContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := expr.NewDirty()
	d.Root = d.AddNode(expr.Entry{Kind: "test/const", Children: []expr.Child{expr.Lit(cty.Zero)}})
	g := seal(t, d)

	if _, err := Fold(ctx, testInterp(), g); !errors.Is(err, context.Canceled) {
		t.Errorf("Fold() error = %v, want context.Canceled", err)
	}
}
