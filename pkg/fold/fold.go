package fold

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zclconf/go-cty/cty"

	"github.com/veldran/nexpr/pkg/expr"
	"github.com/veldran/nexpr/pkg/observability"
)

// inflight is one node's evaluation slot in the per-fold cache. The done
// channel closes when val and err are final; late requesters wait on it
// instead of re-running the handler.
type inflight struct {
	done chan struct{}
	val  cty.Value
	err  error
}

// runner executes one (sub)fold over one sealed graph. The memo map is the
// only shared mutable state: get-or-start under the mutex, handler
// execution outside it, so independent subtrees evaluate concurrently when
// handlers fan out.
type runner struct {
	in    Interpreter
	g     expr.NExpr
	stash *Stash
	runID string

	mu   sync.Mutex
	memo map[expr.NodeID]*inflight
}

// Fold evaluates the sealed graph's root node against the interpreter and
// returns its value. Every fold call is independent: it gets a fresh result
// cache, a fresh [Stash], and a run ID surfaced through the observability
// fold hooks.
//
// Fold returns [ErrMissingHandler] if the graph contains an unregistered
// kind; handler errors propagate unchanged. The context cancels the fold
// between handler dispatches and wherever handlers honor it.
func Fold(ctx context.Context, in Interpreter, g expr.NExpr) (cty.Value, error) {
	r := &runner{
		in:    in,
		g:     g,
		stash: NewStash(),
		runID: uuid.NewString(),
		memo:  make(map[expr.NodeID]*inflight, g.Len()),
	}

	start := time.Now()
	observability.Fold().OnFoldStart(ctx, r.runID, g.Len())
	v, err := r.eval(ctx, g.RootID())
	observability.Fold().OnFoldComplete(ctx, r.runID, time.Since(start), err)
	return v, err
}

// eval resolves one node through the single-flight cache: the first caller
// for an ID claims its slot and runs the handler; everyone else waits on
// the slot. Results, including errors, stay cached for the rest of the
// fold.
func (r *runner) eval(ctx context.Context, id expr.NodeID) (cty.Value, error) {
	r.mu.Lock()
	if f, ok := r.memo[id]; ok {
		r.mu.Unlock()
		select {
		case <-f.done:
			return f.val, f.err
		case <-ctx.Done():
			return cty.NilVal, ctx.Err()
		}
	}
	f := &inflight{done: make(chan struct{})}
	r.memo[id] = f
	r.mu.Unlock()

	f.val, f.err = r.dispatch(ctx, id)
	close(f.done)
	return f.val, f.err
}

func (r *runner) dispatch(ctx context.Context, id expr.NodeID) (cty.Value, error) {
	if err := ctx.Err(); err != nil {
		return cty.NilVal, err
	}
	e, ok := r.g.Entry(id)
	if !ok {
		// Unreachable on a committed graph; guards against a zero NExpr.
		return cty.NilVal, fmt.Errorf("fold: node %q: %w", id, expr.ErrUnknownNode)
	}
	h, ok := r.in[e.Kind]
	if !ok {
		return cty.NilVal, fmt.Errorf("fold: node %q kind %q: %w", id, e.Kind, ErrMissingHandler)
	}

	start := time.Now()
	observability.Fold().OnNodeStart(ctx, r.runID, string(id), e.Kind)
	v, err := h(ctx, &Call{r: r, id: id, entry: e})
	observability.Fold().OnNodeComplete(ctx, r.runID, string(id), e.Kind, time.Since(start), err)
	return v, err
}

// subfold evaluates another sealed graph with the same interpreter, stash,
// and run ID, but a fresh memo cache.
func (r *runner) subfold(ctx context.Context, g expr.NExpr) (cty.Value, error) {
	sub := &runner{
		in:    r.in,
		g:     g,
		stash: r.stash,
		runID: r.runID,
		memo:  make(map[expr.NodeID]*inflight, g.Len()),
	}
	return sub.eval(ctx, g.RootID())
}
