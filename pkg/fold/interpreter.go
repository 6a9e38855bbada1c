package fold

import (
	"context"
	"errors"
	"maps"

	"github.com/zclconf/go-cty/cty"
)

// ErrMissingHandler is returned by [Fold] when the graph contains a kind
// the interpreter has no handler for. Fatal for that fold call.
var ErrMissingHandler = errors.New("no handler for kind")

// Handler evaluates one node. It may resolve any of the node's children
// through [Call.Arg], perform its own blocking or asynchronous work, and
// returns the node's value. The returned value becomes the node's cached
// result for the rest of the fold call.
type Handler func(ctx context.Context, c *Call) (cty.Value, error)

// Interpreter maps namespaced operation kinds ("math/add") to handlers.
// Plain map semantics on purpose: plugins hand out their kinds as an
// Interpreter and hosts compose them with [Merge].
type Interpreter map[string]Handler

// Merge unions interpreters into a new one. Overlapping kinds are
// last-write-wins in argument order; there is no guard against shadowing a
// kind, so compose plugins deliberately.
func Merge(ins ...Interpreter) Interpreter {
	out := make(Interpreter)
	for _, in := range ins {
		maps.Copy(out, in)
	}
	return out
}
