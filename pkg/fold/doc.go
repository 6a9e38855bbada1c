// Package fold evaluates sealed expression graphs against an interpreter.
//
// An [Interpreter] is a plain map from namespaced operation kind to
// [Handler]. [Fold] walks a committed graph from its root, dispatching the
// handler registered for each node's kind. Handlers receive a [Call] and
// pull the values they need through [Call.Arg]: requesting child i resolves
// an inline literal immediately or recursively evaluates the referenced
// node. A handler may request zero, some, or all of its children, in any
// order and conditionally, which is how optional arguments and
// short-circuit operators are built.
//
// # At-Most-Once Evaluation
//
// A node with several parents is evaluated once per fold call. Each fold
// keeps a single-flight result cache keyed by node ID: the first request
// for a node runs its handler, concurrent and later requests wait for and
// share that result. Failed evaluations are cached too — a handler whose
// side effects fired before it failed must not fire them again within the
// same fold.
//
// The cache is scoped to one fold call. Handlers that need to run a
// subgraph repeatedly (loops, retries) must clone it with fresh IDs first
// (see the dagql Instantiate primitive) and evaluate the clone with
// [Call.Subfold], which shares the interpreter and [Stash] but starts an
// empty cache.
//
// # Concurrency
//
// The evaluator spawns no goroutines; handlers may. [Call.Arg] is safe to
// call from multiple goroutines, so fan-out handlers can resolve children
// in parallel and the cache will coalesce duplicate requests. Cancellation
// flows through the context: a handler abandoned by its parent keeps its
// cache slot, and anyone else waiting on that node observes the same
// outcome.
//
// # Errors
//
// A kind with no registered handler fails the fold with
// [ErrMissingHandler]. Handler errors propagate unchanged through Arg to
// the root; catching them is plugin territory, not the evaluator's.
package fold
