// Package plugins bundles the stock handler libraries shipped with nexpr.
//
// Each subpackage contributes one namespace of operation kinds as a
// [fold.Interpreter] returned from its New function:
//
//   - arith: numeric operations (math/add, math/mul, ...)
//   - strs: string operations (str/concat, str/upper, ...)
//   - boolean: logic and comparisons (bool/and, cmp/lt, ...)
//   - cell: fold-scoped mutable cells (cell/set, cell/get, cell/incr)
//   - flow: control flow (flow/if, flow/while, flow/try, ...)
//   - par: concurrency combinators (par/all, par/race, par/timeout, ...)
//   - kv: key-value store bindings over pluggable backends
//   - web: HTTP fetch bindings
//
// [Standard] composes the dependency-free ones; kv and web need external
// collaborators (a store backend, an HTTP client) and are merged in
// explicitly by hosts that want them:
//
//	in := fold.Merge(plugins.Standard(), kv.New(store))
//	value, err := fold.Fold(ctx, in, graph)
//
// Composition is plain key union with last-write-wins on overlapping
// kinds; see [fold.Merge].
package plugins
