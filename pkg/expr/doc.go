// Package expr provides the expression-graph data model at the heart of
// nexpr: a directed acyclic graph of typed operation nodes with a sealed
// (immutable) and an editable (mutable) representation.
//
// # Overview
//
// Programs are built as graphs rather than trees: every node is addressed by
// a [NodeID] and stored in a flat adjacency map, so two parents may share the
// same child (structural sharing). Each node carries an [Entry] describing
// its operation kind, its ordered children, and an output type tag used for
// validation. Children are either references to other nodes or inline
// literal values ([Ref] and [Lit]).
//
// # Sealed and Editable Graphs
//
// The same graph exists in two forms:
//
//   - [NExpr]: sealed and immutable. Accessors return defensive copies, so a
//     sealed graph can be shared freely and is the only form the fold
//     evaluator accepts.
//   - [DirtyExpr]: an editable working copy with exported maps and a fresh-id
//     counter. Rewrites edit it in place; nothing checks integrity until
//     commit.
//
// The lifecycle is a one-way gate in each direction:
//
//	sealed := mustBuild()            // NExpr
//	d := sealed.Dirty()              // editable copy
//	d.Nodes["n2"] = newEntry         // edit freely
//	sealed2, err := d.Commit()       // re-validate and seal
//
// [DirtyExpr.Commit] verifies referential integrity (every child reference
// and alias target resolves, the root exists) and acyclicity before sealing.
// A malformed graph fails fast at commit rather than deep into evaluation.
//
// # Output Types
//
// Entry output tags are [cty.Type] values. They are not consulted during
// evaluation; they exist so that edits which would change the type an
// ancestor consumes are rejected up front. [DirtyExpr.SwapEntry] and
// [DirtyExpr.RewireChildren] enforce this with [TypesCompatible], where
// [cty.DynamicPseudoType] (or an unset tag) opts a node out of checking.
//
// # Aliases
//
// A graph carries a side table of human-chosen names for nodes. Aliases do
// not affect reachability or evaluation; they exist so tooling and the dagql
// ByName predicate can address nodes stably across rewrites.
//
// # Concurrency
//
// NExpr values are immutable and safe for concurrent use. DirtyExpr values
// are not; callers must synchronize access if multiple goroutines edit the
// same working copy.
//
// # Related Packages
//
// The [dagql] package provides the query and rewrite algebra over graphs,
// and [fold] evaluates sealed graphs against an interpreter.
//
// [dagql]: github.com/veldran/nexpr/pkg/dagql
// [fold]: github.com/veldran/nexpr/pkg/fold
package expr
