// Package exprfile parses expression graphs from HCL documents.
//
// A document names its root, optionally binds aliases, and declares one
// block per node. Children appear as an args tuple mixing inline literals
// with ref("<id>") references; out declares the node's output type tag
// using HCL type expression syntax:
//
//	root = "mul"
//
//	aliases = {
//	  input = "x"
//	}
//
//	node "x" "math/const" {
//	  args = [5]
//	  out  = number
//	}
//
//	node "add" "math/add" {
//	  args = [ref("x"), 10]
//	}
//
//	node "mul" "math/mul" {
//	  args = [ref("add"), 2]
//	}
//
// Parsing builds an editable graph and commits it, so documents with
// dangling references, unknown roots, or cycles fail with the usual
// integrity errors.
package exprfile

import (
	"fmt"
	"os"
	"reflect"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/ext/typeexpr"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/veldran/nexpr/pkg/expr"
)

// refType is the capsule type carried by ref(...) values so node
// references survive evaluation of the args tuple.
var refType = cty.Capsule("node reference", reflect.TypeOf(expr.NodeID("")))

// refFunc implements the ref("<id>") call available inside args.
var refFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "id", Type: cty.String},
	},
	Type: function.StaticReturnType(refType),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		id := expr.NodeID(args[0].AsString())
		if id == "" {
			return cty.NilVal, fmt.Errorf("ref: node id must not be empty")
		}
		return cty.CapsuleVal(refType, &id), nil
	},
})

type fileRoot struct {
	Root    string            `hcl:"root"`
	Aliases map[string]string `hcl:"aliases,optional"`
	Nodes   []*nodeBlock      `hcl:"node,block"`
}

type nodeBlock struct {
	ID   string         `hcl:"id,label"`
	Kind string         `hcl:"kind,label"`
	Args hcl.Expression `hcl:"args,optional"`
	Out  hcl.Expression `hcl:"out,optional"`
}

// Parse builds a sealed graph from HCL source. The filename is used only
// in diagnostics.
func Parse(src []byte, filename string) (expr.NExpr, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return expr.NExpr{}, fmt.Errorf("parse %s: %w", filename, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return expr.NExpr{}, fmt.Errorf("decode %s: %w", filename, diags)
	}

	d := expr.NewDirty()
	d.Root = expr.NodeID(root.Root)
	for name, id := range root.Aliases {
		d.Aliases[name] = expr.NodeID(id)
	}

	for _, node := range root.Nodes {
		if node.Kind == "" {
			return expr.NExpr{}, fmt.Errorf("node %q: kind label must not be empty", node.ID)
		}
		if _, taken := d.Nodes[expr.NodeID(node.ID)]; taken {
			return expr.NExpr{}, fmt.Errorf("node %q: duplicate node id", node.ID)
		}

		e := expr.Entry{Kind: node.Kind}
		children, err := decodeArgs(node.Args)
		if err != nil {
			return expr.NExpr{}, fmt.Errorf("node %q: %w", node.ID, err)
		}
		e.Children = children

		out, err := decodeOut(node.Out)
		if err != nil {
			return expr.NExpr{}, fmt.Errorf("node %q: %w", node.ID, err)
		}
		e.Out = out

		d.Nodes[expr.NodeID(node.ID)] = e
	}

	return d.Commit()
}

// ParseFile reads and parses the HCL document at path.
func ParseFile(path string) (expr.NExpr, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return expr.NExpr{}, err
	}
	return Parse(src, path)
}

// decodeArgs evaluates the args tuple into child slots. ref(...) values
// become references, everything else an inline literal.
func decodeArgs(args hcl.Expression) ([]expr.Child, error) {
	if args == nil {
		return nil, nil
	}
	ctx := &hcl.EvalContext{
		Functions: map[string]function.Function{"ref": refFunc},
	}
	v, diags := args.Value(ctx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("args: %w", diags)
	}
	if v.IsNull() {
		return nil, nil
	}
	if !v.Type().IsTupleType() && !v.Type().IsListType() {
		return nil, fmt.Errorf("args: must be a tuple, got %s", v.Type().FriendlyName())
	}

	var children []expr.Child
	for it := v.ElementIterator(); it.Next(); {
		_, el := it.Element()
		if el.Type().Equals(refType) {
			id := el.EncapsulatedValue().(*expr.NodeID)
			children = append(children, expr.Ref(*id))
			continue
		}
		children = append(children, expr.Lit(el))
	}
	return children, nil
}

// decodeOut translates an HCL type expression (number, string,
// list(number), ...) into the node's output tag. Absent means dynamic.
func decodeOut(out hcl.Expression) (cty.Type, error) {
	if out == nil {
		return cty.NilType, nil
	}
	// gohcl represents an absent optional expression attribute as a
	// synthetic null literal.
	if v, diags := out.Value(nil); !diags.HasErrors() && v.IsNull() && v.Type() == cty.DynamicPseudoType {
		return cty.NilType, nil
	}
	ty, diags := typeexpr.TypeConstraint(out)
	if diags.HasErrors() {
		return cty.NilType, fmt.Errorf("out: %w", diags)
	}
	return ty, nil
}
