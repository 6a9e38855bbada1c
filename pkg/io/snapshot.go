// Package io serializes sealed expression graphs to and from a JSON
// snapshot format.
//
// A snapshot captures the full graph: root, adjacency map, output type
// tags, and the alias table. Literal children carry both their value and
// their cty type, so arbitrary values survive the round trip. Reading a
// snapshot re-commits it, so a hand-edited or corrupted file fails with
// the same integrity errors an invalid edit would.
package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/veldran/nexpr/pkg/expr"
)

// snapshot is the top-level JSON document.
type snapshot struct {
	Root    string              `json:"root"`
	Nodes   map[string]nodeJSON `json:"nodes"`
	Aliases map[string]string   `json:"aliases,omitempty"`
}

type nodeJSON struct {
	Kind     string          `json:"kind"`
	Children []childJSON     `json:"children,omitempty"`
	Out      json.RawMessage `json:"out,omitempty"`
}

// childJSON is one child slot: either a node reference or an inline
// literal (value plus its type).
type childJSON struct {
	Ref   string          `json:"ref,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
	Type  json.RawMessage `json:"type,omitempty"`
}

// MarshalExpr encodes a sealed graph as snapshot JSON.
func MarshalExpr(g expr.NExpr) ([]byte, error) {
	snap := snapshot{
		Root:  string(g.RootID()),
		Nodes: make(map[string]nodeJSON, g.Len()),
	}

	for _, id := range g.IDs() {
		e, _ := g.Entry(id)
		node := nodeJSON{Kind: e.Kind}
		for _, c := range e.Children {
			child, err := encodeChild(c)
			if err != nil {
				return nil, fmt.Errorf("node %q: %w", id, err)
			}
			node.Children = append(node.Children, child)
		}
		if e.Out != cty.NilType && e.Out != cty.DynamicPseudoType {
			out, err := ctyjson.MarshalType(e.Out)
			if err != nil {
				return nil, fmt.Errorf("node %q: output tag: %w", id, err)
			}
			node.Out = out
		}
		snap.Nodes[string(id)] = node
	}

	if table := g.AliasTable(); len(table) > 0 {
		snap.Aliases = make(map[string]string, len(table))
		for name, id := range table {
			snap.Aliases[name] = string(id)
		}
	}

	return json.MarshalIndent(snap, "", "  ")
}

// UnmarshalExpr decodes snapshot JSON and commits the result. Dangling
// references, unknown roots, dangling aliases, and cycles in the document
// surface as the corresponding [expr] integrity errors.
func UnmarshalExpr(data []byte) (expr.NExpr, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return expr.NExpr{}, fmt.Errorf("decode snapshot: %w", err)
	}

	d := expr.NewDirty()
	d.Root = expr.NodeID(snap.Root)
	for rawID, node := range snap.Nodes {
		e := expr.Entry{Kind: node.Kind}
		for i, c := range node.Children {
			child, err := decodeChild(c)
			if err != nil {
				return expr.NExpr{}, fmt.Errorf("node %q child %d: %w", rawID, i, err)
			}
			e.Children = append(e.Children, child)
		}
		if node.Out != nil {
			out, err := ctyjson.UnmarshalType(node.Out)
			if err != nil {
				return expr.NExpr{}, fmt.Errorf("node %q: output tag: %w", rawID, err)
			}
			e.Out = out
		}
		d.Nodes[expr.NodeID(rawID)] = e
	}
	for name, id := range snap.Aliases {
		d.Aliases[name] = expr.NodeID(id)
	}

	return d.Commit()
}

// WriteExpr writes a graph's snapshot JSON to w.
func WriteExpr(w io.Writer, g expr.NExpr) error {
	data, err := MarshalExpr(g)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// ReadExpr reads snapshot JSON from r and commits it.
func ReadExpr(r io.Reader) (expr.NExpr, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return expr.NExpr{}, err
	}
	return UnmarshalExpr(data)
}

// WriteExprFile writes a graph's snapshot to the file at path.
func WriteExprFile(path string, g expr.NExpr) error {
	data, err := MarshalExpr(g)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// ReadExprFile reads and commits the snapshot stored at path.
func ReadExprFile(path string) (expr.NExpr, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return expr.NExpr{}, err
	}
	return UnmarshalExpr(data)
}

func encodeChild(c expr.Child) (childJSON, error) {
	if c.IsRef() {
		return childJSON{Ref: string(c.Target())}, nil
	}
	v := c.Literal()
	if v == cty.NilVal {
		v = cty.NullVal(cty.DynamicPseudoType)
	}
	ty, err := ctyjson.MarshalType(v.Type())
	if err != nil {
		return childJSON{}, fmt.Errorf("literal type: %w", err)
	}
	val, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return childJSON{}, fmt.Errorf("literal value: %w", err)
	}
	return childJSON{Value: val, Type: ty}, nil
}

func decodeChild(c childJSON) (expr.Child, error) {
	if c.Ref != "" {
		return expr.Ref(expr.NodeID(c.Ref)), nil
	}
	if c.Type == nil {
		return expr.Child{}, fmt.Errorf("child is neither a ref nor a typed literal")
	}
	ty, err := ctyjson.UnmarshalType(c.Type)
	if err != nil {
		return expr.Child{}, fmt.Errorf("literal type: %w", err)
	}
	v, err := ctyjson.Unmarshal(c.Value, ty)
	if err != nil {
		return expr.Child{}, fmt.Errorf("literal value: %w", err)
	}
	return expr.Lit(v), nil
}
