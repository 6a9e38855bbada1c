package io

import (
	"bytes"
	"errors"
	"testing"

	"github.com/zclconf/go-cty/cty"

	"github.com/veldran/nexpr/pkg/expr"
)

func buildGraph(t *testing.T) expr.NExpr {
	t.Helper()
	d := expr.NewDirty()
	d.Nodes["x"] = expr.Entry{
		Kind:     "math/const",
		Children: []expr.Child{expr.Lit(cty.NumberIntVal(5))},
		Out:      cty.Number,
	}
	d.Nodes["add"] = expr.Entry{
		Kind:     "math/add",
		Children: []expr.Child{expr.Ref("x"), expr.Lit(cty.NumberIntVal(10))},
	}
	d.Root = "add"
	d.Aliases["input"] = "x"
	g, err := d.Commit()
	if err != nil {
		t.Fatalf("Commit() = %v", err)
	}
	return g
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := buildGraph(t)

	data, err := MarshalExpr(g)
	if err != nil {
		t.Fatalf("MarshalExpr() = %v", err)
	}
	got, err := UnmarshalExpr(data)
	if err != nil {
		t.Fatalf("UnmarshalExpr() = %v", err)
	}
	if !got.Equal(g) {
		t.Error("round-tripped graph differs from the original")
	}
}

func TestSnapshotRoundTripRicherLiterals(t *testing.T) {
	d := expr.NewDirty()
	d.Root = d.AddNode(expr.Entry{Kind: "test/obj", Children: []expr.Child{
		expr.Lit(cty.ObjectVal(map[string]cty.Value{
			"name": cty.StringVal("ada"),
			"tags": cty.ListVal([]cty.Value{cty.StringVal("a"), cty.StringVal("b")}),
		})),
		expr.Lit(cty.True),
		expr.Lit(cty.NullVal(cty.String)),
	}})
	g, err := d.Commit()
	if err != nil {
		t.Fatalf("Commit() = %v", err)
	}

	data, err := MarshalExpr(g)
	if err != nil {
		t.Fatalf("MarshalExpr() = %v", err)
	}
	got, err := UnmarshalExpr(data)
	if err != nil {
		t.Fatalf("UnmarshalExpr() = %v", err)
	}
	if !got.Equal(g) {
		t.Error("round-tripped graph differs from the original")
	}
}

func TestReadWriteExpr(t *testing.T) {
	g := buildGraph(t)

	var buf bytes.Buffer
	if err := WriteExpr(&buf, g); err != nil {
		t.Fatalf("WriteExpr() = %v", err)
	}
	got, err := ReadExpr(&buf)
	if err != nil {
		t.Fatalf("ReadExpr() = %v", err)
	}
	if !got.Equal(g) {
		t.Error("round-tripped graph differs from the original")
	}
}

func TestReadWriteExprFile(t *testing.T) {
	g := buildGraph(t)
	path := t.TempDir() + "/graph.json"

	if err := WriteExprFile(path, g); err != nil {
		t.Fatalf("WriteExprFile() = %v", err)
	}
	got, err := ReadExprFile(path)
	if err != nil {
		t.Fatalf("ReadExprFile() = %v", err)
	}
	if !got.Equal(g) {
		t.Error("round-tripped graph differs from the original")
	}
}

// Importing validates: a snapshot that references a missing node fails
// with the same integrity error an invalid edit would.
func TestUnmarshalValidates(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{
			name:    "dangling reference",
			doc:     `{"root":"a","nodes":{"a":{"kind":"k","children":[{"ref":"ghost"}]}}}`,
			wantErr: expr.ErrDanglingReference,
		},
		{
			name:    "unknown root",
			doc:     `{"root":"ghost","nodes":{"a":{"kind":"k"}}}`,
			wantErr: expr.ErrUnknownRoot,
		},
		{
			name:    "dangling alias",
			doc:     `{"root":"a","nodes":{"a":{"kind":"k"}},"aliases":{"x":"ghost"}}`,
			wantErr: expr.ErrDanglingAlias,
		},
		{
			name:    "cycle",
			doc:     `{"root":"a","nodes":{"a":{"kind":"k","children":[{"ref":"b"}]},"b":{"kind":"k","children":[{"ref":"a"}]}}}`,
			wantErr: expr.ErrGraphHasCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalExpr([]byte(tt.doc))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("UnmarshalExpr() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestUnmarshalRejectsMalformedJSON(t *testing.T) {
	if _, err := UnmarshalExpr([]byte("{not json")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestUnmarshalRejectsUntypedChild(t *testing.T) {
	doc := `{"root":"a","nodes":{"a":{"kind":"k","children":[{}]}}}`
	if _, err := UnmarshalExpr([]byte(doc)); err == nil {
		t.Fatal("expected error for child with neither ref nor literal")
	}
}
