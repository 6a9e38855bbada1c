package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zclconf/go-cty/cty"

	"github.com/veldran/nexpr/pkg/expr"
	nexprio "github.com/veldran/nexpr/pkg/io"
)

// buildArith commits the graph (x + 10) * 2 with x = 5.
func buildArith(t *testing.T) expr.NExpr {
	t.Helper()
	d := expr.NewDirty()
	d.Nodes["x"] = expr.Entry{Kind: "math/const", Children: []expr.Child{expr.Lit(cty.NumberIntVal(5))}}
	d.Nodes["add"] = expr.Entry{Kind: "math/add", Children: []expr.Child{expr.Ref("x"), expr.Lit(cty.NumberIntVal(10))}}
	d.Nodes["mul"] = expr.Entry{Kind: "math/mul", Children: []expr.Child{expr.Ref("add"), expr.Lit(cty.NumberIntVal(2))}}
	d.Root = "mul"
	g, err := d.Commit()
	if err != nil {
		t.Fatalf("Commit() = %v", err)
	}
	return g
}

func TestLoadExprJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	if err := nexprio.WriteExprFile(path, buildArith(t)); err != nil {
		t.Fatalf("WriteExprFile: %v", err)
	}

	g, err := loadExpr(path)
	if err != nil {
		t.Fatalf("loadExpr() = %v", err)
	}
	if g.Len() != 3 || g.RootID() != "mul" {
		t.Errorf("loaded graph = %d nodes, root %s", g.Len(), g.RootID())
	}
}

func TestLoadExprHCL(t *testing.T) {
	doc := `
root = "x"

node "x" "math/const" {
  args = [5]
}
`
	path := filepath.Join(t.TempDir(), "graph.hcl")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	g, err := loadExpr(path)
	if err != nil {
		t.Fatalf("loadExpr() = %v", err)
	}
	if g.RootID() != "x" {
		t.Errorf("root = %s, want x", g.RootID())
	}
}

func TestLoadExprUnsupportedExtension(t *testing.T) {
	if _, err := loadExpr("graph.yaml"); err == nil {
		t.Error("unsupported extension should fail")
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		name string
		val  cty.Value
		want string
	}{
		{"null", cty.NullVal(cty.String), "null"},
		{"bare string", cty.StringVal("hello"), "hello"},
		{"number", cty.NumberIntVal(30), "30"},
		{"bool", cty.True, "true"},
		{"list", cty.ListVal([]cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(2)}), "[1,2]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := valueString(tt.val); got != tt.want {
				t.Errorf("valueString() = %q, want %q", got, tt.want)
			}
		})
	}
}
