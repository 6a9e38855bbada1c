package render

import (
	"strings"
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

func TestToDOT(t *testing.T) {
	dot := ToDOT(buildGraph(t), Options{})

	for _, want := range []string{
		"digraph G {",
		`"add" -> "x" [label="0"];`,
		"math/add",
		"math/const",
		"(input)",
		"peripheries=2",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT output missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTDetailed(t *testing.T) {
	dot := ToDOT(buildGraph(t), Options{Detailed: true})

	for _, want := range []string{
		"out: number",
		"arg 0: 5",
		"arg 1: 10",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("detailed DOT output missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTDeterministic(t *testing.T) {
	g := buildGraph(t)
	first := ToDOT(g, Options{Detailed: true})
	for range 5 {
		if got := ToDOT(g, Options{Detailed: true}); got != first {
			t.Fatal("ToDOT output is not deterministic")
		}
	}
}

func TestLitString(t *testing.T) {
	tests := []struct {
		name string
		val  cty.Value
		want string
	}{
		{"string", cty.StringVal("hi"), `"hi"`},
		{"number", cty.NumberIntVal(42), "42"},
		{"bool", cty.True, "true"},
		{"null", cty.NullVal(cty.String), "null"},
		{"collection shows type", cty.ListVal([]cty.Value{cty.True}), "list of bool"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := litString(tt.val); got != tt.want {
				t.Errorf("litString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(ToDOT(buildGraph(t), Options{}))
	if err != nil {
		t.Fatalf("RenderSVG() = %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Error("output does not look like SVG")
	}
	if !strings.Contains(string(svg), `viewBox="0 0`) {
		t.Error("viewBox was not normalized")
	}
}

func TestNormalizeViewBoxPassthrough(t *testing.T) {
	in := []byte("<svg>no viewbox here</svg>")
	if got := normalizeViewBox(in); string(got) != string(in) {
		t.Errorf("normalizeViewBox changed SVG without a viewBox: %s", got)
	}
}
