// Package render draws expression graphs as node-link diagrams: Graphviz
// DOT text, optionally rendered to SVG.
package render

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/zclconf/go-cty/cty"

	"github.com/veldran/nexpr/pkg/expr"
)

// Options configures diagram rendering.
type Options struct {
	// Detailed includes output type tags and inline literal values in node
	// labels. When false, only the node ID and kind are shown.
	Detailed bool
}

// ToDOT converts an expression graph to Graphviz DOT format. The root node
// gets a double border, aliased nodes show their names, and reference
// edges carry their child position so argument order stays readable.
// Render the result with [RenderSVG].
func ToDOT(g expr.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	names := aliasesByNode(g)
	ids := g.IDs()
	slices.Sort(ids)

	for _, id := range ids {
		e, _ := g.Entry(id)
		label := fmtLabel(id, e, names[id], opts.Detailed)
		attrs := fmtAttrs(g, id, label)
		fmt.Fprintf(&buf, "  %q [%s];\n", id, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, id := range ids {
		e, _ := g.Entry(id)
		for i, c := range e.Children {
			if c.IsRef() {
				fmt.Fprintf(&buf, "  %q -> %q [label=\"%d\"];\n", id, c.Target(), i)
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// aliasesByNode inverts the alias table: node ID to its sorted names.
func aliasesByNode(g expr.Graph) map[expr.NodeID][]string {
	out := make(map[expr.NodeID][]string)
	table := g.AliasTable()
	for _, name := range slices.Sorted(maps.Keys(table)) {
		id := table[name]
		out[id] = append(out[id], name)
	}
	return out
}

func fmtLabel(id expr.NodeID, e expr.Entry, names []string, detailed bool) string {
	parts := []string{fmt.Sprintf("%s\n%s", id, e.Kind)}
	if len(names) > 0 {
		parts = append(parts, "("+strings.Join(names, ", ")+")")
	}
	if detailed {
		if e.Out != cty.NilType && e.Out != cty.DynamicPseudoType {
			parts = append(parts, "out: "+e.Out.FriendlyName())
		}
		for i, c := range e.Children {
			if !c.IsRef() {
				parts = append(parts, fmt.Sprintf("arg %d: %s", i, litString(c.Literal())))
			}
		}
	}
	return strings.Join(parts, "\n")
}

func litString(v cty.Value) string {
	if v.IsNull() {
		return "null"
	}
	switch v.Type() {
	case cty.String:
		return strconv.Quote(v.AsString())
	case cty.Number:
		return v.AsBigFloat().Text('g', -1)
	case cty.Bool:
		return strconv.FormatBool(v.True())
	default:
		return v.Type().FriendlyName()
	}
}

func fmtAttrs(g expr.Graph, id expr.NodeID, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if id == g.RootID() {
		attrs = append(attrs, "peripheries=2")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the SVG root element to a zero-origin viewBox
// with explicit pixel dimensions, which embeds more predictably.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
