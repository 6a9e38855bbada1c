package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/veldran/nexpr/pkg/expr"
	"github.com/veldran/nexpr/pkg/exprfile"
	nexprio "github.com/veldran/nexpr/pkg/io"
)

// loadExpr reads a committed graph from path, dispatching on the file
// extension: .hcl documents go through the exprfile parser, everything
// else is treated as snapshot JSON.
func loadExpr(path string) (expr.NExpr, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return exprfile.ParseFile(path)
	case ".json":
		return nexprio.ReadExprFile(path)
	default:
		return expr.NExpr{}, fmt.Errorf("unsupported graph format %q (use .hcl or .json)", filepath.Ext(path))
	}
}

// valueString formats a folded value for terminal output. Strings print
// bare, everything else as compact ctyjson.
func valueString(v cty.Value) string {
	if v.IsNull() {
		return "null"
	}
	if v.Type() == cty.String {
		return v.AsString()
	}
	data, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return v.GoString()
	}
	return string(data)
}
