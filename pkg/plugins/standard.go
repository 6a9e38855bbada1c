package plugins

import (
	"github.com/veldran/nexpr/pkg/fold"
	"github.com/veldran/nexpr/pkg/plugins/arith"
	"github.com/veldran/nexpr/pkg/plugins/boolean"
	"github.com/veldran/nexpr/pkg/plugins/cell"
	"github.com/veldran/nexpr/pkg/plugins/flow"
	"github.com/veldran/nexpr/pkg/plugins/par"
	"github.com/veldran/nexpr/pkg/plugins/strs"
)

// Standard returns the interpreter composed from all stock plugins that
// need no external collaborators: arith, strs, boolean, cell, flow, and
// par. The kv and web plugins are constructed separately because they wrap
// a store backend or HTTP client.
func Standard() fold.Interpreter {
	return fold.Merge(
		arith.New(),
		strs.New(),
		boolean.New(),
		cell.New(),
		flow.New(),
		par.New(),
	)
}
