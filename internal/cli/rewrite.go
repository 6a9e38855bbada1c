package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veldran/nexpr/pkg/dagql"
	"github.com/veldran/nexpr/pkg/expr"
	nexprio "github.com/veldran/nexpr/pkg/io"
)

// rewriteOpts holds the command-line flags for the rewrite command.
// Operations apply in a fixed order: replace, wrap, alias, splice, gc.
type rewriteOpts struct {
	output   string   // output file path (defaults next to the input)
	replaces []string // "oldkind=newkind" pairs
	wraps    []string // "nodeid=kind" pairs
	aliases  []string // "name=nodeid" pairs
	splices  []string // kinds whose nodes get spliced out
	gc       bool     // drop unreachable nodes at the end
}

// newRewriteCmd creates the rewrite command, which applies structural edits
// to a graph document and writes the result as snapshot JSON.
func newRewriteCmd() *cobra.Command {
	var opts rewriteOpts

	cmd := &cobra.Command{
		Use:   "rewrite [file]",
		Short: "Relabel, wrap, splice, or garbage-collect graph nodes",
		Long: `Rewrite applies structural edits to a graph document and writes the result
as snapshot JSON. Operations apply in a fixed order regardless of flag
position: --replace, --wrap, --alias, --splice, then --gc.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRewrite(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (defaults to <input>_rewritten.json)")
	cmd.Flags().StringArrayVar(&opts.replaces, "replace", nil, "relabel nodes: oldkind=newkind (repeatable)")
	cmd.Flags().StringArrayVar(&opts.wraps, "wrap", nil, "wrap a node in a new parent: nodeid=kind (repeatable)")
	cmd.Flags().StringArrayVar(&opts.aliases, "alias", nil, "register an alias: name=nodeid (repeatable)")
	cmd.Flags().StringArrayVar(&opts.splices, "splice", nil, "splice out single-ref nodes of this kind (repeatable)")
	cmd.Flags().BoolVar(&opts.gc, "gc", false, "drop nodes unreachable from the root")

	return cmd
}

// splitPair parses a "left=right" flag value.
func splitPair(s, flag string) (string, string, error) {
	left, right, ok := strings.Cut(s, "=")
	if !ok || left == "" || right == "" {
		return "", "", fmt.Errorf("invalid --%s value %q (want left=right)", flag, s)
	}
	return left, right, nil
}

func runRewrite(ctx context.Context, input string, opts *rewriteOpts) error {
	logger := loggerFromContext(ctx)

	g, err := loadExpr(input)
	if err != nil {
		return err
	}
	before := g.Len()

	d := expr.NewDirtyFrom(g)

	for _, pair := range opts.replaces {
		oldKind, newKind, err := splitPair(pair, "replace")
		if err != nil {
			return err
		}
		d = dagql.ReplaceWhere(d, dagql.ByKind(oldKind), newKind)
		logger.Debugf("Replaced kind %s with %s", oldKind, newKind)
	}

	for _, pair := range opts.wraps {
		id, kind, err := splitPair(pair, "wrap")
		if err != nil {
			return err
		}
		wrapped, parent, err := dagql.WrapByName(d, expr.NodeID(id), kind)
		if err != nil {
			return fmt.Errorf("wrap %s: %w", id, err)
		}
		d = wrapped
		logger.Debugf("Wrapped %s in %s node %s", id, kind, parent)
	}

	for _, pair := range opts.aliases {
		name, id, err := splitPair(pair, "alias")
		if err != nil {
			return err
		}
		named, err := dagql.Name(d, name, expr.NodeID(id))
		if err != nil {
			return fmt.Errorf("alias %s: %w", name, err)
		}
		d = named
	}

	for _, kind := range opts.splices {
		spliced, err := dagql.SpliceWhere(d, dagql.ByKind(kind))
		if err != nil {
			return fmt.Errorf("splice %s: %w", kind, err)
		}
		d = spliced
		logger.Debugf("Spliced out %s nodes", kind)
	}

	if opts.gc {
		d = dagql.GC(d)
	}

	result, err := d.Commit()
	if err != nil {
		return err
	}

	output := opts.output
	if output == "" {
		output = strings.TrimSuffix(input, ".json")
		output = strings.TrimSuffix(output, ".hcl") + "_rewritten.json"
	}
	if err := nexprio.WriteExprFile(output, result); err != nil {
		return err
	}

	printSuccess("Rewrote %s", StyleValue.Render(input))
	if before != result.Len() {
		printDetail("%d nodes %s %d nodes", before, iconArrow, result.Len())
	}
	printFile(output)
	printNextStep("Evaluate the result", "nexpr eval "+output)
	return nil
}
