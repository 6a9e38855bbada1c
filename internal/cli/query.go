package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/veldran/nexpr/pkg/dagql"
	"github.com/veldran/nexpr/pkg/expr"
)

// queryOpts holds the command-line flags for the query command.
// Each flag contributes one predicate; all given predicates must match.
type queryOpts struct {
	kind     string // exact namespaced kind ("math/add")
	glob     string // kind prefix ("math/")
	leaves   bool   // nodes without children
	children int    // exact child count (-1 means unset)
	name     string // alias lookup
	idsOnly  bool   // print bare IDs instead of the table
}

// newQueryCmd creates the query command, which selects nodes matching the
// given predicates and prints them as a table.
func newQueryCmd() *cobra.Command {
	opts := queryOpts{children: -1}

	cmd := &cobra.Command{
		Use:   "query [file]",
		Short: "Select graph nodes by kind, shape, or alias",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVar(&opts.kind, "kind", "", "match nodes with exactly this kind")
	cmd.Flags().StringVar(&opts.glob, "glob", "", "match nodes whose kind has this prefix")
	cmd.Flags().BoolVar(&opts.leaves, "leaves", false, "match nodes without children")
	cmd.Flags().IntVar(&opts.children, "children", -1, "match nodes with exactly this many children")
	cmd.Flags().StringVar(&opts.name, "name", "", "match the node this alias resolves to")
	cmd.Flags().BoolVar(&opts.idsOnly, "ids", false, "print bare node IDs, one per line")

	return cmd
}

// buildPredicate combines the flag-derived predicates. With no flags set,
// every node matches.
func buildPredicate(opts *queryOpts) dagql.Predicate {
	var preds []dagql.Predicate
	if opts.kind != "" {
		preds = append(preds, dagql.ByKind(opts.kind))
	}
	if opts.glob != "" {
		preds = append(preds, dagql.ByKindGlob(opts.glob))
	}
	if opts.leaves {
		preds = append(preds, dagql.IsLeaf())
	}
	if opts.children >= 0 {
		preds = append(preds, dagql.HasChildCount(opts.children))
	}
	if opts.name != "" {
		preds = append(preds, dagql.ByName(opts.name))
	}
	return dagql.And(preds...)
}

func runQuery(ctx context.Context, input string, opts *queryOpts) error {
	logger := loggerFromContext(ctx)

	g, err := loadExpr(input)
	if err != nil {
		return err
	}

	ids := dagql.SelectWhere(g, buildPredicate(opts))
	slices.Sort(ids)
	logger.Debugf("Matched %d of %d nodes", len(ids), g.Len())

	if opts.idsOnly {
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	}

	if len(ids) == 0 {
		printWarning("no nodes matched")
		return nil
	}

	fmt.Println(renderNodeTable(g, ids))
	printStats(len(ids), 0)
	return nil
}

// renderNodeTable formats the matched nodes as a bordered table with their
// kind, child summary, and aliases.
func renderNodeTable(g expr.Graph, ids []expr.NodeID) string {
	aliases := aliasesByNode(g)

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		e, _ := g.Entry(id)
		rows = append(rows, []string{
			string(id),
			e.Kind,
			childSummary(e),
			strings.Join(aliases[id], ", "),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Node", "Kind", "Children", "Aliases").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			switch col {
			case 1:
				return StyleKind
			case 2, 3:
				return StyleDim
			default:
				return StyleValue
			}
		})

	return t.Render()
}

// childSummary renders an entry's children compactly: references by ID,
// literals by their type.
func childSummary(e expr.Entry) string {
	if len(e.Children) == 0 {
		return "—"
	}
	parts := make([]string, len(e.Children))
	for i, c := range e.Children {
		if c.IsRef() {
			parts[i] = iconArrow + string(c.Target())
		} else {
			parts[i] = c.Literal().Type().FriendlyName()
		}
	}
	return strings.Join(parts, ", ")
}

// aliasesByNode inverts the alias table: node ID to its sorted names.
func aliasesByNode(g expr.Graph) map[expr.NodeID][]string {
	out := make(map[expr.NodeID][]string)
	for name, id := range g.AliasTable() {
		out[id] = append(out[id], name)
	}
	for _, names := range out {
		slices.Sort(names)
	}
	return out
}
