package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veldran/nexpr/pkg/fold"
)

// evalOpts holds the command-line flags for the eval command.
type evalOpts struct {
	configPath *string // shared --config flag from the root command
	quiet      bool    // print only the value, no stats or styling
}

// newEvalCmd creates the eval command, which folds a graph document down to
// its root value using the stock plugins plus the configured kv backend.
func newEvalCmd(configPath *string) *cobra.Command {
	opts := evalOpts{configPath: configPath}

	cmd := &cobra.Command{
		Use:   "eval [file]",
		Short: "Evaluate a graph document to its root value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "print only the value")

	return cmd
}

func runEval(ctx context.Context, input string, opts *evalOpts) error {
	logger := loggerFromContext(ctx)

	cfg, err := loadConfig(*opts.configPath)
	if err != nil {
		return err
	}

	g, err := loadExpr(input)
	if err != nil {
		return err
	}
	logger.Debugf("Loaded graph: %d nodes, root %s", g.Len(), g.RootID())

	interp, cleanup, err := newInterpreter(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	prog := newProgress(logger)
	v, err := fold.Fold(ctx, interp, g)
	if err != nil {
		return err
	}
	prog.done("Folded " + input)

	if opts.quiet {
		fmt.Println(valueString(v))
		return nil
	}

	printSuccess("Evaluated %s", StyleValue.Render(input))
	printKeyValue("value", StyleHighlight.Render(valueString(v)))
	printKeyValue("type", v.Type().FriendlyName())
	printStats(g.Len(), len(g.AliasTable()))
	return nil
}
