package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veldran/nexpr/pkg/render"
)

const (
	formatSVG = "svg"
	formatDOT = "dot"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string // output file path
	format   string // "svg" or "dot"
	detailed bool   // show type tags and inline literals in labels
}

// newRenderCmd creates the render command for generating graph diagrams.
// It writes Graphviz DOT text or a rendered SVG. The [render] config
// section supplies the default for --detailed.
func newRenderCmd(configPath *string) *cobra.Command {
	opts := renderOpts{format: formatSVG}

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render a graph document to SVG or DOT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(opts.format); err != nil {
				return err
			}
			if !cmd.Flags().Changed("detailed") {
				cfg, err := loadConfig(*configPath)
				if err != nil {
					return err
				}
				opts.detailed = cfg.Render.Detailed
			}
			return runRender(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (defaults next to the input)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: svg (default), dot")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show output types and literal values in labels")

	return cmd
}

// validateFormat checks that the format is either "svg" or "dot".
func validateFormat(f string) error {
	if f != formatSVG && f != formatDOT {
		return fmt.Errorf("invalid format: %s (must be 'svg' or 'dot')", f)
	}
	return nil
}

func runRender(ctx context.Context, input string, opts *renderOpts) error {
	logger := loggerFromContext(ctx)
	logger.Infof("Rendering %s", input)

	g, err := loadExpr(input)
	if err != nil {
		return err
	}
	logger.Debugf("Loaded graph: %d nodes", g.Len())

	dot := render.ToDOT(g, render.Options{Detailed: opts.detailed})

	var data []byte
	switch opts.format {
	case formatDOT:
		data = []byte(dot)
	case formatSVG:
		prog := newProgress(logger)
		data, err = render.RenderSVG(dot)
		if err != nil {
			return err
		}
		prog.done("Rendered SVG")
	}

	output := opts.output
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + "." + opts.format
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return err
	}

	printSuccess("Rendered %s", StyleValue.Render(input))
	printFile(output)
	return nil
}
