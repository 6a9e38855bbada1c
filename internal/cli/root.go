package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version string // semantic version (e.g., "v1.2.3")
	commit  string // git commit SHA
	date    string // build timestamp
)

// SetVersion sets the version information displayed by --version.
// This is typically called by the main package during initialization with values
// injected via ldflags at build time.
//
// Parameters:
//   - v: semantic version string (e.g., "v1.2.3")
//   - c: git commit SHA (short or long form)
//   - d: build timestamp (e.g., "2025-12-20T14:32:01Z")
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the nexpr CLI and returns an error if any command fails.
// This is the main entry point for the CLI application.
//
// The function sets up the root command with all subcommands (eval, query,
// rewrite, render, inspect, serve), configures logging based on the --verbose
// flag, and executes the command tree.
//
// Logging:
//   - Default: info level (logs to stderr)
//   - With --verbose (-v): debug level
//
// The logger is attached to the context and accessible to all commands via
// loggerFromContext. The --config flag points at a TOML file; when omitted,
// the conventional per-user location is tried and defaults apply if absent.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext is [Execute] with a caller-provided context, so signal
// cancellation reaches long-running commands like serve.
func ExecuteContext(ctx context.Context) error {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:          "nexpr",
		Short:        "nexpr evaluates and rewrites expression graphs",
		Long:         `nexpr is a CLI tool for working with expression graphs: evaluate them to values, query and rewrite their structure, render them as diagrams, or serve evaluation over HTTP.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("nexpr %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to TOML config file")

	root.AddCommand(newEvalCmd(&configPath))
	root.AddCommand(newQueryCmd())
	root.AddCommand(newRewriteCmd())
	root.AddCommand(newRenderCmd(&configPath))
	root.AddCommand(newInspectCmd())
	root.AddCommand(newServeCmd(&configPath))

	return root.ExecuteContext(ctx)
}
