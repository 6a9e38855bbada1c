package cli

import (
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/veldran/nexpr/internal/server"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr string // listen address, overrides the [server] config section
}

// newServeCmd creates the serve command, which exposes graph validation
// and evaluation over HTTP until interrupted.
func newServeCmd(configPath *string) *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve graph validation and evaluation over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			addr := cfg.Server.Addr
			if opts.addr != "" {
				addr = opts.addr
			}

			interp, cleanup, err := newInterpreter(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			logger := loggerFromContext(ctx)
			logger.Infof("Serving with kv backend %s", cfg.KV.Backend)
			return server.New(serverLogger(logger), interp).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (overrides config)")

	return cmd
}

// serverLogger derives the HTTP server's logger from the CLI logger,
// keeping its level but prefixing entries.
func serverLogger(l *charmlog.Logger) *charmlog.Logger {
	s := newLogger(os.Stderr, l.GetLevel())
	s.SetPrefix("server")
	return s
}
