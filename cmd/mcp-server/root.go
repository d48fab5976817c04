package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

// shutdownTimeout bounds engine cleanup after the server stops
const shutdownTimeout = 5 * time.Second

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "MCP server exposing GeoGebra construction tools over stdio",
		Long: "mcp-server speaks the Model Context Protocol on stdin and stdout and turns " +
			"tool calls into GeoGebra commands. The memory engine tracks objects in-process; " +
			"the bridge engine drives a GeoGebra applet in a browser over a websocket.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Configuration file (default $GEOGEBRA_MCP_CONFIG or geogebra-mcp.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Logging level (DEBUG, INFO, WARN, ERROR); overrides the configuration")
	flags.StringVar(&opts.engineMode, "engine", "", "Geometry engine: memory or bridge")
	flags.StringVar(&opts.bridgeAddr, "bridge-addr", "", "Listen address for the bridge engine page and websocket")

	cmd.AddCommand(newToolsCommand(opts))
	return cmd
}

// runServer serves MCP on stdio until stdin closes or a signal arrives. The
// bridge HTTP server, when configured, runs alongside under the same group.
func runServer(ctx context.Context, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := newContainer(opts)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if c.bridge != nil {
		g.Go(func() error {
			return c.bridge.ListenAndServe(gctx)
		})
	}

	g.Go(func() error {
		err := c.server.Start(gctx)
		// stdin closed or the group is stopping; release everything else
		stop()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	err = g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := c.server.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	return err
}
