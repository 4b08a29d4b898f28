package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rshade/freightfocus/internal/logging"
	"github.com/rshade/freightfocus/internal/server"
)

// NewServeCmd creates the "serve" command running the estimation HTTP API.
//
// The server exposes the same estimation pipeline as the CLI commands:
// POST /v1/estimates takes shipment records and returns a batch result,
// POST /v1/locations/resolve resolves one identifier, GET /healthz reports
// liveness.
func NewServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the estimation HTTP API",
		Example: `  # Listen on the default address
  freightfocus serve

  # Explicit listen address
  freightfocus serve --addr :9090`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeServe(cmd, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "Listen address")

	return cmd
}

// executeServe builds the estimation stack and serves it until the context
// is cancelled by SIGINT or SIGTERM.
func executeServe(cmd *cobra.Command, addr string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logging.FromContext(ctx)
	log.Debug().Ctx(ctx).Str("operation", "serve").Str("addr", addr).Msg("starting http server")

	cfg := loadConfig(cmd)

	stack, err := buildEstimationStack(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer stack.cleanup()

	srv := server.New(stack.engine, stack.resolver, logger, server.Options{Addr: addr})
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("running http server: %w", err)
	}
	return nil
}
