package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpserver "github.com/fyrsmithlabs/ctxforge/internal/http"
	"github.com/fyrsmithlabs/ctxforge/internal/metrics"
	"github.com/fyrsmithlabs/ctxforge/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve /healthz and /metrics for long-running deployments",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("building logger: %w", err)
			}
			defer logger.Sync()

			tel, err := telemetry.New(ctx, telemetry.NewDefaultConfig())
			if err != nil {
				return fmt.Errorf("starting telemetry: %w", err)
			}
			defer tel.Shutdown(ctx)

			recorder := metrics.New()

			srv, err := httpserver.NewServer(recorder, logger, &httpserver.Config{
				Host:    host,
				Port:    port,
				Version: version,
			})
			if err != nil {
				return fmt.Errorf("creating http server: %w", err)
			}

			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("http server: %w", err)
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "address to bind")
	cmd.Flags().IntVar(&port, "port", 9090, "port to listen on")
	return cmd
}
