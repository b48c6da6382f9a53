// File: cmd/serve.go
package cmd

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/casepilot/internal/observability"
	"github.com/xkilldash9x/casepilot/internal/server"
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run-test HTTP API",
		Long: `Starts an HTTP server exposing:
  POST /api/run-test  execute {website_url, test_cases} and return the results
  GET  /healthz       liveness probe
  GET  /metrics       Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			metrics, err := observability.NewMetrics(reg)
			if err != nil {
				return fmt.Errorf("failed to register metrics: %w", err)
			}

			batch, err := batchRunnerFactory(cfg, metrics, logger)
			if err != nil {
				return err
			}

			logger.Info("Starting CasePilot server",
				zap.String("version", Version),
				zap.String("listen_addr", cfg.Server().ListenAddr),
				zap.Duration("request_timeout", cfg.Server().RequestTimeout),
			)
			return server.New(cfg.Server(), batch, reg, logger).Start(ctx)
		},
	}

	serveCmd.Flags().StringP("listen", "l", "", "Address to listen on, e.g. :8080. (Overrides config/env)")
	serveCmd.Flags().Bool("headless", true, "Run the browser headless. (Overrides config/env)")
	serveCmd.Flags().String("chrome-path", "", "Path to the Chrome binary. (Overrides config/env)")
	return serveCmd
}
