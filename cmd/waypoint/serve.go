package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/aretw0/waypoint/internal/cli"
	"github.com/aretw0/waypoint/internal/presentation/tui"
	httpadapter "github.com/aretw0/waypoint/pkg/adapters/http"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/persistence/middleware"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP drawing server",
	Long: `Starts the board as an HTTP service: pointer events, undo/redo, compiled
instructions, PNG renders, an SSE instruction stream and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.HTTP.Addr, _ = cmd.Flags().GetString("addr")
		}
		quiet, _ := cmd.Flags().GetBool("quiet")

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()

		backend, err := cli.OpenBackend(sc, cfg.Store)
		if err != nil {
			return err
		}
		defer backend.Close()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics := httpadapter.NewMetrics(reg)
		backend.Use(middleware.NewValidationMiddleware(), middleware.NewMetricsMiddleware(reg))

		hooks := []domain.LifecycleHooks{metrics.Hooks()}
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			hooks = append(hooks, cli.DebugHooks(logger))
		}
		board, err := cli.NewBoard(sc, cfg, backend.Store, logger, hooks...)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr: cfg.HTTP.Addr,
			Handler: httpadapter.NewHandler(board, backend.Sessions(logger),
				httpadapter.WithMetrics(metrics, reg),
				httpadapter.WithLogger(logger),
			),
			// SSE handlers end with the base context.
			BaseContext: func(net.Listener) context.Context { return sc },
		}

		if !quiet && cli.IsTerminal(cmd.OutOrStdout()) {
			tui.PrintBanner(cmd.OutOrStdout())
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Starting waypoint server", "addr", srv.Addr, "store", cfg.Store.Backend, "runs", len(board.Runs()))
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err

		case <-sc.Done():
			logger.Info("Shutting down", "signal", sc.Signal())
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				return srv.Close()
			}
			logger.Info("Server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on (overrides http.addr)")
	serveCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
}
