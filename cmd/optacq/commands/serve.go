package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/optacq/internal/api"
	"github.com/wonny/optacq/internal/api/handlers"
	"github.com/wonny/optacq/internal/app"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "API 서버 시작",
	Long: `Starts the REST API server.

Endpoints:
  GET    /health                 - Health check
  GET    /metrics                - Prometheus metrics (METRICS_ENABLED)
  POST   /api/acquisitions       - Run one batch synchronously
  GET    /api/acquisitions       - Recent runs (needs DATABASE_URL)
  GET    /api/acquisitions/{id}  - Result rows of one run
  GET    /api/timeframes         - DTE windows
  GET    /api/cache/stats        - Chain cache stats
  POST   /api/cache/purge        - Remove expired records
  DELETE /api/cache/{ticker}     - Clear one ticker
  DELETE /api/cache              - Clear everything

Example:
  go run ./cmd/optacq serve
  go run ./cmd/optacq serve --port 8080 --with-scheduler`,
	RunE: runServe,
}

var (
	servePort          string
	serveWithScheduler bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "API 서버 포트 (default $PORT)")
	serveCmd.Flags().BoolVar(&serveWithScheduler, "with-scheduler", false, "run scheduled jobs in the same process")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if servePort != "" {
		cfg.Port = servePort
	}

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	a, err := app.New(context.Background(), cfg, log, app.Options{})
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	defer a.Close()

	var runs handlers.RunStore
	if a.Audit != nil {
		runs = a.Audit
	}
	h := api.Handlers{
		Acquisition: handlers.NewAcquisitionHandler(a.Engine, runs, log),
		Cache:       handlers.NewCacheHandler(a.Cache, log),
	}
	if cfg.MetricsEnabled {
		h.Metrics = a.Metrics.Handler()
	}

	server := api.New(cfg, log, api.NewRouter(h, log))

	if serveWithScheduler {
		sched, err := initScheduler(a)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	out := cmd.OutOrStdout()
	PrintSuccess(out, fmt.Sprintf("Server running on http://localhost:%s", cfg.Port))
	fmt.Fprintln(out, "Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
