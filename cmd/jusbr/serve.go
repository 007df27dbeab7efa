package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/arturlm/jusbr/internal/api"
	"github.com/arturlm/jusbr/internal/config"
	"github.com/arturlm/jusbr/internal/orchestrator"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// serverShutdownTimeout bounds the graceful drain of in-flight HTTP
// requests after a shutdown signal.
const serverShutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the query HTTP API",
		Long: `Serve runs the HTTP API that accepts search queries and fans them
out as crawl tasks.

By default the server also runs an embedded crawl worker, so a single
process handles the whole crawl. With a Redis queue the tasks can
instead be consumed by separate worker processes (see "jusbr worker"),
in which case --no-worker keeps this process API-only.

Examples:
  # Single process: API plus embedded worker, in-memory queue
  jusbr serve

  # Distributed: API publishes to Redis, workers run elsewhere
  jusbr serve --redis 127.0.0.1:6379 --no-worker`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "l", "",
		"Listen address (default "+config.DefaultListenAddr+")")
	cmd.Flags().String("redis", "",
		"Redis address for the distributed task queue")
	cmd.Flags().Bool("no-worker", false,
		"Do not run an embedded crawl worker (requires --redis)")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if addr := getStringFlag(cmd, "listen"); addr != "" {
		cfg.ListenAddr = addr
	}
	if addr := getStringFlag(cmd, "redis"); addr != "" {
		cfg.UseRedis = true
		cfg.RedisAddr = addr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	embeddedWorker := !getBoolFlag(cmd, "no-worker")
	if !embeddedWorker && !cfg.UseRedis {
		return errors.New("--no-worker requires a Redis queue, otherwise tasks are never consumed")
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runServe(ctx, cfg, logger, embeddedWorker)
}

// runServe runs the API server, and the embedded worker when asked,
// until the context is cancelled.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger, embeddedWorker bool) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	q := newQueue(cfg, logger)
	defer q.Close() //nolint:errcheck

	orch := orchestrator.New(store, q, q, logger)
	server := api.NewServer(store, orch, logger)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("query API listening",
			"addr", cfg.ListenAddr,
			"redis", cfg.UseRedis,
			"embedded_worker", embeddedWorker,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if embeddedWorker {
		runner, pool, err := newRunner(cfg, logger)
		if err != nil {
			return err
		}
		defer pool.Close() //nolint:errcheck

		tribunals, err := cfg.TribunalFilter()
		if err != nil {
			return err
		}
		worker := orchestrator.NewWorker(store, q, q, runner, retryPolicy(cfg), logger)
		g.Go(func() error {
			return worker.Run(gctx, tribunals)
		})
	}

	return g.Wait()
}
