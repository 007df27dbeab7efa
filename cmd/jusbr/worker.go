package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arturlm/jusbr/internal/config"
	"github.com/arturlm/jusbr/internal/orchestrator"
	"github.com/spf13/cobra"
)

// NewWorkerCmd creates the worker command.
func NewWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run a crawl worker consuming tasks from Redis",
		Long: `Worker consumes crawl tasks published to the Redis queue by the API
server and crawls the tribunal portals.

Workers can be restricted to a subset of tribunals, so machines close
to one court's network only consume its tasks.

Examples:
  # Consume every tribunal
  jusbr worker --redis 127.0.0.1:6379

  # Only consume TRF1 and TRF4 tasks
  jusbr worker --redis 127.0.0.1:6379 --tribunals trf1,trf4`,
		Args: cobra.NoArgs,
		RunE: runWorkerCmd,
	}

	cmd.Flags().String("redis", "",
		"Redis address for the distributed task queue")
	cmd.Flags().StringSlice("tribunals", nil,
		"Restrict consumed tribunals (e.g. trf1,trf4)")

	return cmd
}

// runWorkerCmd executes the worker command.
func runWorkerCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if addr := getStringFlag(cmd, "redis"); addr != "" {
		cfg.UseRedis = true
		cfg.RedisAddr = addr
	}
	if tribunals, err := cmd.Flags().GetStringSlice("tribunals"); err == nil && len(tribunals) > 0 {
		cfg.Tribunals = tribunals
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if !cfg.UseRedis {
		return errors.New("the worker consumes tasks from Redis; set --redis or JUSBR_REDIS_ADDR")
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runWorker(ctx, cfg, logger)
}

// runWorker consumes and crawls tasks until the context is cancelled.
func runWorker(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	q := newQueue(cfg, logger)
	defer q.Close() //nolint:errcheck

	runner, pool, err := newRunner(cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close() //nolint:errcheck

	tribunals, err := cfg.TribunalFilter()
	if err != nil {
		return err
	}

	logger.Info("worker consuming",
		"redis", cfg.RedisAddr,
		"tribunals", tribunals,
		"max_attempts", cfg.MaxAttempts,
	)

	worker := orchestrator.NewWorker(store, q, q, runner, retryPolicy(cfg), logger)
	return worker.Run(ctx, tribunals)
}
