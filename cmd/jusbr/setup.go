package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/arturlm/jusbr/internal/browser"
	"github.com/arturlm/jusbr/internal/captcha"
	"github.com/arturlm/jusbr/internal/config"
	"github.com/arturlm/jusbr/internal/database"
	"github.com/arturlm/jusbr/internal/log"
	"github.com/arturlm/jusbr/internal/orchestrator"
	"github.com/arturlm/jusbr/internal/portal"
	"github.com/arturlm/jusbr/internal/proxy"
	"github.com/arturlm/jusbr/internal/queue"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// proxyProbeURL is the target used to pick the fastest proxy before a
// browser session starts. Any stable endpoint on the court network
// works; the federal justice portal answers fast and never blocks.
const proxyProbeURL = "https://www.jus.br"

// taskQueue is the combined queue surface the commands wire up: task
// routing plus fan-out group counting, served by the same backend.
type taskQueue interface {
	queue.Queue
	queue.GroupStore
}

// buildConfig assembles the runtime configuration in precedence order:
// defaults, then environment variables, then the YAML portal file, then
// CLI flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	if err := cfg.LoadEnv(); err != nil {
		return nil, err
	}

	if dir := getStringFlag(cmd, "data-dir"); dir != "" {
		cfg.DataDir = dir
	}
	if getBoolFlag(cmd, "verbose") {
		cfg.Verbose = true
	}

	// If the user explicitly named a config file, a missing file is an
	// error. Without one, the default search may come up empty.
	cfg.ConfigFilePath = getStringFlag(cmd, "config")
	if path := config.FindConfigFile(cfg.ConfigFilePath); path != "" {
		file, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg.PortalFile = file
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	return cfg, nil
}

// getBoolFlag retrieves a bool flag from the command or its root.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// getStringFlag retrieves a string flag from the command or its root.
func getStringFlag(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetString(name)
		if err != nil {
			return ""
		}
	}
	return v
}

// setupLogger creates the structured logger with credential masking.
func setupLogger(cfg *config.Config) *slog.Logger {
	return log.NewSecureLogger(os.Stderr, cfg.Verbose)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// openStore opens the SQLite crawl database under the data directory.
func openStore(cfg *config.Config) (*database.Store, error) {
	store, err := database.Open(cfg.DataDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// newQueue selects the task queue backend. Redis is required when the
// API and the workers run as separate processes; the in-process queue
// serves single-binary runs.
func newQueue(cfg *config.Config, logger *slog.Logger) taskQueue {
	if cfg.UseRedis {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return queue.NewRedis(client, logger)
	}
	return queue.NewMemory()
}

// newRunner wires the crawl side of a worker: captcha solver, portal
// registry with YAML overrides, proxy selection, and a browser pool
// keyed by portal. The returned pool must be closed by the caller.
func newRunner(cfg *config.Config, logger *slog.Logger) (*orchestrator.PortalRunner, *browser.Pool, error) {
	var solver captcha.Solver = captcha.Disabled{}
	if cfg.CaptchaAPIKey != "" {
		solver = captcha.NewTwoCaptcha(cfg.CaptchaAPIKey, captcha.WithSolverLogger(logger))
	}

	var regOpts []portal.RegistryOption
	if cfg.PortalFile != nil {
		regOpts = append(regOpts,
			portal.WithBaseURLOverrides(cfg.PortalFile.BaseURLOverrides()),
			portal.WithDisabledPortals(cfg.PortalFile.DisabledPortals()...),
		)
	}
	registry := portal.NewRegistry(solver, logger, regOpts...)

	var selector proxy.Selector = proxy.Direct{}
	if cfg.UseProxy {
		candidates, err := proxy.LoadCandidates(cfg.ProxyListPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load proxy list: %w", err)
		}
		selector = proxy.NewProber(candidates, proxy.WithProberLogger(logger))
	}

	factory := func(ctx context.Context, key string) (*browser.Session, error) {
		opts := []browser.Option{
			browser.WithHeadless(cfg.Headless),
			browser.WithUserAgent(cfg.UserAgent),
			browser.WithWaitTimeout(cfg.WaitTimeout),
			browser.WithLogger(logger),
		}
		addr, err := selector.FastestProxy(ctx, proxyProbeURL)
		if err != nil {
			return nil, fmt.Errorf("proxy selection for %s: %w", key, err)
		}
		if addr != "" {
			opts = append(opts, browser.WithProxy(addr))
		}
		return browser.New(ctx, key, opts...)
	}

	pool := browser.NewPool(factory, logger)
	return orchestrator.NewPortalRunner(pool, registry, logger), pool, nil
}

// retryPolicy builds the worker retry policy from the configured
// attempt budget, keeping the default backoff curve.
func retryPolicy(cfg *config.Config) orchestrator.RetryPolicy {
	p := orchestrator.DefaultRetryPolicy()
	p.MaxAttempts = cfg.MaxAttempts
	return p
}
