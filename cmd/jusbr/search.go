package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arturlm/jusbr/internal/config"
	"github.com/arturlm/jusbr/internal/database"
	"github.com/arturlm/jusbr/internal/model"
	"github.com/arturlm/jusbr/internal/orchestrator"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// queryPollInterval is how often the search command checks whether all
// tribunal tasks of the query have finished.
const queryPollInterval = 500 * time.Millisecond

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [term]",
		Short: "Crawl the federal courts for a CPF, CNPJ or process number",
		Long: `Search crawls the public process portals of the federal regional
courts for one search term and prints a report of what was found.

A person document (CPF or CNPJ) fans out to all six tribunals; a
process number targets only the tribunal encoded in it. Results are
stored in the local database, so repeating a search skips tribunals
that already finished.

Examples:
  # Search every tribunal for a CPF
  jusbr search 12345678909

  # Search the tribunal encoded in a process number
  jusbr search 0008323-52.2018.4.01.3202

  # Recrawl tribunals that already finished
  jusbr search --force 12345678909

  # Output a Markdown report to a file
  jusbr search --markdown --output report.md 12345678909`,
		Args: cobra.ExactArgs(1),
		RunE: runSearchCmd,
	}

	cmd.Flags().BoolP("force", "f", false,
		"Recrawl tribunals that already finished for this term")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write the report to the given file path")

	return cmd
}

// runSearchCmd executes the search command.
func runSearchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	opts, err := reportOptions(cmd)
	if err != nil {
		return err
	}

	return runSearch(ctx, cmd, cfg, logger, args[0], getBoolFlag(cmd, "force"), opts)
}

// runSearch enqueues the crawl, runs it to completion and reports.
func runSearch(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, term string, force bool, opts reportOpts) error {
	if _, err := model.ClassifyTerm(term); err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	q := newQueue(cfg, logger)
	defer q.Close() //nolint:errcheck

	orch := orchestrator.New(store, q, q, logger)

	// Repeat searches attach to the existing query so completed
	// tribunals are skipped instead of recrawled.
	query, err := store.FindQueryByTerm(ctx, term)
	if err != nil {
		return err
	}
	if query == nil {
		query = &model.Query{
			ID:         uuid.NewString(),
			SearchTerm: term,
			Status:     model.QueryQueued,
		}
		if err := store.CreateQuery(ctx, query); err != nil {
			return err
		}
	}

	n, err := orch.EnqueueCrawlsForQuery(ctx, query.ID, term, force)
	if err != nil {
		return err
	}

	if n == 0 {
		logger.Info("nothing to crawl, reporting stored results",
			"query_id", query.ID,
		)
		return writeQueryReport(ctx, cmd, store, query.ID, opts)
	}

	logger.Info("crawl enqueued",
		"query_id", query.ID,
		"tasks", n,
	)

	// Without Redis the tasks only exist in this process, so a worker
	// has to run here. With Redis, external workers pick them up.
	workCtx, stopWork := context.WithCancel(ctx)
	defer stopWork()

	var workerDone chan error
	if !cfg.UseRedis {
		runner, pool, err := newRunner(cfg, logger)
		if err != nil {
			return err
		}
		defer pool.Close() //nolint:errcheck

		w := orchestrator.NewWorker(store, q, q, runner, retryPolicy(cfg), logger)
		workerDone = make(chan error, 1)
		go func() {
			workerDone <- w.Run(workCtx, model.AllTribunals())
		}()
	}

	if err := waitForQuery(ctx, store, query.ID); err != nil {
		return err
	}
	stopWork()
	if workerDone != nil {
		if err := <-workerDone; err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("worker stopped with error", "error", err)
		}
	}

	return writeQueryReport(ctx, cmd, store, query.ID, opts)
}

// waitForQuery polls until the query reaches a terminal status.
func waitForQuery(ctx context.Context, store *database.Store, queryID string) error {
	ticker := time.NewTicker(queryPollInterval)
	defer ticker.Stop()

	for {
		query, err := store.GetQuery(ctx, queryID)
		if err != nil {
			return err
		}
		if query != nil && query.Status.IsTerminal() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
