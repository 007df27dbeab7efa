package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arturlm/jusbr/internal/browser"
	"github.com/arturlm/jusbr/internal/database"
	"github.com/arturlm/jusbr/internal/model"
	"github.com/arturlm/jusbr/internal/portal"
	"github.com/arturlm/jusbr/internal/queue"
)

// Runner executes one tribunal's crawl for a search term, calling emit
// for every process it finds. PortalRunner is the production
// implementation; tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, tribunal model.Tribunal, term string, emit func(model.DetailedProcessData) error) error
}

// Worker consumes crawl tasks and executes them. One Worker drives one
// consumer goroutine per tribunal it is assigned, so tasks for the same
// tribunal never compete for that tribunal's browser session.
type Worker struct {
	store  *database.Store
	queue  queue.Queue
	groups queue.GroupStore
	runner Runner
	retry  RetryPolicy
	logger *slog.Logger
}

// NewWorker wires a Worker. A zero-valued retry policy disables retries.
func NewWorker(store *database.Store, q queue.Queue, groups queue.GroupStore, runner Runner, retry RetryPolicy, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, queue: q, groups: groups, runner: runner, retry: retry, logger: logger}
}

// Run consumes tasks for the given tribunals until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, tribunals []model.Tribunal) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, tribunal := range tribunals {
		tribunal := tribunal
		eg.Go(func() error { return w.consume(ctx, tribunal) })
	}
	return eg.Wait()
}

func (w *Worker) consume(ctx context.Context, tribunal model.Tribunal) error {
	deliveries, err := w.queue.Consume(ctx, tribunal)
	if err != nil {
		return err
	}
	w.logger.Info("worker consuming", "tribunal", tribunal)
	for delivery := range deliveries {
		w.handle(ctx, delivery)
	}
	return ctx.Err()
}

// retryable reports whether the crawl failure is worth another attempt.
// Browser-level failures (dead session, navigation timeout) usually are;
// anything the portal itself answered is not.
func retryable(err error) bool {
	return errors.Is(err, browser.ErrSessionUnusable) ||
		errors.Is(err, browser.ErrWaitTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}

// handle runs one delivered task to a terminal outcome or a retry
// re-publication. Every path acks the delivery: retries are re-published
// as a fresh payload with the attempt incremented rather than nacked, so
// the backoff delay never blocks the processing list.
func (w *Worker) handle(ctx context.Context, delivery queue.Delivery) {
	task := delivery.Task
	logger := w.logger.With("task_id", task.ID, "query_id", task.QueryID, "tribunal", task.Tribunal, "attempt", task.Attempt)

	count, err := w.crawl(ctx, task)
	if err := w.recordAttempt(ctx, task); err != nil {
		logger.Error("recording attempt failed", "error", err)
	}

	switch {
	case err == nil:
		logger.Info("crawl task done", "results", count)
		w.finishTask(ctx, task, model.TaskDone, "")

	case isPortalRefusal(err):
		// The portal answered and declined the search. Definitive;
		// the task completes with zero results.
		logger.Info("portal refused search", "reason", err.Error())
		w.finishTask(ctx, task, model.TaskDone, err.Error())

	case retryable(err) && task.Attempt < w.retry.MaxAttempts:
		logger.Warn("crawl attempt failed, retrying", "error", err)
		w.republish(ctx, task)

	default:
		logger.Error("crawl task failed", "error", err)
		w.finishTask(ctx, task, model.TaskFailed, err.Error())
	}

	if err := delivery.Ack(ctx); err != nil {
		logger.Error("ack failed", "error", err)
	}
}

func isPortalRefusal(err error) bool {
	var perr *portal.PortalError
	return errors.As(err, &perr)
}

// crawl executes the task's search, persisting each emitted process and
// returning how many were stored. The query's result counter is bumped
// only when the attempt succeeds: a failed attempt may be retried, and
// the retry re-emits the same processes (the upsert dedupes the rows,
// the counter would not).
func (w *Worker) crawl(ctx context.Context, task queue.Task) (int, error) {
	count := 0
	emit := func(detail model.DetailedProcessData) error {
		err := w.store.UpsertProcessRecord(ctx, task.QueryID, task.Tribunal, detail.Process.ProcessNumber, detail)
		if err != nil {
			return err
		}
		count++
		return nil
	}
	if err := w.runner.Run(ctx, task.Tribunal, task.Term, emit); err != nil {
		return count, err
	}
	if count > 0 {
		if err := w.store.AddQueryResults(ctx, task.QueryID, count); err != nil {
			return count, err
		}
	}
	return count, nil
}

func (w *Worker) recordAttempt(ctx context.Context, task queue.Task) error {
	return w.store.UpdateCrawlTask(ctx, &model.CrawlTask{
		ID:       task.ID,
		Status:   model.TaskRunning,
		Attempts: task.Attempt,
	})
}

// republish schedules the next attempt after the policy's backoff.
func (w *Worker) republish(ctx context.Context, task queue.Task) {
	delay := w.retry.delay(task.Attempt)
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
	next := task
	next.Attempt++
	if err := w.queue.Publish(ctx, next); err != nil {
		w.logger.Error("republish failed, failing task", "task_id", task.ID, "error", err)
		w.finishTask(ctx, task, model.TaskFailed, "republish failed: "+err.Error())
	}
}

// finishTask records the terminal state and, when it was the query's
// last outstanding task, finalizes the query.
func (w *Worker) finishTask(ctx context.Context, task queue.Task, status model.TaskStatus, lastError string) {
	now := time.Now().UTC()
	err := w.store.UpdateCrawlTask(ctx, &model.CrawlTask{
		ID:         task.ID,
		Status:     status,
		Attempts:   task.Attempt,
		LastError:  lastError,
		FinishedAt: &now,
	})
	if err != nil {
		w.logger.Error("updating crawl task failed", "task_id", task.ID, "error", err)
	}

	remaining, err := w.groups.Complete(ctx, task.QueryID)
	if err != nil {
		w.logger.Error("completing task group failed", "query_id", task.QueryID, "error", err)
		return
	}
	if remaining == 0 {
		w.finalizeQuery(ctx, task.QueryID)
	}
}

// finalizeQuery marks the query done once every tribunal reached a
// terminal state. A query is done even when some tribunals failed;
// per-tribunal outcomes stay visible on the tasks themselves.
func (w *Worker) finalizeQuery(ctx context.Context, queryID string) {
	if err := w.store.UpdateQueryStatus(ctx, queryID, model.QueryDone); err != nil {
		w.logger.Error("finalizing query failed", "query_id", queryID, "error", err)
		return
	}
	w.logger.Info("query finished", "query_id", queryID)
}
