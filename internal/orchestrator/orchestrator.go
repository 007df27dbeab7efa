package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/arturlm/jusbr/internal/database"
	"github.com/arturlm/jusbr/internal/model"
	"github.com/arturlm/jusbr/internal/queue"
)

// Orchestrator turns user queries into per-tribunal crawl tasks.
type Orchestrator struct {
	store  *database.Store
	queue  queue.Queue
	groups queue.GroupStore
	logger *slog.Logger
}

// New returns an Orchestrator persisting to store and publishing to q.
// groups tracks the fan-out so the last finishing task can finalize the
// query; with the in-memory queue both are the same value.
func New(store *database.Store, q queue.Queue, groups queue.GroupStore, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{store: store, queue: q, groups: groups, logger: logger}
}

// targets resolves which tribunals a search term fans out to.
func targets(term string) ([]model.Tribunal, error) {
	kind, err := model.ClassifyTerm(term)
	if err != nil {
		return nil, err
	}
	if kind == model.TermPerson {
		return model.AllTribunals(), nil
	}
	tribunal, err := model.TribunalFromProcessNumber(term)
	if err != nil {
		return nil, err
	}
	return []model.Tribunal{tribunal}, nil
}

// EnqueueCrawlsForQuery fans the query out into crawl tasks and publishes
// them. Tribunals that already finished successfully for this query are
// skipped unless force is set, so re-running a query only redoes what
// failed. It returns the number of tasks published; zero means nothing
// was left to crawl, in which case the query is finalized here — status
// transitions belong to the orchestrator, never to the callers.
func (o *Orchestrator) EnqueueCrawlsForQuery(ctx context.Context, queryID, term string, force bool) (int, error) {
	tribunals, err := targets(term)
	if err != nil {
		return 0, err
	}

	var tasks []model.CrawlTask
	for _, tribunal := range tribunals {
		if !force {
			done, err := o.store.HasNonFailedTerminalTask(ctx, queryID, tribunal)
			if err != nil {
				return 0, err
			}
			if done {
				o.logger.Info("skipping tribunal already crawled", "query_id", queryID, "tribunal", tribunal)
				continue
			}
		}
		tasks = append(tasks, model.CrawlTask{
			ID:        uuid.NewString(),
			QueryID:   queryID,
			Tribunal:  tribunal,
			Status:    model.TaskRunning,
			Attempts:  0,
			StartedAt: time.Now().UTC(),
		})
	}
	if len(tasks) == 0 {
		if err := o.finalizeIdleQuery(ctx, queryID); err != nil {
			return 0, err
		}
		return 0, nil
	}

	for i := range tasks {
		if err := o.store.CreateCrawlTask(ctx, &tasks[i]); err != nil {
			return 0, fmt.Errorf("create crawl task for %s: %w", tasks[i].Tribunal, err)
		}
	}
	if err := o.groups.CreateGroup(ctx, queryID, len(tasks)); err != nil {
		return 0, err
	}
	if err := o.store.UpdateQueryStatus(ctx, queryID, model.QueryRunning); err != nil {
		return 0, err
	}

	for i := range tasks {
		t := tasks[i]
		err := o.queue.Publish(ctx, queue.Task{
			ID:       t.ID,
			QueryID:  t.QueryID,
			Tribunal: t.Tribunal,
			Term:     term,
			Attempt:  1,
		})
		if err != nil {
			return 0, fmt.Errorf("publish task for %s: %w", t.Tribunal, err)
		}
		o.logger.Info("crawl task published", "query_id", queryID, "task_id", t.ID, "tribunal", t.Tribunal)
	}
	return len(tasks), nil
}

// finalizeIdleQuery settles a query whose fan-out produced no tasks:
// every target tribunal already has a finished crawl, so the stored
// state is final and there is no fan-in to wait for.
func (o *Orchestrator) finalizeIdleQuery(ctx context.Context, queryID string) error {
	query, err := o.store.GetQuery(ctx, queryID)
	if err != nil {
		return err
	}
	if query == nil || query.Status.IsTerminal() {
		return nil
	}
	return o.store.UpdateQueryStatus(ctx, queryID, model.QueryDone)
}
