package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arturlm/jusbr/internal/browser"
	"github.com/arturlm/jusbr/internal/model"
	"github.com/arturlm/jusbr/internal/portal"
)

// PortalRunner executes crawls against real portals through pooled
// browser sessions. Each adapter gets its own pool slot keyed by the
// adapter name, so a tribunal's first- and second-instance portals keep
// separate sessions and a wedged one is evicted without touching the
// other.
type PortalRunner struct {
	pool     *browser.Pool
	registry *portal.Registry
	logger   *slog.Logger
}

// NewPortalRunner wires the production Runner.
func NewPortalRunner(pool *browser.Pool, registry *portal.Registry, logger *slog.Logger) *PortalRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortalRunner{pool: pool, registry: registry, logger: logger}
}

// Run implements Runner. A tribunal may expose several portals (separate
// instances, or both PJe and eproc); each is crawled in turn. A portal
// that refuses the search does not stop the others, and the refusal is
// only surfaced when every portal refused and nothing was emitted.
func (r *PortalRunner) Run(ctx context.Context, tribunal model.Tribunal, term string, emit func(model.DetailedProcessData) error) error {
	adapters := r.registry.For(tribunal)
	if len(adapters) == 0 {
		return fmt.Errorf("no portal adapters registered for %s", tribunal)
	}

	var (
		emitted     int
		lastRefusal error
		refusals    int
	)
	wrapped := func(detail model.DetailedProcessData) error {
		if err := emit(detail); err != nil {
			return err
		}
		emitted++
		return nil
	}

	for _, adapter := range adapters {
		if err := r.crawlOne(ctx, adapter, term, wrapped); err != nil {
			var perr *portal.PortalError
			if errors.As(err, &perr) {
				r.logger.Info("portal refused search", "portal", adapter.Name(), "reason", perr.Message)
				refusals++
				lastRefusal = err
				continue
			}
			return fmt.Errorf("%s: %w", adapter.Name(), err)
		}
	}

	if refusals == len(adapters) && emitted == 0 {
		return lastRefusal
	}
	return nil
}

// crawlOne runs a single adapter inside its pooled session, evicting the
// session when the crawl left it unusable.
func (r *PortalRunner) crawlOne(ctx context.Context, adapter portal.Adapter, term string, emit portal.Emit) error {
	key := adapter.Name()
	sess, err := r.pool.Acquire(ctx, key)
	if err != nil {
		return fmt.Errorf("acquire browser session: %w", err)
	}

	if !sess.Healthy(ctx) {
		r.pool.Evict(key)
		sess, err = r.pool.Acquire(ctx, key)
		if err != nil {
			return fmt.Errorf("acquire browser session: %w", err)
		}
	}

	err = adapter.Crawl(ctx, sess, term, emit)
	if errors.Is(err, browser.ErrSessionUnusable) {
		r.pool.Evict(key)
	} else {
		r.pool.Release(key)
	}
	return err
}
