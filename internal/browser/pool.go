package browser

import (
	"context"
	"log/slog"
	"sync"
)

// Factory creates a session for a pool key, typically one tribunal.
type Factory func(ctx context.Context, key string) (*Session, error)

// Pool hands out at most one live session per key and recreates sessions
// lazily after eviction. Browser launches are expensive and the portals
// keep server-side state per browser, so tasks share a session per
// tribunal instead of launching their own.
type Pool struct {
	factory Factory
	logger  *slog.Logger

	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	mu      sync.Mutex
	session *Session
}

// NewPool creates a pool backed by the given factory.
func NewPool(factory Factory, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		factory: factory,
		logger:  logger,
		slots:   make(map[string]*slot),
	}
}

func (p *Pool) slot(key string) *slot {
	p.mu.Lock()
	defer p.mu.Unlock()
	sl, ok := p.slots[key]
	if !ok {
		sl = &slot{}
		p.slots[key] = sl
	}
	return sl
}

// Acquire returns the key's session, launching one if none is live. The
// session is held exclusively until Release or Evict is called for the
// same key.
func (p *Pool) Acquire(ctx context.Context, key string) (*Session, error) {
	sl := p.slot(key)
	sl.mu.Lock()
	if sl.session == nil {
		s, err := p.factory(ctx, key)
		if err != nil {
			sl.mu.Unlock()
			return nil, err
		}
		sl.session = s
		p.logger.Info("session created", "key", key)
	}
	return sl.session, nil
}

// Release returns the key's session to the pool without closing it.
func (p *Pool) Release(key string) {
	p.slot(key).mu.Unlock()
}

// Evict closes and discards the key's session, then releases the slot.
// The next Acquire for the key launches a fresh browser. Call Evict
// instead of Release when the session failed its health probe.
func (p *Pool) Evict(key string) {
	sl := p.slot(key)
	if sl.session != nil {
		_ = sl.session.Close()
		sl.session = nil
		p.logger.Warn("session evicted", "key", key)
	}
	sl.mu.Unlock()
}

// Close shuts down every live session. The pool must not be used after
// Close returns.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, sl := range p.slots {
		sl.mu.Lock()
		if sl.session != nil {
			_ = sl.session.Close()
			sl.session = nil
		}
		sl.mu.Unlock()
		delete(p.slots, key)
	}
	return nil
}
