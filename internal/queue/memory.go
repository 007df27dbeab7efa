package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/arturlm/jusbr/internal/model"
)

// memoryQueueDepth bounds how many tasks a tribunal can have waiting
// before Publish blocks.
const memoryQueueDepth = 1024

// Memory is an in-process Queue and GroupStore backed by channels and a
// mutex. It serves inline mode, where the API, orchestrator and workers
// share one process, and tests.
type Memory struct {
	mu     sync.Mutex
	queues map[model.Tribunal]chan Task
	groups map[string]int
	closed bool
}

// NewMemory creates an empty in-process queue.
func NewMemory() *Memory {
	return &Memory{
		queues: make(map[model.Tribunal]chan Task),
		groups: make(map[string]int),
	}
}

func (m *Memory) queue(tribunal model.Tribunal) chan Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[tribunal]
	if !ok {
		q = make(chan Task, memoryQueueDepth)
		m.queues[tribunal] = q
	}
	return q
}

// Publish implements Queue.
func (m *Memory) Publish(ctx context.Context, task Task) error {
	select {
	case m.queue(task.Tribunal) <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume implements Queue. Deliveries ack as no-ops and nack by
// republishing, matching the redelivery semantics of the Redis queue.
func (m *Memory) Consume(ctx context.Context, tribunal model.Tribunal) (<-chan Delivery, error) {
	source := m.queue(tribunal)
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case task := <-source:
				delivery := Delivery{
					Task: task,
					Ack:  func(context.Context) error { return nil },
					Nack: func(ctx context.Context) error { return m.Publish(ctx, task) },
				}
				select {
				case out <- delivery:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close implements Queue.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// CreateGroup implements GroupStore.
func (m *Memory) CreateGroup(_ context.Context, id string, size int) error {
	if size <= 0 {
		return fmt.Errorf("group %s: size %d must be positive", id, size)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[id] = size
	return nil
}

// Complete implements GroupStore.
func (m *Memory) Complete(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	remaining, ok := m.groups[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	remaining--
	if remaining <= 0 {
		delete(m.groups, id)
		return 0, nil
	}
	m.groups[id] = remaining
	return remaining, nil
}
