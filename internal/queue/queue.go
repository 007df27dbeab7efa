package queue

import (
	"context"
	"errors"

	"github.com/arturlm/jusbr/internal/model"
)

// ErrGroupNotFound is returned when completing a task against a group
// that was never created or already drained.
var ErrGroupNotFound = errors.New("queue: group not found")

// Task is one tribunal's crawl order within a query. Attempt counts
// deliveries of this task, starting at 1; retries republish with the
// counter bumped.
type Task struct {
	ID       string         `json:"id"`
	QueryID  string         `json:"query_id"`
	Tribunal model.Tribunal `json:"tribunal"`
	Term     string         `json:"term"`
	Attempt  int            `json:"attempt"`
}

// Delivery is one received task plus its settlement callbacks. Every
// delivery must be settled exactly once: Ack discards it, Nack returns
// it to the queue for redelivery.
type Delivery struct {
	Task Task
	Ack  func(ctx context.Context) error
	Nack func(ctx context.Context) error
}

// Queue routes tasks to per-tribunal consumers with at-least-once
// delivery.
type Queue interface {
	// Publish enqueues a task on its tribunal's routing key.
	Publish(ctx context.Context, task Task) error

	// Consume returns a channel of deliveries for one tribunal. The
	// channel closes when ctx is cancelled or the queue shuts down.
	Consume(ctx context.Context, tribunal model.Tribunal) (<-chan Delivery, error)

	Close() error
}

// GroupStore tracks how many tasks of a query fan-out are still
// outstanding. The worker that completes the last one observes zero and
// finalizes the query.
type GroupStore interface {
	// CreateGroup registers a fan-out of size tasks under the given id.
	CreateGroup(ctx context.Context, id string, size int) error

	// Complete decrements the group's counter and returns the remaining
	// count.
	Complete(ctx context.Context, id string) (int, error)
}
