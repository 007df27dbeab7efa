package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arturlm/jusbr/internal/model"
)

// Redis key layout. Pending tasks wait in a list per tribunal; a
// delivery moves its payload to the tribunal's processing list, where it
// stays until acked (removed) or nacked (pushed back to pending). Tasks
// of a crashed worker can be recovered from the processing list.
const (
	taskKeyPrefix  = "jusbr:tasks:"
	groupKeyPrefix = "jusbr:group:"

	// consumePollTimeout bounds each blocking pop so consumers notice
	// context cancellation.
	consumePollTimeout = time.Second

	// groupTTL expires abandoned group counters.
	groupTTL = 7 * 24 * time.Hour
)

// Redis is a Queue and GroupStore on a Redis server, the deployment
// shape where workers run on separate hosts.
type Redis struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, logger: logger}
}

func taskKey(tribunal model.Tribunal) string { return taskKeyPrefix + string(tribunal) }

func processingKey(tribunal model.Tribunal) string {
	return taskKeyPrefix + string(tribunal) + ":processing"
}

func groupKey(id string) string { return groupKeyPrefix + id }

// Publish implements Queue.
func (r *Redis) Publish(ctx context.Context, task Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", task.ID, err)
	}
	if err := r.client.LPush(ctx, taskKey(task.Tribunal), payload).Err(); err != nil {
		return fmt.Errorf("publish task %s: %w", task.ID, err)
	}
	return nil
}

// Consume implements Queue.
func (r *Redis) Consume(ctx context.Context, tribunal model.Tribunal) (<-chan Delivery, error) {
	pending := taskKey(tribunal)
	processing := processingKey(tribunal)
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			if ctx.Err() != nil {
				return
			}

			payload, err := r.client.BLMove(ctx, pending, processing, "RIGHT", "LEFT", consumePollTimeout).Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				r.logger.Error("queue receive failed", "tribunal", tribunal, "error", err)
				select {
				case <-time.After(consumePollTimeout):
				case <-ctx.Done():
					return
				}
				continue
			}

			var task Task
			if err := json.Unmarshal([]byte(payload), &task); err != nil {
				r.logger.Error("dropping undecodable task", "tribunal", tribunal, "error", err)
				r.client.LRem(context.WithoutCancel(ctx), processing, 1, payload)
				continue
			}

			delivery := Delivery{
				Task: task,
				Ack: func(ctx context.Context) error {
					return r.client.LRem(ctx, processing, 1, payload).Err()
				},
				Nack: func(ctx context.Context) error {
					pipe := r.client.TxPipeline()
					pipe.LRem(ctx, processing, 1, payload)
					pipe.LPush(ctx, pending, payload)
					_, err := pipe.Exec(ctx)
					return err
				},
			}
			select {
			case out <- delivery:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close implements Queue.
func (r *Redis) Close() error {
	return r.client.Close()
}

// CreateGroup implements GroupStore.
func (r *Redis) CreateGroup(ctx context.Context, id string, size int) error {
	if size <= 0 {
		return fmt.Errorf("group %s: size %d must be positive", id, size)
	}
	if err := r.client.Set(ctx, groupKey(id), size, groupTTL).Err(); err != nil {
		return fmt.Errorf("create group %s: %w", id, err)
	}
	return nil
}

// Complete implements GroupStore.
func (r *Redis) Complete(ctx context.Context, id string) (int, error) {
	key := groupKey(id)
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("complete group %s: %w", id, err)
	}
	if exists == 0 {
		return 0, fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}

	remaining, err := r.client.Decr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("complete group %s: %w", id, err)
	}
	if remaining <= 0 {
		r.client.Del(context.WithoutCancel(ctx), key)
		return 0, nil
	}
	return int(remaining), nil
}
