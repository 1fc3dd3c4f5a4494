// Package queue distributes workflow task IDs to worker processes over a
// Redis list. Enqueue pushes, a consumer loop pops with a short blocking
// timeout so shutdown stays responsive.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// DefaultQueue is the Redis list key that carries pending task IDs.
const DefaultQueue = "pressforge:tasks"

// Handler processes one dequeued task ID.
type Handler func(ctx context.Context, taskID string) error

type Config struct {
	Addr     string
	Password string
	DB       int
	Queue    string
}

// RedisQueue is a Redis-list-backed task queue.
type RedisQueue struct {
	client redis.UniversalClient
	queue  string
	logger *slog.Logger
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewRedisQueue connects to Redis and verifies the connection with a ping.
func NewRedisQueue(ctx context.Context, config Config, logger *slog.Logger) (*RedisQueue, error) {
	if config.Addr == "" {
		config.Addr = "localhost:6379"
	}

	if config.Queue == "" {
		config.Queue = DefaultQueue
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", config.Addr, "db", config.DB)

	return &RedisQueue{
		client: client,
		queue:  config.Queue,
		logger: logger.With("module", "task_queue", "queue", config.Queue),
		stopCh: make(chan struct{}),
	}, nil
}

// Enqueue pushes a task ID onto the queue.
func (q *RedisQueue) Enqueue(ctx context.Context, taskID string) error {
	if err := q.client.RPush(ctx, q.queue, taskID).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task %s: %w", taskID, err)
	}

	return nil
}

// Len reports the number of pending task IDs.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queue).Result()
}

// Consume pops task IDs until Stop is called or the context ends. Handler
// errors are logged; the message is not requeued, stale-task recovery picks
// up work lost this way.
func (q *RedisQueue) Consume(ctx context.Context, handler Handler) {
	q.wg.Add(1)

	go func() {
		defer q.wg.Done()

		q.logger.InfoContext(ctx, "Starting queue consumer")

		for {
			select {
			case <-q.stopCh:
				q.logger.InfoContext(ctx, "Queue consumer stopped")

				return
			case <-ctx.Done():
				q.logger.InfoContext(ctx, "Context cancelled, stopping queue consumer")

				return
			default:
				if err := q.pop(ctx, handler); err != nil {
					q.logger.ErrorContext(ctx, "Error processing message", "error", err)
					time.Sleep(1 * time.Second)
				}
			}
		}
	}()
}

func (q *RedisQueue) pop(ctx context.Context, handler Handler) error {
	result, err := q.client.BLPop(ctx, 1*time.Second, q.queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
			return nil
		}

		return fmt.Errorf("failed to pop task from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	taskID := result[1]
	q.logger.InfoContext(ctx, "Dequeued task", "task_id", taskID)

	if err := handler(ctx, taskID); err != nil {
		q.logger.ErrorContext(ctx, "Task handler failed", "task_id", taskID, "error", err)
	}

	return nil
}

// Close stops the consumer loop and releases the Redis connection.
func (q *RedisQueue) Close(ctx context.Context) error {
	close(q.stopCh)
	q.wg.Wait()

	if err := q.client.Close(); err != nil {
		q.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
	}

	return nil
}
