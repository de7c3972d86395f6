package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue backs the run queue with a Redis list so enqueued runs
// survive server restarts.
type RedisQueue struct {
	client *redis.Client
	key    string
}

func NewRedisQueue(ctx context.Context, addr, key string) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisQueue{client: client, key: key}, nil
}

func (q *RedisQueue) Push(ctx context.Context, req *RunRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode run request: %w", err)
	}

	if err := q.client.RPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue run request: %w", err)
	}

	return nil
}

func (q *RedisQueue) Pop(ctx context.Context) (*RunRequest, error) {
	for {
		values, err := q.client.BLPop(ctx, 5*time.Second, q.key).Result()
		if errors.Is(err, redis.Nil) {
			// Poll timeout; check the context and block again.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("failed to dequeue run request: %w", err)
		}

		// BLPOP returns [key, value].
		if len(values) != 2 {
			return nil, fmt.Errorf("unexpected BLPOP reply of length %d", len(values))
		}

		var req RunRequest
		if err := json.Unmarshal([]byte(values[1]), &req); err != nil {
			return nil, fmt.Errorf("failed to decode run request: %w", err)
		}

		return &req, nil
	}
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
