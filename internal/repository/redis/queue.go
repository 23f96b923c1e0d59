package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crossply/crossply/internal/domain"
)

const publishQueueKey = "queue:publish"

// JobQueue is the Redis-backed publish job queue. Producers LPUSH JSON
// payloads, consumers BRPOP them, so jobs come out in FIFO order.
type JobQueue struct {
	client *Client
}

// NewJobQueue creates a new job queue
func NewJobQueue(client *Client) *JobQueue {
	return &JobQueue{client: client}
}

// Enqueue pushes a publish job onto the queue
func (q *JobQueue) Enqueue(ctx context.Context, job domain.PublishJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := q.client.rdb.LPush(ctx, publishQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	return nil
}

// Dequeue blocks until a job is available or the timeout elapses.
// Returns nil when the wait timed out without a job.
func (q *JobQueue) Dequeue(ctx context.Context, timeout time.Duration) (*domain.PublishJob, error) {
	result, err := q.client.rdb.BRPop(ctx, timeout, publishQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}

	// BRPOP returns [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected brpop result length %d", len(result))
	}

	var job domain.PublishJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

// Depth returns the number of jobs waiting in the queue
func (q *JobQueue) Depth(ctx context.Context) (int64, error) {
	depth, err := q.client.rdb.LLen(ctx, publishQueueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue depth: %w", err)
	}
	return depth, nil
}
