package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key prefixes
	JobKeyPrefix     = "job:"
	JobQueueKey      = "job_queue"
	JobProcessingKey = "job_processing"

	JobTTL = 24 * time.Hour
)

// ErrEmpty is returned by Dequeue when no job arrived within the timeout.
var ErrEmpty = errors.New("jobqueue: empty")

// Backend stores pending jobs. A dequeued job stays in a processing set
// until Ack.
type Backend interface {
	Enqueue(ctx context.Context, job *Job) error
	Dequeue(ctx context.Context, timeout time.Duration) (*Job, error)
	Update(ctx context.Context, job *Job) error
	Ack(ctx context.Context, job *Job) error
	Size(ctx context.Context) (int64, error)
}

type redisBackend struct {
	client *redis.Client
}

// NewRedisBackend keeps jobs in Redis so retries survive restarts.
func NewRedisBackend(client *redis.Client) Backend {
	return &redisBackend{client: client}
}

func (b *redisBackend) Enqueue(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	pipe := b.client.Pipeline()
	pipe.Set(ctx, JobKeyPrefix+job.ID, data, JobTTL)
	pipe.LPush(ctx, JobQueueKey, job.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

func (b *redisBackend) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	// Move job from pending queue to processing queue atomically
	jobID, err := b.client.BRPopLPush(ctx, JobQueueKey, JobProcessingKey, timeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, err
	}

	data, err := b.client.Get(ctx, JobKeyPrefix+jobID).Result()
	if err != nil {
		b.client.LRem(ctx, JobProcessingKey, 1, jobID)
		return nil, fmt.Errorf("job data not found for ID %s: %w", jobID, err)
	}

	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		b.client.LRem(ctx, JobProcessingKey, 1, jobID)
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", jobID, err)
	}
	return &job, nil
}

func (b *redisBackend) Update(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return b.client.Set(ctx, JobKeyPrefix+job.ID, data, JobTTL).Err()
}

func (b *redisBackend) Ack(ctx context.Context, job *Job) error {
	if err := b.client.LRem(ctx, JobProcessingKey, 1, job.ID).Err(); err != nil {
		return err
	}
	if job.Status == JobStatusCompleted {
		return b.client.Del(ctx, JobKeyPrefix+job.ID).Err()
	}
	return nil
}

func (b *redisBackend) Size(ctx context.Context) (int64, error) {
	return b.client.LLen(ctx, JobQueueKey).Result()
}

type memoryBackend struct {
	mu      sync.Mutex
	pending []*Job
	ready   chan struct{}
}

// NewMemoryBackend keeps jobs in process. Pending retries are lost on exit.
func NewMemoryBackend() Backend {
	return &memoryBackend{ready: make(chan struct{}, 1)}
}

func (b *memoryBackend) Enqueue(_ context.Context, job *Job) error {
	cp := *job
	b.mu.Lock()
	b.pending = append(b.pending, &cp)
	b.mu.Unlock()

	select {
	case b.ready <- struct{}{}:
	default:
	}
	return nil
}

func (b *memoryBackend) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		b.mu.Lock()
		if len(b.pending) > 0 {
			job := b.pending[0]
			b.pending = b.pending[1:]
			b.mu.Unlock()
			return job, nil
		}
		b.mu.Unlock()

		select {
		case <-b.ready:
		case <-timer.C:
			return nil, ErrEmpty
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (b *memoryBackend) Update(context.Context, *Job) error {
	return nil
}

func (b *memoryBackend) Ack(context.Context, *Job) error {
	return nil
}

func (b *memoryBackend) Size(context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.pending)), nil
}
