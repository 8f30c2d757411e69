package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultQueueKey is the redis list holding pending jobs.
const DefaultQueueKey = "weather-insights:jobs"

const pollTimeout = 2 * time.Second

// RedisQueue stores jobs as JSON in a redis list (LPUSH / BRPOP).
type RedisQueue struct {
	client *redis.Client
	key    string
}

// Connect parses a redis:// URL and checks the server answers.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultQueueKey
	}
	return &RedisQueue{client: client, key: key}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	data, err := encodeJob(job)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, data).Err()
}

// Dequeue polls with BRPOP so a cancelled context is noticed within pollTimeout.
func (q *RedisQueue) Dequeue(ctx context.Context) (Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Job{}, err
		}
		res, err := q.client.BRPop(ctx, pollTimeout, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if errors.Is(err, redis.ErrClosed) {
			return Job{}, ErrQueueClosed
		}
		if err != nil {
			return Job{}, err
		}
		if len(res) < 2 {
			return Job{}, fmt.Errorf("unexpected BRPOP reply of length %d", len(res))
		}
		return decodeJob([]byte(res[1]))
	}
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

func encodeJob(job Job) ([]byte, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job: %w", err)
	}
	return data, nil
}

func decodeJob(data []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return Job{}, fmt.Errorf("failed to decode job: %w", err)
	}
	if job.Kind != KindCollect && job.Kind != KindGenerate {
		return Job{}, fmt.Errorf("unknown job kind %q", job.Kind)
	}
	return job, nil
}
