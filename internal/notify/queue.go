package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Queue buffers outgoing emails so delivery happens outside the request
// path. A committed transition must never look failed because of a slow or
// broken mail transport.
type Queue interface {
	Enqueue(ctx context.Context, msg EmailMessage) error
	// Dequeue blocks up to wait for the next message. A nil message with a
	// nil error means the wait elapsed with nothing queued.
	Dequeue(ctx context.Context, wait time.Duration) (*EmailMessage, error)
}

// RedisQueue is a Queue backed by a redis list.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue constructs the queue.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key}
}

// Enqueue pushes the message onto the list.
func (q *RedisQueue) Enqueue(ctx context.Context, msg EmailMessage) error {
	if q == nil || q.client == nil {
		return errors.New("redis client not configured")
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, raw).Err()
}

// Dequeue pops the oldest message, blocking up to wait.
func (q *RedisQueue) Dequeue(ctx context.Context, wait time.Duration) (*EmailMessage, error) {
	if q == nil || q.client == nil {
		return nil, errors.New("redis client not configured")
	}
	res, err := q.client.BRPop(ctx, wait, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	// BRPOP returns [key, value].
	if len(res) != 2 {
		return nil, nil
	}
	var msg EmailMessage
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
