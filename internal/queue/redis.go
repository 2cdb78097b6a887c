package queue

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue is a RawQueue on a Redis list. LPush/BRPop gives FIFO order per
// producer; the broker redelivers nothing by itself, so callers layer their
// own retry policy on top if they need one.
type RedisQueue struct {
	rdb *redis.Client
	key string
}

// NewRedisQueue binds a queue to the Redis list stored at key.
func NewRedisQueue(rdb *redis.Client, key string) *RedisQueue {
	return &RedisQueue{rdb: rdb, key: key}
}

func (q *RedisQueue) Push(ctx context.Context, payload []byte) error {
	return q.rdb.LPush(ctx, q.key, payload).Err()
}

func (q *RedisQueue) Pop(ctx context.Context, block time.Duration) ([]byte, error) {
	res, err := q.rdb.BRPop(ctx, block, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmpty
		}
		return nil, err
	}
	// BRPop returns [key, value].
	if len(res) != 2 {
		return nil, ErrEmpty
	}
	return []byte(res[1]), nil
}

var _ RawQueue = (*RedisQueue)(nil)
