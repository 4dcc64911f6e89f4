package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "time-import:ratelimit:"

// takeScript keeps count and window_start (unix ms) in a hash and applies one take atomically.
var takeScript = redis.NewScript(`
local count = tonumber(redis.call('HGET', KEYS[1], 'count') or '0')
local start = tonumber(redis.call('HGET', KEYS[1], 'window_start') or '0')
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
if start == 0 or now - start >= window or now < start then
	count = 0
	start = now
end
if count >= limit then
	return {0, count, start}
end
count = count + 1
redis.call('HSET', KEYS[1], 'count', count, 'window_start', start)
redis.call('PEXPIRE', KEYS[1], window)
return {1, count, start}
`)

// RedisStateStore persists window state in Redis
type RedisStateStore struct {
	client redis.Scripter
}

// NewRedisStateStore creates a store on an existing client
func NewRedisStateStore(client redis.Scripter) *RedisStateStore {
	return &RedisStateStore{client: client}
}

// Take implements StateStore
func (r *RedisStateStore) Take(ctx context.Context, key string, limit int64, window time.Duration, now time.Time) (State, bool, error) {
	res, err := takeScript.Run(ctx, r.client, []string{redisKeyPrefix + key},
		now.UnixMilli(), window.Milliseconds(), limit).Int64Slice()
	if err != nil {
		return State{}, false, fmt.Errorf("failed to update rate limit window: %w", err)
	}
	if len(res) != 3 {
		return State{}, false, fmt.Errorf("unexpected rate limit script result: %v", res)
	}
	return State{Count: res[1], WindowStart: time.UnixMilli(res[2])}, res[0] == 1, nil
}

var _ StateStore = (*RedisStateStore)(nil)
