package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// The script applies the same window rule as Memory in a single round
// trip, so concurrent attempts across instances cannot both read a stale
// count. The key outlives its window by a millisecond so an attempt at
// exactly reset_ms still counts against the window, as in Memory.
var windowScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local window_ms = tonumber(ARGV[2])
	local max = tonumber(ARGV[3])

	local state = redis.call('HMGET', key, 'count', 'reset_ms')
	local count = tonumber(state[1])
	local reset_ms = tonumber(state[2])

	if count == nil or reset_ms == nil or now_ms > reset_ms then
		redis.call('HSET', key, 'count', 1, 'reset_ms', now_ms + window_ms)
		redis.call('PEXPIRE', key, window_ms + 1)
		return 1
	end
	if count >= max then
		return 0
	end
	redis.call('HINCRBY', key, 'count', 1)
	return 1
`)

// Redis shares counters between every instance pointed at the same server.
type Redis struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedis(rdb redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "login"
	}
	return &Redis{rdb: rdb, prefix: prefix, now: time.Now}
}

// WithClock swaps the time source. Intended for tests.
func (r *Redis) WithClock(now func() time.Time) *Redis {
	r.now = now
	return r
}

func (r *Redis) key(identifier string) string { return r.prefix + ":" + identifier }

func (r *Redis) Check(ctx context.Context, identifier string) error {
	allowed, err := windowScript.Run(ctx, r.rdb, []string{r.key(identifier)},
		r.now().UnixMilli(), Window.Milliseconds(), MaxAttempts).Int()
	if err != nil {
		return fmt.Errorf("rate limit check: %w", err)
	}
	if allowed != 1 {
		return ErrLimited
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context, identifier string) error {
	if err := r.rdb.Del(ctx, r.key(identifier)).Err(); err != nil {
		return fmt.Errorf("rate limit clear: %w", err)
	}
	return nil
}
