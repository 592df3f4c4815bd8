package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucket атомарно пополняет и списывает ведро.
// KEYS[1] - ключ ведра; ARGV: скорость в секунду, ёмкость, стоимость, текущее время в секундах.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local cost = tonumber(ARGV[3])
local now = tonumber(ARGV[4])

local state = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])
if not tokens or not last_refill then
    tokens = capacity
    last_refill = now
end

local elapsed = now - last_refill
if elapsed > 0 then
    tokens = math.min(capacity, tokens + elapsed * rate)
    last_refill = now
end

local allowed = 0
if tokens >= cost then
    tokens = tokens - cost
    allowed = 1
end

redis.call("HSET", key, "tokens", tokens, "last_refill", last_refill)
redis.call("EXPIRE", key, 60)
return allowed
`)

// Redis - общее для всех реплик ведро в Redis.
type Redis struct {
	client redis.Scripter
	policy Policy
	prefix string
	now    func() time.Time
}

func NewRedis(client redis.Scripter, policy Policy) *Redis {
	return &Redis{client: client, policy: policy, prefix: "ratelimit:", now: time.Now}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	now := float64(r.now().UnixMicro()) / 1e6
	allowed, err := tokenBucket.Run(ctx, r.client, []string{r.prefix + key}, r.policy.RPS, r.policy.Burst, 1, now).Int64()
	if err != nil {
		return false, fmt.Errorf("redis limiter: %w", err)
	}
	return allowed == 1, nil
}
