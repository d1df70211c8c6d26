package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dgenny/conecta/internal/pkg/ratelimiter"
)

var admitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
    redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

type Limiter struct {
	client *redis.Client
	prefix string
	limit  int
	span   time.Duration
}

func New(client *redis.Client, prefix string, limit int, span time.Duration) *Limiter {
	return &Limiter{client: client, prefix: prefix, limit: limit, span: span}
}

func (l *Limiter) Allow(ctx context.Context, key string) (ratelimiter.Decision, error) {
	vals, err := admitScript.Run(ctx, l.client, []string{l.prefix + ":" + key}, l.span.Milliseconds()).Int64Slice()
	if err != nil {
		return ratelimiter.Decision{}, fmt.Errorf("redis limiter: %w", err)
	}
	if len(vals) < 2 {
		return ratelimiter.Decision{}, fmt.Errorf("redis limiter: resposta inválida")
	}

	current, ttlMs := vals[0], vals[1]
	remaining := l.limit - int(current)
	if remaining < 0 {
		remaining = 0
	}
	retryAfter := time.Duration(ttlMs) * time.Millisecond
	if ttlMs < 0 {
		retryAfter = l.span
	}

	return ratelimiter.Decision{
		Allowed:    current <= int64(l.limit),
		Remaining:  remaining,
		RetryAfter: retryAfter,
	}, nil
}
