package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// MutationRateLimiter limita cuantas mutaciones puede pedir un actor por ventana.
type MutationRateLimiter interface {
	Allow(ctx context.Context, actor string) bool
}

// Ventana fija: el primer INCR fija el TTL.
const redisMutationAllowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

type redisMutationRateLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	prefix string
}

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// NewRedisMutationRateLimiter devuelve nil sin cliente o con max <= 0 (sin limite).
func NewRedisMutationRateLimiter(client *redis.Client, window time.Duration, max int) MutationRateLimiter {
	if client == nil || max <= 0 {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	return &redisMutationRateLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "negaboku:rl:",
	}
}

// Allow falla abierto ante errores de Redis.
func (l *redisMutationRateLimiter) Allow(ctx context.Context, actor string) bool {
	if l == nil || l.client == nil {
		return true
	}
	normalized := strings.ToLower(strings.TrimSpace(actor))
	if normalized == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	seconds := int(l.window.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	count, err := l.client.Eval(ctx, redisMutationAllowScript, []string{l.prefix + normalized}, seconds).Int()
	if err != nil {
		return true
	}
	return count <= l.max
}
