package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/marketloft/sessiongate/internal/audit"
	apperrors "github.com/marketloft/sessiongate/internal/errors"
	"github.com/marketloft/sessiongate/internal/httputil"
)

const (
	rateLimitKeyPrefix = "ratelimit:login:"
	rateLimitWindow    = 60 * time.Second
)

// Sliding-window counter as a single atomic script. Entries older than the
// window are dropped, then the remaining count decides admission.
var rateLimitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

local windowStart = now - window

redis.call('ZREMRANGEBYSCORE', key, '-inf', windowStart)

local count = redis.call('ZCARD', key)

if count >= limit then
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    local resetAt = 0
    if #oldest >= 2 then
        resetAt = tonumber(oldest[2]) + window
    else
        resetAt = now + window
    end
    return {0, 0, resetAt}
end

redis.call('ZADD', key, now, now .. '-' .. math.random())
redis.call('EXPIRE', key, window + 10)

local remaining = limit - count - 1
local resetAt = now + window

return {1, remaining, resetAt}
`)

type RedisRateLimiter struct {
	client *redis.Client
}

func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client}
}

// Check fails open: an unreachable Redis must not take logins down with it.
func (rl *RedisRateLimiter) Check(ctx context.Context, key string, limit int) (allowed bool, remaining int, resetAt int64) {
	now := time.Now().Unix()

	result, err := rateLimitScript.Run(ctx, rl.client, []string{rateLimitKeyPrefix + key}, now, int64(rateLimitWindow.Seconds()), limit).Int64Slice()
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis rate limit check failed, allowing request")
		return true, limit - 1, now + int64(rateLimitWindow.Seconds())
	}

	if len(result) != 3 {
		log.Warn().Str("key", key).Msg("unexpected redis rate limit result")
		return true, limit - 1, now + int64(rateLimitWindow.Seconds())
	}

	return result[0] == 1, int(result[1]), result[2]
}

// rateLimiter admits or rejects one attempt for a key.
type rateLimiter interface {
	Check(ctx context.Context, key string, limit int) (allowed bool, remaining int, resetAt int64)
}

// LoginRateLimit throttles credential-bearing endpoints per client IP.
// The key is r.RemoteAddr, which the RealIP middleware has already
// resolved; forwarding headers are never read here, so clients cannot
// spoof their way past the limit.
type LoginRateLimit struct {
	limiter rateLimiter
	limit   int
}

func NewLoginRateLimit(redisClient *redis.Client, limitPerMin int) *LoginRateLimit {
	return &LoginRateLimit{
		limiter: NewRedisRateLimiter(redisClient),
		limit:   limitPerMin,
	}
}

func (m *LoginRateLimit) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, remaining, resetAt := m.limiter.Check(r.Context(), r.RemoteAddr, m.limit)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt, 10))

		if !allowed {
			w.Header().Set("Retry-After", "60")
			audit.LogFromRequest(r, audit.Event{Type: audit.EventRateLimitExceed})
			httputil.WriteError(w, apperrors.RateLimitExceeded())
			return
		}

		next.ServeHTTP(w, r)
	})
}
