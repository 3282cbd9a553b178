package ratelimiter

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ScanQuota caps how many scans one source may submit per sliding window.
type ScanQuota struct {
	client *redis.Client
	script *redis.Script
	limit  int
	window time.Duration
}

// Members are unique per call so two scans landing in the same millisecond
// are both counted.
const luaScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call("ZREMRANGEBYSCORE", key, 0, now - window)
local count = redis.call("ZCARD", key)

if count >= limit then
    return 0
end

redis.call("ZADD", key, now, member)
redis.call("PEXPIRE", key, window)
return 1
`

// NewClient returns a go-redis client for the quota store.
func NewClient(addr string, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// New returns a sliding-window quota of limit scans per window.
func New(client *redis.Client, limit int, window time.Duration) *ScanQuota {
	return &ScanQuota{
		client: client,
		script: redis.NewScript(luaScript),
		limit:  limit,
		window: window,
	}
}

func key(source string) string {
	return "quota:scan:" + source
}

// Allow records one scan for source and reports whether it fits the window.
func (q *ScanQuota) Allow(ctx context.Context, source string) (bool, error) {
	now := time.Now().UnixMilli()
	res, err := q.script.Run(ctx, q.client, []string{key(source)}, now, q.window.Milliseconds(), q.limit, uuid.NewString()).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// Remaining returns how many scans source has left in the current window.
func (q *ScanQuota) Remaining(ctx context.Context, source string) (int, error) {
	min := strconv.FormatInt(time.Now().Add(-q.window).UnixMilli(), 10)
	count, err := q.client.ZCount(ctx, key(source), min, "+inf").Result()
	if err != nil {
		return 0, err
	}
	if left := q.limit - int(count); left > 0 {
		return left, nil
	}
	return 0, nil
}

// Reset clears the window for source.
func (q *ScanQuota) Reset(ctx context.Context, source string) error {
	return q.client.Del(ctx, key(source)).Err()
}

// Limit returns the scans allowed per window.
func (q *ScanQuota) Limit() int {
	return q.limit
}

// Window returns the sliding window length.
func (q *ScanQuota) Window() time.Duration {
	return q.window
}
