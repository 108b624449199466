package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "tiffin:admin:session:"
	failKeyPrefix    = "tiffin:login:fails:"
	blockKeyPrefix   = "tiffin:login:block:"
)

// NewRedisClient connects to url (redis://...) and pings it.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

var _ SessionStore = (*RedisSessionStore)(nil)

// RedisSessionStore keeps session ids as expiring keys, so sessions survive
// restarts and are shared between instances.
type RedisSessionStore struct {
	rdb redis.Cmdable
}

func NewRedisSessionStore(rdb redis.Cmdable) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb}
}

func (r *RedisSessionStore) Create(ctx context.Context, s Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, sessionKeyPrefix+s.ID.String(), s.IssuedAt.Unix(), ttl).Err()
}

func (r *RedisSessionStore) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := r.rdb.Exists(ctx, sessionKeyPrefix+id.String()).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	return r.rdb.Del(ctx, sessionKeyPrefix+id.String()).Err()
}

var _ Throttle = (*RedisThrottle)(nil)

// RedisThrottle shares login cooldowns between instances.
type RedisThrottle struct {
	rdb     redis.Cmdable
	maxWait time.Duration
}

func NewRedisThrottle(rdb redis.Cmdable, maxWait time.Duration) *RedisThrottle {
	if maxWait <= 0 {
		maxWait = DefaultCooldownCap
	}
	return &RedisThrottle{rdb: rdb, maxWait: maxWait}
}

// acquireScript checks the block key and, when it is clear, counts the
// attempt and sets the next cooldown in one step.
// KEYS: block, fails. ARGV: max wait ms, fail count ttl seconds.
var acquireScript = redis.NewScript(`
local wait = redis.call('PTTL', KEYS[1])
if wait > 0 then
	return wait
end
local fails = redis.call('INCR', KEYS[2])
redis.call('EXPIRE', KEYS[2], ARGV[2])
local cooldown = 1000 * 2 ^ math.min(fails, 30)
local cap = tonumber(ARGV[1])
if cooldown > cap then
	cooldown = cap
end
redis.call('SET', KEYS[1], 1, 'PX', math.floor(cooldown))
return 0
`)

func (r *RedisThrottle) Acquire(ctx context.Context, key string) (time.Duration, error) {
	ms, err := acquireScript.Run(ctx, r.rdb,
		[]string{blockKeyPrefix + key, failKeyPrefix + key},
		r.maxWait.Milliseconds(), int64(failCountTTL/time.Second),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("acquire login attempt: %w", err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func (r *RedisThrottle) Reset(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, failKeyPrefix+key, blockKeyPrefix+key).Err()
}
