package api

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginGuard is the part of the redis client used for login throttling.
type LoginGuard interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// LoginLimits 控制登录限流与锁定。
type LoginLimits struct {
	PerHour       int
	LockThreshold int
	LockTTL       time.Duration
}

func (l LoginLimits) withDefaults() LoginLimits {
	if l.PerHour <= 0 {
		l.PerHour = 10
	}
	if l.LockThreshold <= 0 {
		l.LockThreshold = 5
	}
	if l.LockTTL <= 0 {
		l.LockTTL = 15 * time.Minute
	}
	return l
}

// loginThrottle 按 IP+用户名 做小时级限流，并在连续失败后临时锁定账号。
// Redis 出错时一律放行，登录不依赖 Redis 可用。
type loginThrottle struct {
	guard  LoginGuard
	limits LoginLimits
	now    func() time.Time
}

func newLoginThrottle(guard LoginGuard, limits LoginLimits) *loginThrottle {
	return &loginThrottle{guard: guard, limits: limits.withDefaults(), now: time.Now}
}

func lockKey(username string) string        { return "lock:login:" + username }
func failureKey(username string) string     { return "lock:login:fail:" + username }
func normalizeLogin(username string) string { return strings.ToLower(strings.TrimSpace(username)) }

// allow counts one attempt and reports whether it is within the hourly budget.
func (t *loginThrottle) allow(ctx context.Context, ip, username string) (bool, error) {
	key := "rate:login:" + ip + ":" + username + ":" + t.now().UTC().Format("2006010215")
	count, err := t.incr(ctx, key, time.Hour)
	if err != nil {
		return true, err
	}
	return count <= int64(t.limits.PerHour), nil
}

func (t *loginThrottle) locked(ctx context.Context, username string) bool {
	ttl, err := t.guard.TTL(ctx, lockKey(username)).Result()
	return err == nil && ttl > 0
}

// fail records a failed attempt and locks the account once the threshold is reached.
func (t *loginThrottle) fail(ctx context.Context, username string) {
	count, err := t.incr(ctx, failureKey(username), t.limits.LockTTL)
	if err != nil {
		return
	}
	if count >= int64(t.limits.LockThreshold) {
		_ = t.guard.Set(ctx, lockKey(username), "1", t.limits.LockTTL).Err()
	}
}

func (t *loginThrottle) reset(ctx context.Context, username string) {
	_ = t.guard.Del(ctx, failureKey(username)).Err()
}

// incr 自增计数，首次创建时设置过期时间。
func (t *loginThrottle) incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := t.guard.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = t.guard.Expire(ctx, key, ttl).Err()
	}
	return count, nil
}
