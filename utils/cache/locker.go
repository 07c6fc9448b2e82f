package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when a lock could not be acquired before the context ended.
var ErrLockHeld = errors.New("lock is held by another request")

// Locker serialises work on a key, such as one user's checkout.
// The returned release func is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

const lockRetryInterval = 50 * time.Millisecond

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker is a SET NX lock shared by every API replica.
type RedisLocker struct {
	cache  *RedisCache
	prefix string
}

func NewRedisLocker(rc *RedisCache) *RedisLocker {
	return &RedisLocker{cache: rc, prefix: "lock:"}
}

func (l *RedisLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	k := l.prefix + key
	for {
		ok, err := l.cache.SetNX(ctx, k, token, ttl)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrLockHeld
			}
			return nil, err
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					// a fresh context: the caller's may already be cancelled
					ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					_ = releaseScript.Run(ctx, l.cache.GetClient(), []string{k}, token).Err()
				})
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ErrLockHeld
		case <-time.After(lockRetryInterval):
		}
	}
}

// LocalLocker is the single-process fallback used when Redis is unavailable.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]chan struct{})}
}

func (l *LocalLocker) Lock(ctx context.Context, key string, _ time.Duration) (func(), error) {
	for {
		l.mu.Lock()
		held, busy := l.locks[key]
		if !busy {
			ch := make(chan struct{})
			l.locks[key] = ch
			l.mu.Unlock()
			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.locks, key)
					l.mu.Unlock()
					close(ch)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ErrLockHeld
		case <-held:
		}
	}
}
