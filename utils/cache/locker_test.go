package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerSerialises(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Lock(ctx, "checkout:1", time.Second)
			if !assert.NoError(t, err) {
				return
			}
			defer release()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(2 * time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestLocalLockerTimeout(t *testing.T) {
	l := NewLocalLocker()
	release, err := l.Lock(context.Background(), "k", time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k", time.Second)
	assert.ErrorIs(t, err, ErrLockHeld)

	release()
	release()

	other, err := l.Lock(context.Background(), "k", time.Second)
	require.NoError(t, err)
	other()
}

func TestRedisLockerCancelledContext(t *testing.T) {
	// nothing listens here; the cancelled context ends the attempt first
	rc := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1}))
	t.Cleanup(func() { _ = rc.Close() })
	l := NewRedisLocker(rc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Lock(ctx, "checkout:1", time.Second)
	assert.ErrorIs(t, err, ErrLockHeld)
}
