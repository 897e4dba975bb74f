package guard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T, wait time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, RedisConfig{TTL: time.Second, Wait: wait, RetryStep: 5 * time.Millisecond}), srv
}

func TestRedisLockerExclusive(t *testing.T) {
	locker, srv := newRedisLocker(t, 30*time.Millisecond)

	unlock, err := locker.Lock(context.Background(), "7:course-x")
	require.NoError(t, err)
	assert.True(t, srv.Exists("guard:7:course-x"))

	_, err = locker.Lock(context.Background(), "7:course-x")
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	assert.False(t, srv.Exists("guard:7:course-x"))

	again, err := locker.Lock(context.Background(), "7:course-x")
	require.NoError(t, err)
	again()
}

func TestRedisLockerReleaseKeepsForeignToken(t *testing.T) {
	locker, srv := newRedisLocker(t, 30*time.Millisecond)

	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)

	// Simulate expiry and takeover by another instance.
	require.NoError(t, srv.Set("guard:k", "someone-else"))
	unlock()

	value, err := srv.Get("guard:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", value)
}

func TestRedisLockerExpires(t *testing.T) {
	locker, srv := newRedisLocker(t, 30*time.Millisecond)

	_, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)
	srv.FastForward(2 * time.Second)

	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
}

func TestRedisLockerUnlockIsIdempotentAcrossGoroutines(t *testing.T) {
	locker, srv := newRedisLocker(t, 30*time.Millisecond)

	unlock, err := locker.Lock(context.Background(), "7:course-x")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock()
		}()
	}
	wg.Wait()
	assert.False(t, srv.Exists("guard:7:course-x"))

	next, err := locker.Lock(context.Background(), "7:course-x")
	require.NoError(t, err)
	unlock()
	assert.True(t, srv.Exists("guard:7:course-x"))
	next()
}
