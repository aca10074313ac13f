package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T, ttl time.Duration) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	l := NewLocker(rdb, ttl, nil)
	l.retry = 5 * time.Millisecond
	return l, mr
}

func TestLocker_AcquireRelease(t *testing.T) {
	l, mr := newTestLocker(t, time.Minute)

	unlock, err := l.Lock(context.Background(), "summary:P1")
	require.NoError(t, err)
	assert.True(t, mr.Exists(lockKeyPrefix+"summary:P1"))
	assert.Equal(t, time.Minute, mr.TTL(lockKeyPrefix+"summary:P1"))

	unlock()
	unlock()
	assert.False(t, mr.Exists(lockKeyPrefix+"summary:P1"))
}

func TestLocker_BlocksUntilContextDone(t *testing.T) {
	l, _ := newTestLocker(t, time.Minute)

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := l.Lock(context.Background(), "other")
	require.NoError(t, err)
	other()
}

func TestLocker_WaiterAcquiresAfterRelease(t *testing.T) {
	l, _ := newTestLocker(t, time.Minute)

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := l.Lock(context.Background(), "k")
		if assert.NoError(t, err) {
			second()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first was held")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}
}

func TestLocker_ExpiredHolderDoesNotReleaseNewOwner(t *testing.T) {
	l, mr := newTestLocker(t, time.Second)

	stale, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	fresh, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	stale()
	assert.True(t, mr.Exists(lockKeyPrefix+"k"))

	fresh()
	assert.False(t, mr.Exists(lockKeyPrefix+"k"))
}

func TestLocker_ServerDown(t *testing.T) {
	l, mr := newTestLocker(t, time.Minute)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := l.Lock(ctx, "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acquire lock k")
}
