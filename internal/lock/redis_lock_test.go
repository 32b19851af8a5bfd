package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLocker(rdb), mr
}

func TestRedisLocker_Exclusive(t *testing.T) {
	l, mr := newLocker(t)
	ctx := context.Background()

	release, ok, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("k"))

	_, ok, err = l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	assert.False(t, mr.Exists("k"))

	_, ok, err = l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLocker_Expires(t *testing.T) {
	l, mr := newLocker(t)
	ctx := context.Background()

	_, ok, err := l.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = l.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLocker_StaleReleaseKeepsNewOwner(t *testing.T) {
	l, mr := newLocker(t)
	ctx := context.Background()

	release1, ok, err := l.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)
	_, ok, err = l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	release1()
	assert.True(t, mr.Exists("k"))
}

func TestRedisLocker_RedisDown(t *testing.T) {
	l, mr := newLocker(t)
	mr.Close()

	_, ok, err := l.Acquire(context.Background(), "k", time.Second)
	assert.Error(t, err)
	assert.False(t, ok)
}
