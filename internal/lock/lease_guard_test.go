package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/leasehold/internal/apperror"
	"github.com/smallbiznis/leasehold/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLeaseGuardWithoutRedisIsNil(t *testing.T) {
	guard, err := NewLeaseGuard(Params{Config: config.Config{}, Log: zap.NewNop()})
	require.NoError(t, err)
	assert.Nil(t, guard)
}

func TestNilGuardAdmitsCallers(t *testing.T) {
	var guard *LeaseGuard

	release, err := guard.Acquire(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, release)
	release()
}

func TestNilLockerRejectsLock(t *testing.T) {
	var locker *Locker
	_, ok, err := locker.TryLock(context.Background(), "k", 0)
	assert.Error(t, err)
	assert.False(t, ok)
	assert.NoError(t, locker.Release(context.Background(), "k", "t"))
}

func TestNewLockerNilClient(t *testing.T) {
	assert.Nil(t, NewLocker(nil))
	assert.Nil(t, NewLeaseGuardWithClient(nil, 0, nil))
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestLeaseGuardRejectsConcurrentWriter(t *testing.T) {
	mr, client := newRedis(t)
	guard := NewLeaseGuardWithClient(client, 5*time.Second, zap.NewNop())
	ctx := context.Background()

	release, err := guard.Acquire(ctx, 42)
	require.NoError(t, err)
	assert.True(t, mr.Exists("leasehold:lease:42:billing"))

	_, err = guard.Acquire(ctx, 42)
	require.ErrorIs(t, err, ErrOperationInProgress)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	other, err := guard.Acquire(ctx, 43)
	require.NoError(t, err)
	other()

	release()
	assert.False(t, mr.Exists("leasehold:lease:42:billing"))

	again, err := guard.Acquire(ctx, 42)
	require.NoError(t, err)
	again()
}

func TestLeaseGuardLockExpires(t *testing.T) {
	mr, client := newRedis(t)
	guard := NewLeaseGuardWithClient(client, 2*time.Second, zap.NewNop())
	ctx := context.Background()

	_, err := guard.Acquire(ctx, 7)
	require.NoError(t, err)
	assert.Greater(t, mr.TTL("leasehold:lease:7:billing"), time.Duration(0))

	mr.FastForward(3 * time.Second)

	release, err := guard.Acquire(ctx, 7)
	require.NoError(t, err)
	release()
}

func TestLockerReleaseWithStaleTokenKeepsNewOwner(t *testing.T) {
	mr, client := newRedis(t)
	locker := NewLocker(client)
	ctx := context.Background()

	stale, ok, err := locker.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Second)

	current, ok, err := locker.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEqual(t, stale, current)

	require.NoError(t, locker.Release(ctx, "k", stale))
	value, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, current, value)

	require.NoError(t, locker.Release(ctx, "k", current))
	assert.False(t, mr.Exists("k"))
}
