package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLedger(t *testing.T) (*RedisLedger, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLedger(client), mr
}

func TestRedisLedger_RevokeAndLookup(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLedger(t)

	revoked, err := l.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, l.Revoke(ctx, "jti-1", 10*time.Minute))

	revoked, err = l.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	val, err := mr.Get("revoked:jti-1")
	require.NoError(t, err)
	assert.Equal(t, Sentinel, val)
	assert.Equal(t, 10*time.Minute, mr.TTL("revoked:jti-1"))
}

func TestRedisLedger_EntryExpiresWithToken(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLedger(t)

	require.NoError(t, l.Revoke(ctx, "jti-2", time.Minute))

	mr.FastForward(59 * time.Second)
	revoked, err := l.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(time.Second)
	revoked, err = l.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisLedger_NonPositiveTTLIsNoop(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLedger(t)

	require.NoError(t, l.Revoke(ctx, "dead", 0))
	require.NoError(t, l.Revoke(ctx, "dead", -time.Second))
	assert.False(t, mr.Exists("revoked:dead"))
}

func TestRedisLedger_Unavailable(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLedger(t)
	mr.Close()

	_, err := l.IsRevoked(ctx, "jti")
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, l.Revoke(ctx, "jti", time.Minute), ErrUnavailable)
	require.ErrorIs(t, l.Ping(ctx), ErrUnavailable)
}
