package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_AppSessionStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	s := NewAppSessionStore(rdb, "test:"+uuid.NewString())
	exp := time.Now().Add(time.Minute)

	require.NoError(t, s.Create(ctx, "a", "u1", exp))
	require.NoError(t, s.Create(ctx, "b", "u1", exp))

	as, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "u1", as.UserID)
	assert.Equal(t, exp.Unix(), as.ExpiresAt)

	n, err := s.CountForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	require.NoError(t, s.Delete(ctx, "a"))

	require.NoError(t, s.RevokeAllForUser(ctx, "u1"))
	_, err = s.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func Test_AppSessionStore_RejectsExpired(t *testing.T) {
	s := NewAppSessionStore(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "")
	assert.Error(t, s.Create(context.Background(), "x", "u1", time.Now().Add(-time.Second)))
}
