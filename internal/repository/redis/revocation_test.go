package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/authlib-server/internal/model"
)

func newTestRepository(t *testing.T) (*RevocationRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRevocationRepository(client, "test:revoked"), mr
}

func TestRevocationRepository_PutGet(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	repo.now = func() time.Time { return now }

	first := model.RevocationRecord{AccountID: 1, ExpiresAt: now.Add(time.Hour), RevokedAt: now}
	require.NoError(t, repo.Put(ctx, "k1", first))

	second := first
	second.AccountID = 2
	require.NoError(t, repo.Put(ctx, "k1", second))

	got, err := repo.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "k1", got.TokenKey)
	assert.Equal(t, int64(1), got.AccountID, "first revocation wins")
	assert.True(t, first.ExpiresAt.Equal(got.ExpiresAt))

	assert.True(t, mr.Exists("test:revoked:k1"))
	assert.Equal(t, time.Hour, mr.TTL("test:revoked:k1"))

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRevocationRepository_Expiry(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Put(ctx, "stale", model.RevocationRecord{ExpiresAt: now.Add(-time.Second)}))
	assert.False(t, mr.Exists("test:revoked:stale"))

	require.NoError(t, repo.Put(ctx, "short", model.RevocationRecord{ExpiresAt: now.Add(time.Minute)}))
	mr.FastForward(2 * time.Minute)

	_, err := repo.Get(ctx, "short")
	assert.ErrorIs(t, err, model.ErrNotFound)

	pruned, err := repo.Prune(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, pruned)
}

func TestRevocationRepository_Errors(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("test:revoked:garbage", "not json"))
	_, err := repo.Get(ctx, "garbage")
	assert.ErrorContains(t, err, "failed to unmarshal revocation")

	mr.Close()
	err = repo.Put(ctx, "k", model.RevocationRecord{ExpiresAt: time.Now().Add(time.Hour)})
	assert.ErrorContains(t, err, "failed to store revocation")
	_, err = repo.Get(ctx, "k")
	assert.ErrorContains(t, err, "failed to get revocation")
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	_ = client.Close()

	mr.Close()
	_, err = NewClient(context.Background(), mr.Addr(), "", 0)
	assert.Error(t, err)
}
