package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/authlib-server/internal/model"
)

func TestAccountRepository_CRUD(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewAccountRepository()

	created, err := repo.Insert(ctx, model.Account{Email: "a@x.com", CredentialHash: "d", Active: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	second, err := repo.Insert(ctx, model.Account{Email: "b@x.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID)

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", byID.Email)

	byEmail, err := repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = repo.GetByEmail(ctx, "A@x.com")
	assert.ErrorIs(t, err, model.ErrNotFound, "email match is case-sensitive")

	inactive := false
	at := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	updated, err := repo.Update(ctx, byID.ID, model.AccountUpdate{Active: &inactive}, at)
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.Equal(t, "a@x.com", updated.Email)
	assert.Equal(t, "d", updated.CredentialHash)
	assert.Equal(t, at, updated.UpdatedAt)

	_, err = repo.Update(ctx, 99, model.AccountUpdate{Active: &inactive}, at)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = repo.GetByID(ctx, 99)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestAccountRepository_ConcurrentInsert(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewAccountRepository()

	var wg sync.WaitGroup
	var created, duplicates int32
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Insert(ctx, model.Account{Email: "same@x.com"})
			switch {
			case err == nil:
				atomic.AddInt32(&created, 1)
			case assert.ErrorIs(t, err, model.ErrAlreadyExists):
				atomic.AddInt32(&duplicates, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created)
	assert.Equal(t, int32(31), duplicates)
}

func TestAccountRepository_ConcurrentUpdatesKeepBothFields(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewAccountRepository()
	created, err := repo.Insert(ctx, model.Account{Email: "a@x.com", Active: true})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			inactive := false
			_, err := repo.Update(ctx, created.ID, model.AccountUpdate{Active: &inactive}, time.Now())
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			login := time.Now()
			_, err := repo.Update(ctx, created.ID, model.AccountUpdate{LastLoginAt: &login}, time.Now())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.NotNil(t, got.LastLoginAt)
}

func TestAccountRepository_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAccountRepository().Insert(ctx, model.Account{Email: "a@x.com"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRevocationRepository_PutGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewRevocationRepository()
	exp := time.Now().Add(time.Hour).UTC()

	first := model.RevocationRecord{AccountID: 1, ExpiresAt: exp, RevokedAt: time.Now().UTC()}
	require.NoError(t, repo.Put(ctx, "k1", first))

	second := first
	second.RevokedAt = first.RevokedAt.Add(time.Minute)
	require.NoError(t, repo.Put(ctx, "k1", second))

	got, err := repo.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "k1", got.TokenKey)
	assert.Equal(t, first.RevokedAt, got.RevokedAt, "first revocation wins")

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRevocationRepository_ExpiredAndPrune(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewRevocationRepository()
	now := time.Now().UTC()

	for i, offset := range []time.Duration{-2 * time.Hour, -time.Hour, time.Hour} {
		key := fmt.Sprintf("k%d", i)
		require.NoError(t, repo.Put(ctx, key, model.RevocationRecord{AccountID: int64(i), ExpiresAt: now.Add(offset)}))
	}

	_, err := repo.Get(ctx, "k0")
	assert.ErrorIs(t, err, model.ErrNotFound, "expired records are not reported")

	pruned, err := repo.Prune(ctx, now)
	require.NoError(t, err)
	require.Len(t, pruned, 2)
	assert.Equal(t, "k0", pruned[0].TokenKey)
	assert.Equal(t, "k1", pruned[1].TokenKey)
	assert.Equal(t, 1, repo.Len())

	_, err = repo.Get(ctx, "k2")
	assert.NoError(t, err)
}
