package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/authlib-server/internal/metrics"
	"github.com/dtroode/authlib-server/internal/mocks"
	"github.com/dtroode/authlib-server/internal/model"
	"github.com/dtroode/authlib-server/internal/repository/memory"
	tu "github.com/dtroode/authlib-server/internal/testutil"
)

func newTestLedger(t *testing.T, store model.RevocationStore, opts ...LedgerOption) (*Ledger, *metrics.Metrics) {
	t.Helper()
	m := metrics.NewNoop()
	l, err := NewLedger(store, 16, m, tu.MakeNoopLogger(), opts...)
	require.NoError(t, err)
	return l, m
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	a := Fingerprint("token-a")
	assert.Len(t, a, 64)
	assert.Equal(t, a, Fingerprint("token-a"))
	assert.NotEqual(t, a, Fingerprint("token-b"))
	assert.NotContains(t, a, "token-a")
}

func TestLedger_RevokeAndCheck(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewRevocationRepository()
	l, m := newTestLedger(t, store)

	revoked, err := l.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, revoked)

	exp := time.Now().Add(time.Hour)
	require.NoError(t, l.Revoke(ctx, "tok", 7, exp))
	require.NoError(t, l.Revoke(ctx, "tok", 7, exp), "second revoke is a no-op")
	assert.Equal(t, 1, store.Len())

	revoked, err = l.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LedgerCacheHitTotal))

	record, err := store.Get(ctx, Fingerprint("tok"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), record.AccountID)
}

func TestLedger_IsRevoked_StoreFallback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewRevocationRepository()
	require.NoError(t, store.Put(ctx, Fingerprint("tok"), model.RevocationRecord{
		AccountID: 1,
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	// a second process revoked the token, so this ledger's cache is cold
	l, m := newTestLedger(t, store)

	revoked, err := l.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LedgerCacheHitTotal))

	revoked, err = l.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LedgerCacheHitTotal))
}

func TestLedger_Revoke_ExpiredTokenSkipped(t *testing.T) {
	t.Parallel()

	store := mocks.NewRevocationStore(t)
	l, _ := newTestLedger(t, store)

	require.NoError(t, l.Revoke(context.Background(), "tok", 1, time.Now().Add(-time.Minute)))
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
}

func TestLedger_Revoke_ZeroExpiryUsesRetention(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := mocks.NewRevocationStore(t)
	l, _ := newTestLedger(t, store,
		WithMaxRetention(48*time.Hour),
		WithLedgerClock(func() time.Time { return now }),
	)

	store.On("Put", mock.Anything, Fingerprint("tok"), mock.MatchedBy(func(r model.RevocationRecord) bool {
		return r.ExpiresAt.Equal(now.Add(48*time.Hour)) && r.RevokedAt.Equal(now) && r.AccountID == 3
	})).Return(nil).Once()

	require.NoError(t, l.Revoke(context.Background(), "tok", 3, time.Time{}))
}

func TestLedger_CacheEntryExpires(t *testing.T) {
	t.Parallel()

	clock := tu.NewClock(time.Now())
	store := mocks.NewRevocationStore(t)
	l, _ := newTestLedger(t, store, WithLedgerClock(clock.Now))

	store.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	store.On("Get", mock.Anything, Fingerprint("tok")).Return(model.RevocationRecord{}, model.ErrNotFound).Once()

	require.NoError(t, l.Revoke(context.Background(), "tok", 1, clock.Now().Add(time.Minute)))
	clock.Advance(2 * time.Minute)

	revoked, err := l.IsRevoked(context.Background(), "tok")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestLedger_StorageErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := mocks.NewRevocationStore(t)
	l, m := newTestLedger(t, store)

	store.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis: connection pool timeout")).Once()
	store.On("Get", mock.Anything, mock.Anything).Return(model.RevocationRecord{}, context.DeadlineExceeded).Once()

	err := l.Revoke(ctx, "tok", 1, time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, model.ErrStorage)
	assert.Equal(t, "storage unavailable", err.Error())
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RevocationsTotal))

	_, err = l.IsRevoked(ctx, "tok")
	assert.ErrorIs(t, err, model.ErrStorageTimeout)
}
