package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dtroode/authlib-server/internal/logger"
	"github.com/dtroode/authlib-server/internal/metrics"
	"github.com/dtroode/authlib-server/internal/model"
)

const (
	defaultLedgerCacheSize = 10000
	defaultMaxRetention    = 30 * 24 * time.Hour
)

// Ledger records tokens that must no longer be honored.
// Tokens are keyed by fingerprint; the raw string is never stored.
type Ledger struct {
	store        model.RevocationStore
	cache        *lru.Cache[string, time.Time]
	timeout      time.Duration
	maxRetention time.Duration
	now          func() time.Time
	metrics      *metrics.Metrics
	logger       *logger.Logger
}

// LedgerOption configures Ledger.
type LedgerOption func(*Ledger)

// WithLedgerTimeout bounds each store call.
func WithLedgerTimeout(d time.Duration) LedgerOption {
	return func(l *Ledger) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithMaxRetention sets how long a token without an expiry stays revoked.
func WithMaxRetention(d time.Duration) LedgerOption {
	return func(l *Ledger) {
		if d > 0 {
			l.maxRetention = d
		}
	}
}

// WithLedgerClock replaces time.Now.
func WithLedgerClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLedger creates a ledger over store with an LRU of cacheSize revoked fingerprints.
func NewLedger(store model.RevocationStore, cacheSize int, m *metrics.Metrics, logger *logger.Logger, opts ...LedgerOption) (*Ledger, error) {
	if cacheSize <= 0 {
		cacheSize = defaultLedgerCacheSize
	}
	cache, err := lru.New[string, time.Time](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger cache: %w", err)
	}

	l := &Ledger{
		store:        store,
		cache:        cache,
		timeout:      defaultQueryTimeout,
		maxRetention: defaultMaxRetention,
		now:          time.Now,
		metrics:      m,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Fingerprint derives the ledger key of a raw token.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Revoke marks token as unusable until expiresAt. Revoking twice is a no-op.
// Tokens already past expiry are not recorded. A zero expiresAt is capped at the max retention.
func (l *Ledger) Revoke(ctx context.Context, token string, accountID int64, expiresAt time.Time) error {
	now := l.now().UTC()
	if expiresAt.IsZero() {
		expiresAt = now.Add(l.maxRetention)
	}
	key := Fingerprint(token)

	if !expiresAt.After(now) {
		l.logger.Debug("Ledger: token already expired, nothing to revoke",
			"token", key[:12],
			"account_id", accountID)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	err := l.store.Put(ctx, key, model.RevocationRecord{
		TokenKey:  key,
		AccountID: accountID,
		ExpiresAt: expiresAt.UTC(),
		RevokedAt: now,
	})
	if err != nil {
		l.logger.Error("Ledger: failed to revoke token",
			"token", key[:12],
			"account_id", accountID,
			"error", err.Error())
		return model.NewStorageError(err)
	}

	l.cache.Add(key, expiresAt)
	l.metrics.RevocationsTotal.Inc()

	l.logger.Debug("Ledger: token revoked",
		"token", key[:12],
		"account_id", accountID)

	return nil
}

// IsRevoked reports whether token was revoked and its record has not yet expired.
func (l *Ledger) IsRevoked(ctx context.Context, token string) (bool, error) {
	key := Fingerprint(token)
	now := l.now()

	if expiresAt, ok := l.cache.Get(key); ok {
		if expiresAt.After(now) {
			l.metrics.LedgerCacheHitTotal.Inc()
			return true, nil
		}
		l.cache.Remove(key)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	record, err := l.store.Get(ctx, key)
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		l.logger.Error("Ledger: failed to check token",
			"token", key[:12],
			"error", err.Error())
		return false, model.NewStorageError(err)
	}

	if !record.ExpiresAt.After(now) {
		return false, nil
	}
	l.cache.Add(key, record.ExpiresAt)

	return true, nil
}
