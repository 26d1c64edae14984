package model

import (
	"context"
	"time"
)

// RevocationStore persists revocation records keyed by token fingerprint.
// Put keeps the first record for a key. Get returns ErrNotFound when absent or past expiry.
type RevocationStore interface {
	Put(ctx context.Context, key string, record RevocationRecord) error
	Get(ctx context.Context, key string) (RevocationRecord, error)
	Prune(ctx context.Context, before time.Time) ([]RevocationRecord, error)
}

// RevocationRecord marks one issued token as unusable until its original expiry.
type RevocationRecord struct {
	TokenKey  string    `json:"token_key"`
	AccountID int64     `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
	RevokedAt time.Time `json:"revoked_at"`
}
