// Package redis stores revocation records in Redis so several server
// processes can share one ledger. Keys expire with the token they describe.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"

	"github.com/dtroode/authlib-server/internal/model"
)

var _ model.RevocationStore = (*RevocationRepository)(nil)

type RevocationRepository struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRevocationRepository(client redis.UniversalClient, prefix string) *RevocationRepository {
	return &RevocationRepository{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

// NewClient builds a client from an address and verifies it answers.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

func (r *RevocationRepository) key(tokenKey string) string {
	return r.prefix + ":" + tokenKey
}

// Put writes the record only if the key is absent. A record that is already
// past expiry is not written.
func (r *RevocationRepository) Put(ctx context.Context, key string, record model.RevocationRecord) error {
	ttl := record.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}

	record.TokenKey = key
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal revocation: %w", err)
	}

	if err := r.client.SetNX(ctx, r.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store revocation: %w", err)
	}

	return nil
}

func (r *RevocationRepository) Get(ctx context.Context, key string) (model.RevocationRecord, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.RevocationRecord{}, model.ErrNotFound
		}
		return model.RevocationRecord{}, fmt.Errorf("failed to get revocation: %w", err)
	}

	var record model.RevocationRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.RevocationRecord{}, fmt.Errorf("failed to unmarshal revocation: %w", err)
	}

	if !record.ExpiresAt.After(r.now()) {
		return model.RevocationRecord{}, model.ErrNotFound
	}

	return record, nil
}

// Prune is a no-op: Redis drops each key when its TTL runs out, so there is
// nothing left to delete or archive.
func (r *RevocationRepository) Prune(_ context.Context, _ time.Time) ([]model.RevocationRecord, error) {
	return nil, nil
}
