package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dtroode/authlib-server/internal/model"
)

var _ model.RevocationStore = (*RevocationRepository)(nil)

type RevocationRepository struct {
	db  Querier
	now func() time.Time
}

func NewRevocationRepository(db Querier) *RevocationRepository {
	return &RevocationRepository{
		db:  db,
		now: time.Now,
	}
}

func (r *RevocationRepository) Put(ctx context.Context, key string, record model.RevocationRecord) error {
	query := `
		INSERT INTO revoked_tokens (token_key, account_id, expires_at, revoked_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token_key) DO NOTHING`

	_, err := r.db.Exec(ctx, query, key, record.AccountID, record.ExpiresAt.UTC(), record.RevokedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert revocation: %w", err)
	}

	return nil
}

func (r *RevocationRepository) Get(ctx context.Context, key string) (model.RevocationRecord, error) {
	query := `
		SELECT token_key, account_id, expires_at, revoked_at
		FROM revoked_tokens
		WHERE token_key = $1 AND expires_at > $2`

	var rec model.RevocationRecord
	err := r.db.QueryRow(ctx, query, key, r.now().UTC()).Scan(
		&rec.TokenKey, &rec.AccountID, &rec.ExpiresAt, &rec.RevokedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.RevocationRecord{}, model.ErrNotFound
		}
		return model.RevocationRecord{}, fmt.Errorf("failed to get revocation: %w", err)
	}

	return rec, nil
}

// Prune deletes every record that expired at or before the cutoff and returns them.
func (r *RevocationRepository) Prune(ctx context.Context, before time.Time) ([]model.RevocationRecord, error) {
	query := `
		DELETE FROM revoked_tokens
		WHERE expires_at <= $1
		RETURNING token_key, account_id, expires_at, revoked_at`

	rows, err := r.db.Query(ctx, query, before.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to prune revocations: %w", err)
	}
	defer rows.Close()

	var pruned []model.RevocationRecord
	for rows.Next() {
		var rec model.RevocationRecord
		if err := rows.Scan(&rec.TokenKey, &rec.AccountID, &rec.ExpiresAt, &rec.RevokedAt); err != nil {
			return nil, fmt.Errorf("failed to scan revocation: %w", err)
		}
		pruned = append(pruned, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate revocations: %w", err)
	}

	return pruned, nil
}
