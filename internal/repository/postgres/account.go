package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dtroode/authlib-server/internal/model"
)

var _ model.AccountStore = (*AccountRepository)(nil)

const accountColumns = `id, email, credential_hash, given_name, family_name, active, verified, created_at, updated_at, last_login_at`

type AccountRepository struct {
	db Querier
}

func NewAccountRepository(db Querier) *AccountRepository {
	return &AccountRepository{
		db: db,
	}
}

func (r *AccountRepository) Insert(ctx context.Context, account model.Account) (model.Account, error) {
	query := `
		INSERT INTO accounts (email, credential_hash, given_name, family_name, active, verified, created_at, updated_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + accountColumns

	saved, err := scanAccount(r.db.QueryRow(ctx, query,
		account.Email, account.CredentialHash, account.GivenName, account.FamilyName,
		account.Active, account.Verified, account.CreatedAt.UTC(), account.UpdatedAt.UTC(), account.LastLoginAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return model.Account{}, fmt.Errorf("failed to insert account: %w", model.ErrAlreadyExists)
		}
		return model.Account{}, fmt.Errorf("failed to insert account: %w", err)
	}

	return saved, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Account{}, model.ErrNotFound
		}
		return model.Account{}, fmt.Errorf("failed to get account by id: %w", err)
	}

	return account, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	account, err := scanAccount(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Account{}, model.ErrNotFound
		}
		return model.Account{}, fmt.Errorf("failed to get account by email: %w", err)
	}

	return account, nil
}

// Update sets the columns whose field in update is non-nil in a single statement.
// Email and created_at are never changed.
func (r *AccountRepository) Update(ctx context.Context, id int64, update model.AccountUpdate, updatedAt time.Time) (model.Account, error) {
	query := `
		UPDATE accounts
		SET given_name      = COALESCE($2, given_name),
		    family_name     = COALESCE($3, family_name),
		    active          = COALESCE($4, active),
		    verified        = COALESCE($5, verified),
		    credential_hash = COALESCE($6, credential_hash),
		    last_login_at   = COALESCE($7, last_login_at),
		    updated_at      = $8
		WHERE id = $1
		RETURNING ` + accountColumns

	var lastLogin *time.Time
	if update.LastLoginAt != nil {
		t := update.LastLoginAt.UTC()
		lastLogin = &t
	}

	saved, err := scanAccount(r.db.QueryRow(ctx, query,
		id, update.GivenName, update.FamilyName, update.Active,
		update.Verified, update.CredentialHash, lastLogin, updatedAt.UTC(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Account{}, model.ErrNotFound
		}
		return model.Account{}, fmt.Errorf("failed to update account: %w", err)
	}

	return saved, nil
}

func scanAccount(row pgx.Row) (model.Account, error) {
	var a model.Account
	err := row.Scan(
		&a.ID, &a.Email, &a.CredentialHash, &a.GivenName, &a.FamilyName,
		&a.Active, &a.Verified, &a.CreatedAt, &a.UpdatedAt, &a.LastLoginAt,
	)
	return a, err
}
