package service

import (
	"context"
	"errors"
	"time"

	"github.com/dtroode/authlib-server/internal/logger"
	"github.com/dtroode/authlib-server/internal/model"
)

const defaultQueryTimeout = 5 * time.Second

// Account enforces account invariants on top of an AccountStore.
// Every store call runs under the configured query timeout.
type Account struct {
	store   model.AccountStore
	timeout time.Duration
	now     func() time.Time
	logger  *logger.Logger
}

// NewAccount creates an account manager. A non-positive timeout falls back to five seconds.
func NewAccount(store model.AccountStore, timeout time.Duration, logger *logger.Logger) *Account {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &Account{
		store:   store,
		timeout: timeout,
		now:     time.Now,
		logger:  logger,
	}
}

// CheckEmailAvailable fails with AlreadyExists when an account holds email.
// The result is advisory; Create relies on the store's uniqueness constraint.
func (a *Account) CheckEmailAvailable(ctx context.Context, email string) error {
	_, err := a.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return model.NewAlreadyExistsError("email is already registered")
	case errors.Is(err, model.ErrNotFound):
		return nil
	default:
		return err
	}
}

// Create stores a new active, unverified account.
func (a *Account) Create(ctx context.Context, email, credentialHash string, profile model.Profile) (model.Account, error) {
	now := a.now().UTC()
	account := model.Account{
		Email:          email,
		CredentialHash: credentialHash,
		GivenName:      profile.GivenName,
		FamilyName:     profile.FamilyName,
		Active:         true,
		Verified:       false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	created, err := a.store.Insert(ctx, account)
	if err != nil {
		if errors.Is(err, model.ErrAlreadyExists) {
			a.logger.Info("Account service: email already registered",
				"email", email)
			return model.Account{}, model.NewAlreadyExistsError("email is already registered")
		}
		a.logger.Error("Account service: failed to create account",
			"email", email,
			"error", err.Error())
		return model.Account{}, classify(err)
	}

	a.logger.Info("Account service: account created",
		"account_id", created.ID)

	return created, nil
}

// FindByID returns the account with id or NotFound.
func (a *Account) FindByID(ctx context.Context, id int64) (model.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	account, err := a.store.GetByID(ctx, id)
	if err != nil {
		return model.Account{}, classify(err)
	}
	return account, nil
}

// FindByEmail returns the account registered under email or NotFound.
func (a *Account) FindByEmail(ctx context.Context, email string) (model.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	account, err := a.store.GetByEmail(ctx, email)
	if err != nil {
		return model.Account{}, classify(err)
	}
	return account, nil
}

// ApplyUpdate changes the non-nil fields of update and refreshes UpdatedAt.
// Identifier and email cannot be changed here.
func (a *Account) ApplyUpdate(ctx context.Context, id int64, update model.AccountUpdate) (model.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	updated, err := a.store.Update(ctx, id, update, a.now().UTC())
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Account{}, model.NewNotFoundError("account not found")
		}
		a.logger.Error("Account service: failed to update account",
			"account_id", id,
			"error", err.Error())
		return model.Account{}, classify(err)
	}

	a.logger.Debug("Account service: account updated",
		"account_id", id)

	return updated, nil
}

// Activate allows the account to log in again.
func (a *Account) Activate(ctx context.Context, id int64) (model.Account, error) {
	active := true
	return a.ApplyUpdate(ctx, id, model.AccountUpdate{Active: &active})
}

// Deactivate blocks further logins for the account.
func (a *Account) Deactivate(ctx context.Context, id int64) (model.Account, error) {
	active := false
	return a.ApplyUpdate(ctx, id, model.AccountUpdate{Active: &active})
}

// MarkVerified sets the verified flag.
func (a *Account) MarkVerified(ctx context.Context, id int64) (model.Account, error) {
	verified := true
	return a.ApplyUpdate(ctx, id, model.AccountUpdate{Verified: &verified})
}

// TouchLastLogin records a successful authentication at the current time.
func (a *Account) TouchLastLogin(ctx context.Context, id int64) (model.Account, error) {
	now := a.now().UTC()
	return a.ApplyUpdate(ctx, id, model.AccountUpdate{LastLoginAt: &now})
}

// ReplaceCredentialHash stores a new digest for the account.
func (a *Account) ReplaceCredentialHash(ctx context.Context, id int64, digest string) (model.Account, error) {
	return a.ApplyUpdate(ctx, id, model.AccountUpdate{CredentialHash: &digest})
}

// classify keeps domain errors and turns everything else into a storage error.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var tagged *model.Error
	if errors.As(err, &tagged) {
		return err
	}
	if errors.Is(err, model.ErrNotFound) {
		return model.NewNotFoundError("account not found")
	}
	if model.IsDomainError(err) {
		return err
	}
	return model.NewStorageError(err)
}
