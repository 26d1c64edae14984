// Package memory holds process-local stores for tests, tools and single-instance deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dtroode/authlib-server/internal/model"
)

var _ model.AccountStore = (*AccountRepository)(nil)

// AccountRepository keeps accounts in a map guarded by a mutex.
// Email uniqueness is checked under the same lock as the insert.
type AccountRepository struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]model.Account
	byEmail map[string]int64
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byID:    make(map[int64]model.Account),
		byEmail: make(map[string]int64),
	}
}

func (r *AccountRepository) Insert(ctx context.Context, account model.Account) (model.Account, error) {
	if err := ctx.Err(); err != nil {
		return model.Account{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[account.Email]; ok {
		return model.Account{}, model.ErrAlreadyExists
	}

	r.nextID++
	account.ID = r.nextID
	r.byID[account.ID] = account
	r.byEmail[account.Email] = account.ID

	return account, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (model.Account, error) {
	if err := ctx.Err(); err != nil {
		return model.Account{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.byID[id]
	if !ok {
		return model.Account{}, model.ErrNotFound
	}
	return account, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	if err := ctx.Err(); err != nil {
		return model.Account{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return model.Account{}, model.ErrNotFound
	}
	return r.byID[id], nil
}

// Update applies the non-nil fields of update under the write lock.
func (r *AccountRepository) Update(ctx context.Context, id int64, update model.AccountUpdate, updatedAt time.Time) (model.Account, error) {
	if err := ctx.Err(); err != nil {
		return model.Account{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.byID[id]
	if !ok {
		return model.Account{}, model.ErrNotFound
	}
	update.Apply(&account)
	account.UpdatedAt = updatedAt
	r.byID[id] = account

	return account, nil
}
