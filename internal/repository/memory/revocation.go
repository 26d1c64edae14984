package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dtroode/authlib-server/internal/model"
)

var _ model.RevocationStore = (*RevocationRepository)(nil)

// RevocationRepository keeps revocation records in a map.
type RevocationRepository struct {
	mu      sync.RWMutex
	records map[string]model.RevocationRecord
	now     func() time.Time
}

func NewRevocationRepository() *RevocationRepository {
	return &RevocationRepository{
		records: make(map[string]model.RevocationRecord),
		now:     time.Now,
	}
}

func (r *RevocationRepository) Put(ctx context.Context, key string, record model.RevocationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[key]; ok {
		return nil
	}
	record.TokenKey = key
	r.records[key] = record

	return nil
}

func (r *RevocationRepository) Get(ctx context.Context, key string) (model.RevocationRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.RevocationRecord{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[key]
	if !ok || !record.ExpiresAt.After(r.now()) {
		return model.RevocationRecord{}, model.ErrNotFound
	}
	return record, nil
}

// Prune removes and returns records that expired at or before before, oldest first.
func (r *RevocationRepository) Prune(ctx context.Context, before time.Time) ([]model.RevocationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var pruned []model.RevocationRecord
	for key, record := range r.records {
		if !record.ExpiresAt.After(before) {
			pruned = append(pruned, record)
			delete(r.records, key)
		}
	}
	sort.Slice(pruned, func(i, j int) bool {
		return pruned[i].ExpiresAt.Before(pruned[j].ExpiresAt)
	})

	return pruned, nil
}

// Len returns the number of stored records, expired or not.
func (r *RevocationRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
