package account

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Record
}

// NewMemoryRepository constructs an in-memory repository for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Record)}
}

func (r *memoryRepository) Get(_ context.Context, id string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.storage[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (r *memoryRepository) Create(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[rec.ClientID]; exists {
		return ErrAlreadyExists
	}
	if rec.Version == 0 {
		rec.Version = 1
	}
	r.storage[rec.ClientID] = rec
	return nil
}

func (r *memoryRepository) UpdateBalance(_ context.Context, id string, u BalanceUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.storage[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Version != u.ExpectedVersion {
		return ErrVersionConflict
	}
	rec.Limit = u.Limit
	rec.CardLimitReached = u.CardLimitReached
	rec.ReloadingHistory = u.ReloadingHistory
	rec.Version++
	r.storage[id] = rec
	return nil
}

func (r *memoryRepository) List(_ context.Context) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records := make([]Record, 0, len(r.storage))
	for _, rec := range r.storage {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ClientID < records[j].ClientID })
	return records, nil
}
