package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pesio-ai/be-brand-navigator/internal/errors"
	"github.com/pesio-ai/be-brand-navigator/internal/status"
)

// MemoryRepository keeps brands and their history in process memory. It
// serves the "memory" database driver and the service tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	brands  map[string]*Brand
	history map[string][]*StatusHistoryEntry
	now     func() time.Time
}

// NewMemoryRepository creates an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		brands:  make(map[string]*Brand),
		history: make(map[string][]*StatusHistoryEntry),
		now:     time.Now,
	}
}

// Create stores a new brand and its "created" history entry.
func (r *MemoryRepository) Create(_ context.Context, brand *Brand, entry *StatusHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	brand.ID = uuid.NewString()
	brand.CreatedAt = now
	brand.UpdatedAt = now

	stored := *brand
	r.brands[brand.ID] = &stored

	entry.BrandID = brand.ID
	r.appendHistory(entry, now)
	return nil
}

// GetByID returns a copy of the brand.
func (r *MemoryRepository) GetByID(_ context.Context, id string) (*Brand, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.brands[id]
	if !ok {
		return nil, errors.NotFound("brand", id)
	}
	out := *b
	return &out, nil
}

// List returns the owner's brands newest-first.
func (r *MemoryRepository) List(_ context.Context, filter ListFilter) ([]*Brand, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*Brand, 0)
	for _, b := range r.brands {
		if b.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != nil && b.CurrentStatus != *filter.Status {
			continue
		}
		out := *b
		matched = append(matched, &out)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := int64(len(matched))
	if filter.Offset >= len(matched) {
		return []*Brand{}, total, nil
	}
	end := len(matched)
	if filter.Limit > 0 && filter.Offset+filter.Limit < end {
		end = filter.Offset + filter.Limit
	}
	return matched[filter.Offset:end], total, nil
}

// Transition applies a compare-and-set status change.
func (r *MemoryRepository) Transition(_ context.Context, id string, from, to status.BrandStatus, entry *StatusHistoryEntry) (*Brand, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.brands[id]
	if !ok {
		return nil, errors.NotFound("brand", id)
	}
	if b.CurrentStatus != from {
		return nil, errors.New(errors.ErrCodeConflict,
			fmt.Sprintf("brand status changed concurrently, expected '%s'", from))
	}

	now := r.now().UTC()
	b.CurrentStatus = to
	b.UpdatedAt = now

	entry.BrandID = id
	r.appendHistory(entry, now)

	out := *b
	return &out, nil
}

// Delete removes the brand and its history.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.brands[id]; !ok {
		return errors.NotFound("brand", id)
	}
	delete(r.brands, id)
	delete(r.history, id)
	return nil
}

// GetByBrandID returns the brand's history oldest-first.
func (r *MemoryRepository) GetByBrandID(_ context.Context, brandID string) ([]*StatusHistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.brands[brandID]; !ok {
		return nil, errors.NotFound("brand", brandID)
	}

	entries := r.history[brandID]
	out := make([]*StatusHistoryEntry, len(entries))
	for i, e := range entries {
		cp := *e
		out[i] = &cp
	}
	return out, nil
}

// appendHistory must be called with mu held.
func (r *MemoryRepository) appendHistory(entry *StatusHistoryEntry, at time.Time) {
	entry.ID = uuid.NewString()
	entry.PerformedAt = at
	stored := *entry
	r.history[entry.BrandID] = append(r.history[entry.BrandID], &stored)
}
