package repository

import (
	"context"
	"strings"
	"sync"

	"poolfi/backend/internal/audit/domain"
)

// DefaultMemoryCapacity bounds the in-memory audit trail.
const DefaultMemoryCapacity = 10000

// MemoryRepository keeps the most recent audit logs in process memory. Used with the file store driver.
type MemoryRepository struct {
	mu       sync.RWMutex
	entries  []*domain.AuditLog
	capacity int
}

// NewMemoryRepository returns a repository holding at most capacity entries (DefaultMemoryCapacity when <= 0).
func NewMemoryRepository(capacity int) *MemoryRepository {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryRepository{capacity: capacity}
}

// Create appends a copy of a, evicting the oldest entry when full.
func (r *MemoryRepository) Create(_ context.Context, a *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *a
	r.entries = append(r.entries, &c)
	if over := len(r.entries) - r.capacity; over > 0 {
		r.entries = append([]*domain.AuditLog(nil), r.entries[over:]...)
	}
	return nil
}

// ListByPool returns the pool's entries, newest first.
func (r *MemoryRepository) ListByPool(_ context.Context, poolID string, limit, offset int32) ([]*domain.AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.AuditLog{}
	skipped := int32(0)
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if !strings.EqualFold(e.PoolID, poolID) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if limit > 0 && int32(len(out)) >= limit {
			break
		}
		c := *e
		out = append(out, &c)
	}
	return out, nil
}
