package rbac

import (
	"poolfi/backend/internal/pool/domain"
	"poolfi/backend/internal/pool/visibility"
)

// Requirement is what a caller must hold on a pool to act on it.
type Requirement int

const (
	// RequireAccess needs CanAccessPool.
	RequireAccess Requirement = iota
	// RequireAdmin needs the caller to be the admin of an impact pool.
	RequireAdmin
	// RequireReviewer needs the caller to be a joined, non-admin member of an impact pool.
	RequireReviewer
	// RequireOwner needs the caller to be the pool's admin, any kind.
	RequireOwner
)

// AuthorizeOrNotFound is the single guard for pool-scoped operations. It returns domain.ErrPoolNotFound
// when the pool is missing, has the wrong kind, or the viewer lacks the requirement, so callers
// cannot tell a hidden pool from a nonexistent one.
func AuthorizeOrNotFound(pool *domain.AccessPool, viewer *domain.Viewer, req Requirement) error {
	if pool == nil || viewer == nil || viewer.UserID == "" {
		return domain.ErrPoolNotFound
	}
	var ok bool
	switch req {
	case RequireAccess:
		ok = visibility.CanAccessPool(pool, viewer)
	case RequireAdmin:
		ok = pool.Kind == domain.KindImpact && pool.IsAdmin(viewer.UserID)
	case RequireReviewer:
		ok = pool.Kind == domain.KindImpact && !pool.IsAdmin(viewer.UserID) && pool.HasJoined(viewer.UserID)
	case RequireOwner:
		ok = pool.IsAdmin(viewer.UserID)
	}
	if !ok {
		return domain.ErrPoolNotFound
	}
	return nil
}
