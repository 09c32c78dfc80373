// Package visibility holds the pure predicates deciding where a viewer may see a pool.
// A nil viewer never sees anything.
package visibility

import (
	"poolfi/backend/internal/pool/domain"
)

// CanAccessPool reports whether viewer may open pool. PUBLIC pools are open to any signed-in viewer;
// PRIVATE pools need the viewer to be the admin, a joined member, or invited.
func CanAccessPool(pool *domain.AccessPool, viewer *domain.Viewer) bool {
	if pool == nil || viewer == nil {
		return false
	}
	if pool.Visibility == domain.VisibilityPublic {
		return true
	}
	return pool.IsAdmin(viewer.UserID) || pool.HasJoined(viewer.UserID) || IsInvited(pool, viewer)
}

// IsHomeVisible reports whether pool belongs on viewer's home feed. Impact pools show up only once
// the viewer has joined or administers them, even though they are publicly accessible.
func IsHomeVisible(pool *domain.AccessPool, viewer *domain.Viewer) bool {
	if pool == nil || viewer == nil {
		return false
	}
	if pool.Kind == domain.KindGoal {
		return CanAccessPool(pool, viewer)
	}
	return pool.IsAdmin(viewer.UserID) || pool.HasJoined(viewer.UserID)
}

// IsMyPoolsVisible reports whether pool is listed under viewer's own pools. An invitation counts
// for goal pools only.
func IsMyPoolsVisible(pool *domain.AccessPool, viewer *domain.Viewer) bool {
	if pool == nil || viewer == nil {
		return false
	}
	if pool.IsAdmin(viewer.UserID) || pool.HasJoined(viewer.UserID) {
		return true
	}
	return pool.Kind == domain.KindGoal && IsInvited(pool, viewer)
}

// IsInvited matches the viewer's subject id, email and pseudonym against the pool's invited list,
// ignoring case and surrounding whitespace.
func IsInvited(pool *domain.AccessPool, viewer *domain.Viewer) bool {
	if pool == nil || viewer == nil || len(pool.Invited) == 0 {
		return false
	}
	ids := viewer.Identifiers()
	for _, inv := range pool.Invited {
		n := domain.NormalizeIdentifier(inv)
		if n == "" {
			continue
		}
		for _, id := range ids {
			if id == n {
				return true
			}
		}
	}
	return false
}
