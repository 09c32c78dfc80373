package repository

import (
	"time"

	"poolfi/backend/internal/pool/domain"
)

// SeedImpactPools returns the public impact pools every new store starts with.
func SeedImpactPools() []*domain.AccessPool {
	seed := func(id, name, category string, raised, target, contribution float64, created time.Time) *domain.AccessPool {
		return &domain.AccessPool{
			ID:                    id,
			Kind:                  domain.KindImpact,
			Visibility:            domain.VisibilityPublic,
			Source:                domain.SourceOffChain,
			Name:                  name,
			Category:              category,
			Invited:               []string{},
			JoinedUserIDs:         []string{},
			Raised:                raised,
			Target:                target,
			ContributionPerPerson: contribution,
			CreatedAt:             created,
			UpdatedAt:             created,
		}
	}
	return []*domain.AccessPool{
		seed("impact-oguta-water", "Clean Water for Oguta Community, Imo State", "Water and Sanitation",
			670000, 1000000, 1000, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)),
		seed("impact-uniben-scholarship", "Scholarship Fund for Indigent UNIBEN Students", "Education",
			270000, 500000, 5000, time.Date(2026, 2, 4, 0, 0, 0, 0, time.UTC)),
		seed("impact-rural-clinic", "Rural Clinic Solar Power Initiative", "Health",
			180000, 700000, 2500, time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC)),
	}
}
