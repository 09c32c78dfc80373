package service

import (
	"context"
	"errors"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"poolfi/backend/internal/logging"
	"poolfi/backend/internal/platform/rbac"
	"poolfi/backend/internal/pool/domain"
	"poolfi/backend/internal/pool/repository"
	"poolfi/backend/internal/telemetry"
)

// DefaultCategory is used when a registration leaves the category blank.
const DefaultCategory = "General"

// eventSource tags telemetry events emitted here.
const eventSource = "pool_service"

// GoalPoolInput is the post-commit registration of an on-chain goal pool.
type GoalPoolInput struct {
	Address               string
	Name                  string
	Category              string
	Target                float64
	ContributionPerPerson float64
	Invited               []string
}

// ImpactPoolInput registers an off-chain impact pool.
type ImpactPoolInput struct {
	Name                  string
	Category              string
	Description           string
	Target                float64
	ContributionPerPerson float64
}

// CreatorSummary is the creator view of one owned impact pool.
type CreatorSummary struct {
	Pool             *domain.AccessPool
	UpdatesCount     int
	WithdrawalsCount int
}

// Options configure optional collaborators of Service.
type Options struct {
	Logger  logrus.FieldLogger
	Events  telemetry.EventEmitter
	Metrics *telemetry.Metrics
}

// Service implements pool registration, joining, and creator lookups over the access store.
type Service struct {
	repo    repository.Repository
	log     logrus.FieldLogger
	events  telemetry.EventEmitter
	metrics *telemetry.Metrics
	nowF    func() time.Time
	suffixF func() string
}

// NewService returns a Service backed by repo.
func NewService(repo repository.Repository, opts Options) *Service {
	return &Service{
		repo:    repo,
		log:     logging.OrDiscard(opts.Logger).WithField("component", eventSource),
		events:  opts.Events,
		metrics: opts.Metrics,
		nowF:    time.Now,
		suffixF: randomSuffix,
	}
}

// RegisterGoalPool upserts the access record for a confirmed on-chain pool, keyed by lowercased address.
// Re-registration keeps CreatedAt and existing members and is only allowed for the stored admin;
// anyone else gets domain.ErrPoolNotFound.
func (s *Service) RegisterGoalPool(ctx context.Context, viewer *domain.Viewer, in GoalPoolInput) (*domain.AccessPool, error) {
	if viewer == nil || viewer.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}
	address := strings.TrimSpace(in.Address)
	if !common.IsHexAddress(address) {
		return nil, domain.Invalid("address", "must be a hex chain address")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Invalid("name", "is required")
	}
	if err := validateAmounts(in.Target, in.ContributionPerPerson); err != nil {
		return nil, err
	}
	id := domain.NormalizeAddress(address)
	now := s.nowF().UTC()

	existing, err := s.repo.GetPool(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Kind != domain.KindGoal {
			return nil, domain.ErrPoolNotFound
		}
		if existing.AdminUserID != "" && existing.AdminUserID != viewer.UserID {
			return nil, domain.ErrPoolNotFound
		}
		p := existing
		p.Name = name
		p.Category = categoryOrDefault(in.Category)
		p.Address = address
		p.AdminUserID = viewer.UserID
		p.Invited = domain.NormalizeInvited(in.Invited)
		p.JoinedUserIDs = []string{viewer.UserID}
		p.Raised = 0
		p.Target = in.Target
		p.ContributionPerPerson = in.ContributionPerPerson
		p.UpdatedAt = now
		if err := s.repo.UpdatePool(ctx, p); err != nil {
			return nil, err
		}
		s.registered(ctx, viewer, p, false)
		return p, nil
	}

	p := &domain.AccessPool{
		ID:                    id,
		Kind:                  domain.KindGoal,
		Visibility:            domain.VisibilityPrivate,
		Source:                domain.SourceOnChain,
		Name:                  name,
		Category:              categoryOrDefault(in.Category),
		Address:               address,
		AdminUserID:           viewer.UserID,
		Invited:               domain.NormalizeInvited(in.Invited),
		JoinedUserIDs:         []string{viewer.UserID},
		Target:                in.Target,
		ContributionPerPerson: in.ContributionPerPerson,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.repo.CreatePool(ctx, p, repository.PlaceLast); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.ErrVersionConflict
		}
		return nil, err
	}
	s.registered(ctx, viewer, p, true)
	return p, nil
}

// RegisterImpactPool creates a public impact pool administered by viewer, inserted at the head of the store.
func (s *Service) RegisterImpactPool(ctx context.Context, viewer *domain.Viewer, in ImpactPoolInput) (*domain.AccessPool, error) {
	if viewer == nil || viewer.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Invalid("name", "is required")
	}
	if err := validateAmounts(in.Target, in.ContributionPerPerson); err != nil {
		return nil, err
	}
	now := s.nowF().UTC()
	p := &domain.AccessPool{
		ID:                    Slugify(name) + "-" + s.suffixF(),
		Kind:                  domain.KindImpact,
		Visibility:            domain.VisibilityPublic,
		Source:                domain.SourceOffChain,
		Name:                  name,
		Category:              categoryOrDefault(in.Category),
		Description:           strings.TrimSpace(in.Description),
		AdminUserID:           viewer.UserID,
		Invited:               []string{},
		JoinedUserIDs:         []string{viewer.UserID},
		Target:                in.Target,
		ContributionPerPerson: in.ContributionPerPerson,
		CreatedAt:             now,
		UpdatedAt:             now,
		Updates:               []domain.ImpactUpdate{},
		Withdrawals:           []domain.ImpactWithdrawal{},
	}
	if err := s.repo.CreatePool(ctx, p, repository.PlaceFirst); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.ErrVersionConflict
		}
		return nil, err
	}
	s.registered(ctx, viewer, p, true)
	return p, nil
}

// JoinImpactPool adds viewer to an impact pool's members. Joining twice is a no-op.
// Missing pools and goal pools are domain.ErrPoolNotFound.
func (s *Service) JoinImpactPool(ctx context.Context, viewer *domain.Viewer, poolID string) (*domain.AccessPool, error) {
	if viewer == nil || viewer.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}
	p, err := s.repo.GetPool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if p == nil || p.Kind != domain.KindImpact {
		return nil, domain.ErrPoolNotFound
	}
	if !p.Join(viewer.UserID) {
		return p, nil
	}
	p.UpdatedAt = s.nowF().UTC()
	if err := s.repo.UpdatePool(ctx, p); err != nil {
		return nil, err
	}
	s.metrics.PoolJoined(ctx)
	telemetry.EmitAsync(s.events, s.log, telemetry.NewEvent(telemetry.EventPoolJoined, eventSource, viewer.UserID, p.ID,
		map[string]int{"members": len(p.JoinedUserIDs)}))
	return p, nil
}

// ListCreatorImpactPools returns the impact pools viewer administers, in store order.
func (s *Service) ListCreatorImpactPools(ctx context.Context, viewer *domain.Viewer) ([]*domain.AccessPool, error) {
	if viewer == nil || viewer.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}
	pools, err := s.repo.ListPools(ctx)
	if err != nil {
		return nil, err
	}
	var out []*domain.AccessPool
	for _, p := range pools {
		if p.Kind == domain.KindImpact && p.IsAdmin(viewer.UserID) {
			out = append(out, p)
		}
	}
	return out, nil
}

// CreatorImpactPool returns the summary of the owned impact pool poolID, or of the first owned one
// when poolID is empty. It returns (nil, nil) when nothing matches.
func (s *Service) CreatorImpactPool(ctx context.Context, viewer *domain.Viewer, poolID string) (*CreatorSummary, error) {
	pools, err := s.ListCreatorImpactPools(ctx, viewer)
	if err != nil {
		return nil, err
	}
	want := domain.NormalizeIdentifier(poolID)
	for _, p := range pools {
		if want == "" || domain.NormalizeIdentifier(p.ID) == want {
			return &CreatorSummary{Pool: p, UpdatesCount: len(p.Updates), WithdrawalsCount: len(p.Withdrawals)}, nil
		}
	}
	return nil, nil
}

// GetAccessiblePool returns the pool if viewer may open it, else domain.ErrPoolNotFound.
func (s *Service) GetAccessiblePool(ctx context.Context, viewer *domain.Viewer, poolID string) (*domain.AccessPool, error) {
	p, err := s.repo.GetPool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if err := rbac.AuthorizeOrNotFound(p, viewer, rbac.RequireAccess); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) registered(ctx context.Context, viewer *domain.Viewer, p *domain.AccessPool, created bool) {
	s.metrics.PoolRegistered(ctx, string(p.Kind), created)
	s.log.WithFields(logrus.Fields{"pool_id": p.ID, "kind": p.Kind, "created": created}).Info("pool registered")
	telemetry.EmitAsync(s.events, s.log, telemetry.NewEvent(telemetry.EventPoolRegistered, eventSource, viewer.UserID, p.ID,
		map[string]any{"kind": p.Kind, "created": created}))
}

func validateAmounts(target, contribution float64) error {
	if !finiteNonNegative(target) {
		return domain.Invalid("target", "must be a finite, non-negative number")
	}
	if !finiteNonNegative(contribution) {
		return domain.Invalid("contributionPerPerson", "must be a finite, non-negative number")
	}
	return nil
}

func finiteNonNegative(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
}

func categoryOrDefault(c string) string {
	if c = strings.TrimSpace(c); c != "" {
		return c
	}
	return DefaultCategory
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// maxSlugLen caps the name part of generated impact pool ids.
const maxSlugLen = 48

// Slugify lowercases name and collapses runs of other characters into single hyphens.
func Slugify(name string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	if slug == "" {
		return "impact"
	}
	return slug
}

// randomSuffix returns six random hex characters.
func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}
