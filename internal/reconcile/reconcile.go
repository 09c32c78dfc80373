// Package reconcile merges chain pool state with access records into per-viewer listings.
package reconcile

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"poolfi/backend/internal/chain"
	"poolfi/backend/internal/logging"
	"poolfi/backend/internal/pool/domain"
	"poolfi/backend/internal/pool/repository"
	"poolfi/backend/internal/pool/visibility"
)

// View selects which visibility predicate filters a listing.
type View int

const (
	// ViewHome is the home feed: accessible goal pools and joined or owned impact pools.
	ViewHome View = iota
	// ViewMyPools lists pools the viewer owns, joined, or (for goal pools) was invited to.
	ViewMyPools
	// ViewAccessible lists every pool the viewer may open.
	ViewAccessible
)

func (v View) visible(p *domain.AccessPool, viewer *domain.Viewer) bool {
	switch v {
	case ViewHome:
		return visibility.IsHomeVisible(p, viewer)
	case ViewMyPools:
		return visibility.IsMyPoolsVisible(p, viewer)
	case ViewAccessible:
		return visibility.CanAccessPool(p, viewer)
	default:
		return false
	}
}

// Pool is one merged listing entry.
type Pool struct {
	ID                    string            `json:"id"`
	Kind                  domain.Kind       `json:"kind"`
	Visibility            domain.Visibility `json:"visibility"`
	Source                domain.Source     `json:"source"`
	Name                  string            `json:"name"`
	Category              string            `json:"category"`
	Address               string            `json:"address,omitempty"`
	Description           string            `json:"description,omitempty"`
	Raised                float64           `json:"raised"`
	Target                float64           `json:"target"`
	ContributionPerPerson float64           `json:"contributionPerPerson"`
	ContributorsPaid      int64             `json:"contributorsPaid"`
	ContributorsTotal     int64             `json:"contributorsTotal"`
	Status                chain.Status      `json:"status"`
	StartAt               *time.Time        `json:"startAt,omitempty"`
	Deadline              *time.Time        `json:"deadline,omitempty"`
	CreatedAt             time.Time         `json:"createdAt"`
	IsAdmin               bool              `json:"isAdmin"`
	IsJoined              bool              `json:"isJoined"`
}

// Dashboard is the home view plus aggregate figures.
type Dashboard struct {
	Pools       []Pool  `json:"pools"`
	PoolCount   int     `json:"poolCount"`
	TotalRaised float64 `json:"totalRaised"`
	TotalTarget float64 `json:"totalTarget"`
}

// Reconciler joins the chain reader with the access store.
type Reconciler struct {
	chain chain.Reader
	repo  repository.Repository
	log   logrus.FieldLogger
}

// New returns a Reconciler.
func New(reader chain.Reader, repo repository.Repository, log logrus.FieldLogger) *Reconciler {
	return &Reconciler{chain: reader, repo: repo, log: logging.OrDiscard(log).WithField("component", "reconcile")}
}

// Reconcile returns the pools viewer sees under view: goal pools first, then impact pools,
// each group in store order. Anonymous viewers get an empty list. A chain failure fails the call.
func (r *Reconciler) Reconcile(ctx context.Context, viewer *domain.Viewer, view View) ([]Pool, error) {
	if viewer == nil || viewer.UserID == "" {
		return []Pool{}, nil
	}

	var (
		records []chain.PoolRecord
		pools   []*domain.AccessPool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = r.chain.ListPools(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		pools, err = r.repo.ListPools(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		r.log.WithError(err).Warn("reconcile failed")
		return nil, err
	}

	byAddress := make(map[string]*chain.PoolRecord, len(records))
	for i := range records {
		byAddress[domain.NormalizeAddress(records[i].Address)] = &records[i]
	}

	goals := []Pool{}
	impacts := []Pool{}
	for _, p := range pools {
		if !view.visible(p, viewer) {
			continue
		}
		switch p.Kind {
		case domain.KindGoal:
			rec, ok := byAddress[domain.NormalizeAddress(p.Address)]
			if !ok {
				rec, ok = byAddress[domain.NormalizeAddress(p.ID)]
			}
			if !ok {
				continue
			}
			goals = append(goals, goalPool(p, rec, viewer))
		case domain.KindImpact:
			impacts = append(impacts, impactPool(p, viewer))
		}
	}
	return append(goals, impacts...), nil
}

// Dashboard returns the home view with totals over the listed pools.
func (r *Reconciler) Dashboard(ctx context.Context, viewer *domain.Viewer) (*Dashboard, error) {
	pools, err := r.Reconcile(ctx, viewer, ViewHome)
	if err != nil {
		return nil, err
	}
	d := &Dashboard{Pools: pools, PoolCount: len(pools)}
	for _, p := range pools {
		d.TotalRaised += p.Raised
		d.TotalTarget += p.Target
	}
	return d, nil
}

func goalPool(p *domain.AccessPool, rec *chain.PoolRecord, viewer *domain.Viewer) Pool {
	name := p.Name
	if name == "" {
		name = rec.Name
	}
	category := p.Category
	if category == "" {
		category = rec.Category
	}
	startAt, deadline := rec.StartAt, rec.Deadline
	return Pool{
		ID:                    p.ID,
		Kind:                  p.Kind,
		Visibility:            p.Visibility,
		Source:                p.Source,
		Name:                  name,
		Category:              category,
		Address:               rec.Address,
		Description:           p.Description,
		Raised:                rec.Raised,
		Target:                rec.Target,
		ContributionPerPerson: rec.ContributionPerPerson,
		ContributorsPaid:      rec.ContributorsPaid,
		ContributorsTotal:     rec.ContributorsTotal,
		Status:                rec.Status,
		StartAt:               &startAt,
		Deadline:              &deadline,
		CreatedAt:             p.CreatedAt,
		IsAdmin:               p.IsAdmin(viewer.UserID),
		IsJoined:              p.HasJoined(viewer.UserID),
	}
}

func impactPool(p *domain.AccessPool, viewer *domain.Viewer) Pool {
	contributors := int64(len(p.JoinedUserIDs))
	return Pool{
		ID:                    p.ID,
		Kind:                  p.Kind,
		Visibility:            p.Visibility,
		Source:                p.Source,
		Name:                  p.Name,
		Category:              p.Category,
		Address:               p.Address,
		Description:           p.Description,
		Raised:                p.Raised,
		Target:                p.Target,
		ContributionPerPerson: p.ContributionPerPerson,
		ContributorsPaid:      contributors,
		ContributorsTotal:     contributors,
		Status:                chain.StatusActive,
		CreatedAt:             p.CreatedAt,
		IsAdmin:               p.IsAdmin(viewer.UserID),
		IsJoined:              p.HasJoined(viewer.UserID),
	}
}
