// Package service implements impact pool progress updates and the withdrawal approval workflow.
package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"poolfi/backend/internal/logging"
	"poolfi/backend/internal/platform/rbac"
	"poolfi/backend/internal/policy/engine"
	"poolfi/backend/internal/pool/domain"
	"poolfi/backend/internal/pool/repository"
	"poolfi/backend/internal/telemetry"
)

const eventSource = "governance_service"

// UpdateInput is a progress update posted by the pool admin.
type UpdateInput struct {
	Title         string
	Details       string
	ReferenceLink string
}

// WithdrawalInput is a new withdrawal request.
type WithdrawalInput struct {
	Amount  float64
	Purpose string
	Vendor  string
	Stage   string
}

// Options configure optional collaborators of Service.
type Options struct {
	Policy  engine.Evaluator
	Logger  logrus.FieldLogger
	Events  telemetry.EventEmitter
	Metrics *telemetry.Metrics
}

// Service runs the impact pool governance operations. Every pool-scoped failure of rights is
// reported as domain.ErrPoolNotFound.
type Service struct {
	repo    repository.Repository
	policy  engine.Evaluator
	log     logrus.FieldLogger
	events  telemetry.EventEmitter
	metrics *telemetry.Metrics
	nowF    func() time.Time
}

// NewService returns a Service over repo. A nil Policy uses the built-in transition rule.
func NewService(repo repository.Repository, opts Options) *Service {
	return &Service{
		repo:    repo,
		policy:  opts.Policy,
		log:     logging.OrDiscard(opts.Logger).WithField("component", eventSource),
		events:  opts.Events,
		metrics: opts.Metrics,
		nowF:    time.Now,
	}
}

// PostUpdate appends a progress update to an impact pool the viewer administers.
func (s *Service) PostUpdate(ctx context.Context, viewer *domain.Viewer, poolID string, in UpdateInput) (*domain.ImpactUpdate, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.Invalid("title", "is required")
	}
	details := strings.TrimSpace(in.Details)
	if details == "" {
		return nil, domain.Invalid("details", "is required")
	}
	p, err := s.authorized(ctx, viewer, poolID, rbac.RequireAdmin)
	if err != nil {
		return nil, err
	}
	u := domain.ImpactUpdate{
		ID:            uuid.NewString(),
		Title:         title,
		Details:       details,
		ReferenceLink: strings.TrimSpace(in.ReferenceLink),
		CreatedAt:     s.nowF().UTC(),
	}
	p.Updates = append(p.Updates, u)
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	telemetry.EmitAsync(s.events, s.log, telemetry.NewEvent(telemetry.EventImpactUpdate, eventSource, viewer.UserID, p.ID,
		map[string]string{"update_id": u.ID}))
	return &u, nil
}

// ListUpdates returns the updates of an impact pool the viewer administers, oldest first.
func (s *Service) ListUpdates(ctx context.Context, viewer *domain.Viewer, poolID string) ([]domain.ImpactUpdate, error) {
	p, err := s.authorized(ctx, viewer, poolID, rbac.RequireAdmin)
	if err != nil {
		return nil, err
	}
	if p.Updates == nil {
		return []domain.ImpactUpdate{}, nil
	}
	return p.Updates, nil
}

// CreateWithdrawal opens a PENDING request with the next REQ-nnn id and puts it at the head of the list.
func (s *Service) CreateWithdrawal(ctx context.Context, viewer *domain.Viewer, poolID string, in WithdrawalInput) (*domain.ImpactWithdrawal, error) {
	if math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) || in.Amount <= 0 {
		return nil, domain.Invalid("amount", "must be a finite number greater than zero")
	}
	in.Purpose = strings.TrimSpace(in.Purpose)
	if in.Purpose == "" {
		return nil, domain.Invalid("purpose", "is required")
	}
	in.Vendor = strings.TrimSpace(in.Vendor)
	if in.Vendor == "" {
		return nil, domain.Invalid("vendor", "is required")
	}
	in.Stage = strings.TrimSpace(in.Stage)
	if in.Stage == "" {
		return nil, domain.Invalid("stage", "is required")
	}
	p, err := s.authorized(ctx, viewer, poolID, rbac.RequireAdmin)
	if err != nil {
		return nil, err
	}
	p.WithdrawalSeq++
	w := domain.ImpactWithdrawal{
		ID:                domain.WithdrawalID(p.WithdrawalSeq),
		Amount:            in.Amount,
		Purpose:           in.Purpose,
		Vendor:            in.Vendor,
		Stage:             in.Stage,
		RequiredApprovals: domain.RequiredApprovals,
		Status:            domain.WithdrawalPending,
		CreatedAt:         s.nowF().UTC(),
	}
	p.Withdrawals = append([]domain.ImpactWithdrawal{w}, p.Withdrawals...)
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	s.transitioned(ctx, viewer, p, &w, "")
	return &w, nil
}

// ListWithdrawals returns the withdrawals of an impact pool the viewer administers, newest first.
func (s *Service) ListWithdrawals(ctx context.Context, viewer *domain.Viewer, poolID string) ([]domain.ImpactWithdrawal, error) {
	p, err := s.authorized(ctx, viewer, poolID, rbac.RequireAdmin)
	if err != nil {
		return nil, err
	}
	if p.Withdrawals == nil {
		return []domain.ImpactWithdrawal{}, nil
	}
	return p.Withdrawals, nil
}

// Approve records the viewer's approval. Approving twice is a no-op. The request becomes APPROVED
// once it holds the required number of approvals.
func (s *Service) Approve(ctx context.Context, viewer *domain.Viewer, poolID, requestID string) (*domain.ImpactWithdrawal, error) {
	return s.decide(ctx, viewer, poolID, requestID, domain.DecisionApprove)
}

// Reject moves a PENDING request to REJECTED.
func (s *Service) Reject(ctx context.Context, viewer *domain.Viewer, poolID, requestID string) (*domain.ImpactWithdrawal, error) {
	return s.decide(ctx, viewer, poolID, requestID, domain.DecisionReject)
}

// Release moves an APPROVED request to RELEASED. Only the pool admin may release.
func (s *Service) Release(ctx context.Context, viewer *domain.Viewer, poolID, requestID string) (*domain.ImpactWithdrawal, error) {
	return s.decide(ctx, viewer, poolID, requestID, domain.DecisionRelease)
}

func (s *Service) decide(ctx context.Context, viewer *domain.Viewer, poolID, requestID string, d domain.Decision) (*domain.ImpactWithdrawal, error) {
	req := rbac.RequireReviewer
	if d == domain.DecisionRelease {
		req = rbac.RequireAdmin
	}
	p, err := s.authorized(ctx, viewer, poolID, req)
	if err != nil {
		return nil, err
	}
	w := p.FindWithdrawal(requestID)
	if w == nil {
		return nil, domain.ErrWithdrawalNotFound
	}
	from := w.Status

	in := engine.TransitionInput{
		Status:            w.Status,
		Decision:          d,
		Approvals:         w.Approvals,
		RequiredApprovals: w.RequiredApprovals,
	}
	if d == domain.DecisionApprove && w.Status == domain.WithdrawalPending {
		if containsID(w.ApprovedBy, viewer.UserID) {
			out := *w
			return &out, nil
		}
		in.Approvals = min(len(w.ApprovedBy)+1, w.RequiredApprovals)
	}
	next, ok := s.nextStatus(ctx, in)
	if !ok {
		return nil, domain.ErrInvalidTransition
	}

	now := s.nowF().UTC()
	switch d {
	case domain.DecisionApprove:
		w.ApprovedBy = append(w.ApprovedBy, viewer.UserID)
		w.Approvals = in.Approvals
	case domain.DecisionReject:
		w.RejectedBy = append(w.RejectedBy, viewer.UserID)
	case domain.DecisionRelease:
		w.ReleasedAt = &now
	}
	if next != from && (next == domain.WithdrawalApproved || next == domain.WithdrawalRejected) {
		w.DecidedAt = &now
	}
	w.Status = next

	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	out := *w
	s.transitioned(ctx, viewer, p, &out, from)
	return &out, nil
}

func (s *Service) nextStatus(ctx context.Context, in engine.TransitionInput) (domain.WithdrawalStatus, bool) {
	if s.policy == nil {
		return engine.BuiltinNextStatus(in)
	}
	return s.policy.NextStatus(ctx, in)
}

func (s *Service) authorized(ctx context.Context, viewer *domain.Viewer, poolID string, req rbac.Requirement) (*domain.AccessPool, error) {
	if viewer == nil || viewer.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}
	p, err := s.repo.GetPool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if err := rbac.AuthorizeOrNotFound(p, viewer, req); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) save(ctx context.Context, p *domain.AccessPool) error {
	p.UpdatedAt = s.nowF().UTC()
	return s.repo.UpdatePool(ctx, p)
}

func (s *Service) transitioned(ctx context.Context, viewer *domain.Viewer, p *domain.AccessPool, w *domain.ImpactWithdrawal, from domain.WithdrawalStatus) {
	s.metrics.WithdrawalTransition(ctx, string(w.Status))
	s.log.WithFields(logrus.Fields{
		"pool_id":    p.ID,
		"request_id": w.ID,
		"from":       from,
		"to":         w.Status,
		"approvals":  w.Approvals,
	}).Info("withdrawal transition")
	eventType := telemetry.EventWithdrawalDecision
	if from == "" {
		eventType = telemetry.EventWithdrawalCreated
	}
	telemetry.EmitAsync(s.events, s.log, telemetry.NewEvent(eventType, eventSource, viewer.UserID, p.ID, map[string]any{
		"request_id": w.ID,
		"from":       from,
		"to":         w.Status,
		"approvals":  w.Approvals,
	}))
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
