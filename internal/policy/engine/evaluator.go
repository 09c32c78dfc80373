package engine

import (
	"context"

	"poolfi/backend/internal/pool/domain"
)

// TransitionInput describes a requested withdrawal transition.
type TransitionInput struct {
	Status            domain.WithdrawalStatus
	Decision          domain.Decision
	Approvals         int
	RequiredApprovals int
}

// Evaluator decides the status a withdrawal moves to.
type Evaluator interface {
	// NextStatus returns the resulting status, or ok=false when the transition is not allowed.
	NextStatus(ctx context.Context, in TransitionInput) (next domain.WithdrawalStatus, ok bool)
}

// BuiltinNextStatus is the transition rule in Go. It matches the default Rego policy and is used
// when policy evaluation fails.
func BuiltinNextStatus(in TransitionInput) (domain.WithdrawalStatus, bool) {
	switch {
	case in.Status == domain.WithdrawalPending && in.Decision == domain.DecisionApprove:
		if in.Approvals >= in.RequiredApprovals {
			return domain.WithdrawalApproved, true
		}
		return domain.WithdrawalPending, true
	case in.Status == domain.WithdrawalPending && in.Decision == domain.DecisionReject:
		return domain.WithdrawalRejected, true
	case in.Status == domain.WithdrawalApproved && in.Decision == domain.DecisionRelease:
		return domain.WithdrawalReleased, true
	default:
		return "", false
	}
}
