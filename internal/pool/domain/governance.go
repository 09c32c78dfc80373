package domain

import (
	"fmt"
	"time"
)

// RequiredApprovals is the fixed number of reviewer approvals a withdrawal needs.
const RequiredApprovals = 3

// WithdrawalStatus is the state of an ImpactWithdrawal.
type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "PENDING"
	WithdrawalApproved WithdrawalStatus = "APPROVED"
	WithdrawalRejected WithdrawalStatus = "REJECTED"
	WithdrawalReleased WithdrawalStatus = "RELEASED"
)

// Terminal reports whether no further transition is possible from s.
func (s WithdrawalStatus) Terminal() bool {
	return s == WithdrawalRejected || s == WithdrawalReleased
}

// ImpactUpdate is a progress note posted by an impact pool's admin. Append-only.
type ImpactUpdate struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Details       string    `json:"details"`
	ReferenceLink string    `json:"referenceLink,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ImpactWithdrawal is a request to release funds from an impact pool.
type ImpactWithdrawal struct {
	ID                string           `json:"id"`
	Amount            float64          `json:"amount"`
	Purpose           string           `json:"purpose"`
	Vendor            string           `json:"vendor"`
	Stage             string           `json:"stage"`
	Approvals         int              `json:"approvals"`
	RequiredApprovals int              `json:"requiredApprovals"`
	Status            WithdrawalStatus `json:"status"`
	ApprovedBy        []string         `json:"approvedBy,omitempty"`
	RejectedBy        []string         `json:"rejectedBy,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	DecidedAt         *time.Time       `json:"decidedAt,omitempty"`
	ReleasedAt        *time.Time       `json:"releasedAt,omitempty"`
}

func (w ImpactWithdrawal) clone() ImpactWithdrawal {
	c := w
	c.ApprovedBy = append([]string(nil), w.ApprovedBy...)
	c.RejectedBy = append([]string(nil), w.RejectedBy...)
	if w.DecidedAt != nil {
		t := *w.DecidedAt
		c.DecidedAt = &t
	}
	if w.ReleasedAt != nil {
		t := *w.ReleasedAt
		c.ReleasedAt = &t
	}
	return c
}

// WithdrawalID formats the per-pool sequence number as REQ-001, REQ-002, ...
func WithdrawalID(seq int) string {
	return fmt.Sprintf("REQ-%03d", seq)
}

// Decision is a reviewer's vote on a withdrawal.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
	DecisionRelease Decision = "RELEASE"
)
