package domain

import (
	"fmt"
	"strings"
	"time"
)

// Kind distinguishes invite-gated goal pools from public impact pools.
type Kind string

const (
	KindGoal   Kind = "GOAL"
	KindImpact Kind = "IMPACT"
)

// Visibility is PRIVATE for goal pools and PUBLIC for impact pools.
type Visibility string

const (
	VisibilityPrivate Visibility = "PRIVATE"
	VisibilityPublic  Visibility = "PUBLIC"
)

// Source records where a pool's lifecycle is tracked.
type Source string

const (
	SourceOnChain  Source = "ON_CHAIN"
	SourceOffChain Source = "OFF_CHAIN"
)

// VisibilityFor returns the only visibility allowed for kind.
func VisibilityFor(kind Kind) Visibility {
	if kind == KindGoal {
		return VisibilityPrivate
	}
	return VisibilityPublic
}

// AccessPool is the off-chain access and governance record for a pool.
// For goal pools Raised, Target and ContributionPerPerson mirror the chain and are never read back as truth.
type AccessPool struct {
	ID                    string             `json:"id"`
	Kind                  Kind               `json:"kind"`
	Visibility            Visibility         `json:"visibility"`
	Source                Source             `json:"source"`
	Name                  string             `json:"name"`
	Category              string             `json:"category"`
	Address               string             `json:"address,omitempty"`
	AdminUserID           string             `json:"adminUserId,omitempty"`
	Description           string             `json:"description,omitempty"`
	Invited               []string           `json:"invited"`
	JoinedUserIDs         []string           `json:"joinedUserIds"`
	Raised                float64            `json:"raised"`
	Target                float64            `json:"target"`
	ContributionPerPerson float64            `json:"contributionPerPerson"`
	CreatedAt             time.Time          `json:"createdAt"`
	UpdatedAt             time.Time          `json:"updatedAt"`
	Updates               []ImpactUpdate     `json:"updates"`
	Withdrawals           []ImpactWithdrawal `json:"withdrawals"`
	// WithdrawalSeq is the last issued withdrawal sequence number; it never decreases.
	WithdrawalSeq int `json:"withdrawalSeq"`
	// Version is incremented by the repository on every successful update.
	Version int64 `json:"version"`
}

// Validate enforces the kind/visibility/source coupling and the joined-set invariants.
func (p *AccessPool) Validate() error {
	if p == nil {
		return ErrPoolNotFound
	}
	if strings.TrimSpace(p.ID) == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	switch p.Kind {
	case KindGoal:
		if p.Source != SourceOnChain {
			return &ValidationError{Field: "source", Reason: "goal pools are tracked on chain"}
		}
	case KindImpact:
		if p.Source != SourceOffChain {
			return &ValidationError{Field: "source", Reason: "impact pools are tracked off chain"}
		}
	default:
		return &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", p.Kind)}
	}
	if p.Visibility != VisibilityFor(p.Kind) {
		return &ValidationError{Field: "visibility", Reason: fmt.Sprintf("%s pools must be %s", p.Kind, VisibilityFor(p.Kind))}
	}
	seen := make(map[string]struct{}, len(p.JoinedUserIDs))
	for _, id := range p.JoinedUserIDs {
		if _, dup := seen[id]; dup {
			return &ValidationError{Field: "joinedUserIds", Reason: "duplicate member " + id}
		}
		seen[id] = struct{}{}
	}
	if p.AdminUserID != "" {
		if _, ok := seen[p.AdminUserID]; !ok {
			return &ValidationError{Field: "joinedUserIds", Reason: "admin must be a member"}
		}
	}
	for _, w := range p.Withdrawals {
		if w.Approvals > w.RequiredApprovals {
			return &ValidationError{Field: "withdrawals", Reason: w.ID + " exceeds required approvals"}
		}
	}
	return nil
}

// IsAdmin reports whether userID administers p.
func (p *AccessPool) IsAdmin(userID string) bool {
	return userID != "" && p.AdminUserID == userID
}

// HasJoined reports whether userID is in the joined set.
func (p *AccessPool) HasJoined(userID string) bool {
	if userID == "" {
		return false
	}
	for _, id := range p.JoinedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Join adds userID to the joined set. It reports false when the user was already a member.
func (p *AccessPool) Join(userID string) bool {
	if userID == "" || p.HasJoined(userID) {
		return false
	}
	p.JoinedUserIDs = append(p.JoinedUserIDs, userID)
	return true
}

// FindWithdrawal returns the withdrawal with id, or nil.
func (p *AccessPool) FindWithdrawal(id string) *ImpactWithdrawal {
	id = strings.TrimSpace(id)
	for i := range p.Withdrawals {
		if strings.EqualFold(p.Withdrawals[i].ID, id) {
			return &p.Withdrawals[i]
		}
	}
	return nil
}

// Clone returns a deep copy of p so callers can mutate it without touching stored state.
func (p *AccessPool) Clone() *AccessPool {
	if p == nil {
		return nil
	}
	c := *p
	c.Invited = append([]string(nil), p.Invited...)
	c.JoinedUserIDs = append([]string(nil), p.JoinedUserIDs...)
	c.Updates = append([]ImpactUpdate(nil), p.Updates...)
	c.Withdrawals = make([]ImpactWithdrawal, len(p.Withdrawals))
	for i, w := range p.Withdrawals {
		c.Withdrawals[i] = w.clone()
	}
	if p.Withdrawals == nil {
		c.Withdrawals = nil
	}
	return &c
}

// NormalizeIdentifier trims and lowercases an invited identifier, email or pseudonym for comparison.
func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeInvited normalizes ids, drops empties and removes duplicates, keeping first occurrence order.
func NormalizeInvited(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		n := NormalizeIdentifier(id)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// NormalizeAddress lowercases and trims a chain address. Goal pool ids use this form.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
