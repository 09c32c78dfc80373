// Package chain reads pool state from the EVM pool factory and its pool contracts.
package chain

import (
	"context"
	"time"

	"poolfi/backend/internal/pool/domain"
)

// Status is the lifecycle state of an on-chain pool.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusClosed    Status = "CLOSED"
	StatusCancelled Status = "CANCELLED"
)

// StatusFromCode maps the contract status enum. Unknown codes are ACTIVE.
func StatusFromCode(code uint8) Status {
	switch code {
	case 1:
		return StatusClosed
	case 2:
		return StatusCancelled
	default:
		return StatusActive
	}
}

// PoolRecord is one pool as the chain reports it. It is read per call and never cached.
type PoolRecord struct {
	ID                    string      `json:"id"`
	Address               string      `json:"address"`
	Kind                  domain.Kind `json:"kind"`
	Name                  string      `json:"name"`
	Category              string      `json:"category"`
	Target                float64     `json:"target"`
	Raised                float64     `json:"raised"`
	ContributionPerPerson float64     `json:"contributionPerPerson"`
	ContributorsPaid      int64       `json:"contributorsPaid"`
	ContributorsTotal     int64       `json:"contributorsTotal"`
	StartAt               time.Time   `json:"startAt"`
	Deadline              time.Time   `json:"deadline"`
	Status                Status      `json:"status"`
	AdminAddress          string      `json:"adminAddress"`
	MetadataHash          string      `json:"metadataHash"`
}

// MemberRecord is a wallet that emitted PoolJoined on a pool.
type MemberRecord struct {
	Wallet   string    `json:"wallet"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Reader is the read side of the chain used by reconciliation and the chain endpoints.
type Reader interface {
	// ListPools returns every pool registered with the factory, in factory order.
	ListPools(ctx context.Context) ([]PoolRecord, error)
	// LatestPool returns the most recently registered pool, or nil when there is none.
	LatestPool(ctx context.Context) (*PoolRecord, error)
	// ListMembers returns the distinct wallets that joined the pool at address.
	ListMembers(ctx context.Context, address string) ([]MemberRecord, error)
}

// NopReader is used when no chain endpoint is configured. It reports no pools and no members.
type NopReader struct{}

func (NopReader) ListPools(context.Context) ([]PoolRecord, error) { return []PoolRecord{}, nil }

func (NopReader) LatestPool(context.Context) (*PoolRecord, error) { return nil, nil }

func (NopReader) ListMembers(context.Context, string) ([]MemberRecord, error) {
	return []MemberRecord{}, nil
}
