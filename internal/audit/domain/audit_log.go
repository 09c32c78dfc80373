package domain

import "time"

// AuditLog represents an audit event. PoolID is empty for calls that are not scoped to a pool.
type AuditLog struct {
	ID        string    `json:"id"`
	PoolID    string    `json:"poolId,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	IP        string    `json:"ip"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
