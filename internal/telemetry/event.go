package telemetry

import (
	"encoding/json"
	"time"
)

// Event types emitted by the pool and governance services.
const (
	EventGRPCRequest        = "grpc_request"
	EventPoolRegistered     = "pool_registered"
	EventPoolJoined         = "pool_joined"
	EventImpactUpdate       = "impact_update_posted"
	EventWithdrawalCreated  = "withdrawal_created"
	EventWithdrawalDecision = "withdrawal_decision"
	EventUserSignedUp       = "user_signed_up"
)

// Event is a single telemetry record. It is serialized as JSON on the Kafka topic.
type Event struct {
	UserID    string          `json:"userId,omitempty"`
	PoolID    string          `json:"poolId,omitempty"`
	EventType string          `json:"eventType"`
	Source    string          `json:"source"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewEvent builds an event stamped with the current time. meta is marshalled to JSON; a nil meta
// or a marshal failure leaves Metadata empty.
func NewEvent(eventType, source, userID, poolID string, meta any) *Event {
	e := &Event{
		UserID:    userID,
		PoolID:    poolID,
		EventType: eventType,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
	if meta != nil {
		if b, err := json.Marshal(meta); err == nil {
			e.Metadata = b
		}
	}
	return e
}
