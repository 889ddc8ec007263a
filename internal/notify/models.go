package notify

import "time"

// FollowUpMessage flags operator attention for a tenant, e.g. a missed call
// that needs a callback. Records are append-only; the dashboard reads them,
// nothing in this core mutates them after the fact.
type FollowUpMessage struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`

	// Direction is always "system" for messages generated by reconciliation.
	Direction string `json:"direction" db:"direction"`

	Content string `json:"content" db:"content"`
	Channel string `json:"channel" db:"channel"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

const (
	DirectionSystem = "system"
	ChannelSystem   = "system"
)
