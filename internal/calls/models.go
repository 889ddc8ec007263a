package calls

import (
	"strings"
	"time"
)

// Call represents a tenant-scoped phone call.
//
// Multi-tenant invariant: TenantID is required on every row, and the pair
// (tenant_id, provider_call_ref) is unique. Calls are created once by the
// "call initiated" webhook and updated in place by later status events;
// they are never re-created.
type Call struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`

	// ProviderCallRef is the telephony provider's id for this call
	// (Twilio CallSid).
	ProviderCallRef string `json:"provider_call_ref" db:"provider_call_ref"`

	FromNumber string `json:"from_number" db:"from_number"`
	ToNumber   string `json:"to_number" db:"to_number"`

	Status CallStatus `json:"status" db:"status"`

	// DurationSeconds is the call duration in seconds as last reported.
	DurationSeconds int `json:"duration" db:"duration"`

	// RawMetadata holds the provider payload fields seen so far. Status
	// events merge into it; earlier keys survive unless overwritten.
	RawMetadata map[string]string `json:"raw_metadata,omitempty" db:"raw_metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CallStatus uses the provider's lifecycle vocabulary verbatim so status
// events round-trip without translation tables.
type CallStatus string

const (
	CallStatusQueued     CallStatus = "queued"
	CallStatusRinging    CallStatus = "ringing"
	CallStatusInProgress CallStatus = "in-progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
	CallStatusNoAnswer   CallStatus = "no-answer"
	CallStatusBusy       CallStatus = "busy"
	CallStatusCanceled   CallStatus = "canceled"
)

// NormalizeStatus lowercases a provider status string; unknown values pass
// through so new provider states are stored rather than dropped.
func NormalizeStatus(raw string) CallStatus {
	return CallStatus(strings.ToLower(strings.TrimSpace(raw)))
}

// Missed reports whether a status represents a call the tenant never took.
func (s CallStatus) Missed() bool {
	switch s {
	case CallStatusNoAnswer, CallStatusBusy, CallStatusFailed:
		return true
	default:
		return false
	}
}

// Billable reports whether a status can accrue metered minutes.
func (s CallStatus) Billable() bool {
	return s == CallStatusCompleted || s == CallStatusInProgress
}
