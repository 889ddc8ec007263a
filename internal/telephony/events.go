package telephony

import (
	"errors"
	"time"

	"frontdesk-platform/internal/calls"

	"github.com/gin-gonic/gin"
)

// Provider is the ledger/dedup namespace for telephony events.
const Provider = "twilio"

// TenantHeader carries the owning tenant on provider callbacks. Providers
// that cannot be configured to send custom headers use the tenantId query
// parameter instead; both are valid.
const TenantHeader = "X-Tenant-Id"

var (
	ErrTenantMissing  = errors.New("telephony: missing tenant identifier header or query parameter")
	ErrCallRefMissing = errors.New("telephony: missing CallSid")
)

// ResolveTenantID extracts the tenant reference of a telephony callback.
func ResolveTenantID(c *gin.Context) (string, error) {
	if id := c.GetHeader(TenantHeader); id != "" {
		return id, nil
	}
	if id := c.Query("tenantId"); id != "" {
		return id, nil
	}
	return "", ErrTenantMissing
}

// CallInitiated is the normalized "call started" event.
type CallInitiated struct {
	TenantID        string
	ProviderCallRef string
	From            string
	To              string
	Status          calls.CallStatus
	Extra           map[string]string
	OccurredAt      time.Time
}

// EventID is the dedup key: the provider call ref identifies the initiation.
func (e CallInitiated) EventID() string { return e.ProviderCallRef }

// CallStatusUpdated is the normalized lifecycle-progress event.
type CallStatusUpdated struct {
	TenantID        string
	ProviderCallRef string
	From            string
	To              string
	Status          calls.CallStatus
	DurationSeconds int
	Extra           map[string]string
	OccurredAt      time.Time
}

// EventID scopes dedup to one lifecycle transition: redelivering the same
// status is a duplicate, a later different status is a new event.
func (e CallStatusUpdated) EventID() string {
	return e.ProviderCallRef + ":" + string(e.Status)
}

// Initiated normalizes a voice callback. CallSid is required; everything else
// degrades to provider defaults ("unknown" numbers, queued status).
func (f CallbackForm) Initiated(tenantID string, occurredAt time.Time) (CallInitiated, error) {
	if f.CallSid == "" {
		return CallInitiated{}, ErrCallRefMissing
	}
	status := calls.CallStatusQueued
	if f.CallStatus != "" {
		status = calls.NormalizeStatus(f.CallStatus)
	}
	return CallInitiated{
		TenantID:        tenantID,
		ProviderCallRef: f.CallSid,
		From:            orUnknown(f.From),
		To:              orUnknown(f.To),
		Status:          status,
		Extra:           f.Fields,
		OccurredAt:      occurredAt,
	}, nil
}

// StatusUpdate normalizes a status callback. CallSid and CallStatus are
// required; a missing duration is 0 and accrues nothing.
func (f CallbackForm) StatusUpdate(tenantID string, occurredAt time.Time) (CallStatusUpdated, error) {
	if f.CallSid == "" {
		return CallStatusUpdated{}, ErrCallRefMissing
	}
	if f.CallStatus == "" {
		return CallStatusUpdated{}, errors.New("telephony: missing CallStatus")
	}
	return CallStatusUpdated{
		TenantID:        tenantID,
		ProviderCallRef: f.CallSid,
		From:            orUnknown(f.From),
		To:              orUnknown(f.To),
		Status:          calls.NormalizeStatus(f.CallStatus),
		DurationSeconds: f.DurationSeconds(),
		Extra:           f.Fields,
		OccurredAt:      occurredAt,
	}, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
