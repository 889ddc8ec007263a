package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for ledger entries.
//
// It MUST be append-only. No Update/Delete methods are provided.
type Repository interface {
	// Append stores an entry. When the entry carries an event id, a
	// previously stored (provider, event_id) pair makes this fail with
	// ErrDuplicateEvent; implementations must enforce that atomically.
	Append(ctx context.Context, e Entry) error

	// SeenEvent reports whether an entry referencing the event id exists.
	// Advisory fast path only: Append remains the authoritative check.
	SeenEvent(ctx context.Context, provider, eventID string) (bool, error)
}

var (
	ErrInvalidEntry = errors.New("ledger: invalid entry")

	// ErrDuplicateEvent marks an event id that was already recorded.
	// Callers treat it as "already handled", never as a failure.
	ErrDuplicateEvent = errors.New("ledger: duplicate event")
)

// Service appends ledger entries.
//
// Entries double as the idempotency store for webhook deliveries: recording
// the event id and mutating state happen inside one transaction, so the loser
// of a concurrent duplicate race rolls back with ErrDuplicateEvent.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) Append(ctx context.Context, e Entry) error {
	if s.repo == nil {
		return errors.New("ledger: repository not configured")
	}
	if e.Category == "" || e.Message == "" {
		return ErrInvalidEntry
	}
	if e.EventID != "" && e.Provider == "" {
		return ErrInvalidEntry
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// SeenEvent is the advisory idempotency probe used before reconciliation.
func (s *Service) SeenEvent(ctx context.Context, provider, eventID string) (bool, error) {
	if s.repo == nil {
		return false, errors.New("ledger: repository not configured")
	}
	if provider == "" || eventID == "" {
		return false, ErrInvalidEntry
	}
	return s.repo.SeenEvent(ctx, provider, eventID)
}

// RecordEvent appends the single state-mutation witness for a webhook event.
func (s *Service) RecordEvent(ctx context.Context, tenantID string, cat Category, provider, eventID, message string) error {
	return s.Append(ctx, Entry{
		TenantID: tenantID,
		Category: cat,
		Provider: provider,
		EventID:  eventID,
		Message:  fmt.Sprintf("%s [event %s]", message, eventID),
	})
}

// Log appends an observability-only entry (no event id, no dedup).
func (s *Service) Log(ctx context.Context, tenantID string, cat Category, message string) error {
	return s.Append(ctx, Entry{
		TenantID: tenantID,
		Category: cat,
		Message:  message,
	})
}
