package notify

import (
	"context"
	"errors"
)

var ErrInvalidMessage = errors.New("notify: invalid message")

// Store is the persistence contract for follow-up messages. Append-only.
type Store interface {
	Append(ctx context.Context, m FollowUpMessage) error
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]FollowUpMessage, error)
}
