package notify

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory append-only repository useful for tests.
// Not intended for production use.

type MemoryRepo struct {
	mu       sync.Mutex
	messages []FollowUpMessage
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, m FollowUpMessage) error {
	if m.ID == "" || m.TenantID == "" || m.Content == "" {
		return ErrInvalidMessage
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
	return nil
}

func (r *MemoryRepo) ListByTenant(ctx context.Context, tenantID string, limit int) ([]FollowUpMessage, error) {
	if tenantID == "" {
		return nil, ErrInvalidMessage
	}
	if limit <= 0 {
		limit = 20
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []FollowUpMessage
	for i := len(r.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if r.messages[i].TenantID == tenantID {
			out = append(out, r.messages[i])
		}
	}
	return out, nil
}

func (r *MemoryRepo) Messages() []FollowUpMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]FollowUpMessage, len(r.messages))
	copy(out, r.messages)
	return out
}
