package calls

import (
	"context"
	"sync"
	"time"
)

// MemoryStore backs tests. It honors the same conditional-insert and
// conditional-update contracts as the Postgres implementation.
// Not intended for production use.

type MemoryStore struct {
	mu    sync.Mutex
	calls map[string]*Call // keyed by tenantID + "\x00" + providerCallRef
	order []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{calls: make(map[string]*Call)}
}

func callKey(tenantID, providerCallRef string) string {
	return tenantID + "\x00" + providerCallRef
}

func (s *MemoryStore) CreateIfAbsent(ctx context.Context, c Call) (bool, error) {
	if c.ID == "" || c.TenantID == "" || c.ProviderCallRef == "" {
		return false, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := callKey(c.TenantID, c.ProviderCallRef)
	if _, exists := s.calls[k]; exists {
		return false, nil
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = c.CreatedAt
	if c.RawMetadata == nil {
		c.RawMetadata = map[string]string{}
	}
	cp := c
	s.calls[k] = &cp
	s.order = append(s.order, k)
	return true, nil
}

func (s *MemoryStore) ApplyStatus(ctx context.Context, tenantID, providerCallRef string, status CallStatus, durationSeconds int, metadata map[string]string) (bool, error) {
	if tenantID == "" || providerCallRef == "" || status == "" {
		return false, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[callKey(tenantID, providerCallRef)]
	if !ok {
		return false, nil
	}
	c.Status = status
	c.DurationSeconds = durationSeconds
	for k, v := range metadata {
		c.RawMetadata[k] = v
	}
	c.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *MemoryStore) FindByProviderRef(ctx context.Context, tenantID, providerCallRef string) (Call, error) {
	if tenantID == "" || providerCallRef == "" {
		return Call{}, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[callKey(tenantID, providerCallRef)]
	if !ok {
		return Call{}, ErrNotFound
	}
	return *c, nil
}

func (s *MemoryStore) ListRecent(ctx context.Context, tenantID string, limit int) ([]Call, error) {
	if tenantID == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 {
		limit = 5
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		c := s.calls[s.order[i]]
		if c.TenantID == tenantID {
			out = append(out, *c)
		}
	}
	return out, nil
}
