package tenant

import (
	"context"
	"sync"
	"time"
)

// MemoryStore and MemorySubscriptionStore back tests. They honor the same
// atomicity contracts as the Postgres implementations (single-lock increments
// and single-lock multi-row updates). Not intended for production use.

type MemoryStore struct {
	mu      sync.Mutex
	tenants map[string]Tenant
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tenants: make(map[string]Tenant)}
}

func (s *MemoryStore) Create(ctx context.Context, t Tenant) error {
	if t.ID == "" || t.Name == "" {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	s.tenants[t.ID] = t
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (Tenant, error) {
	if id == "" {
		return Tenant{}, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return Tenant{}, ErrNotFound
	}
	return t, nil
}

type MemorySubscriptionStore struct {
	mu   sync.Mutex
	subs map[string]*Subscription // keyed by tenant id
}

func NewMemorySubscriptionStore() *MemorySubscriptionStore {
	return &MemorySubscriptionStore{subs: make(map[string]*Subscription)}
}

func (s *MemorySubscriptionStore) Create(ctx context.Context, sub Subscription) error {
	if sub.ID == "" || sub.TenantID == "" {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	if sub.UpdatedAt.IsZero() {
		sub.UpdatedAt = now
	}
	cp := sub
	s.subs[sub.TenantID] = &cp
	return nil
}

func (s *MemorySubscriptionStore) FindByTenant(ctx context.Context, tenantID string) (Subscription, error) {
	if tenantID == "" {
		return Subscription{}, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[tenantID]
	if !ok {
		return Subscription{}, ErrNotFound
	}
	return *sub, nil
}

func (s *MemorySubscriptionStore) AddMeteredMinutes(ctx context.Context, tenantID string, minutes int64) (bool, error) {
	if tenantID == "" || minutes <= 0 {
		return false, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[tenantID]
	if !ok {
		return false, nil
	}
	sub.MeteredMinutes += minutes
	sub.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *MemorySubscriptionStore) ApplyByCustomerRef(ctx context.Context, customerRef string, upd ProviderUpdate) (int64, error) {
	if customerRef == "" {
		return 0, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, sub := range s.subs {
		if sub.ProviderCustomerRef != customerRef {
			continue
		}
		if upd.Tier != nil {
			sub.Tier = *upd.Tier
		}
		if upd.Status != nil {
			sub.Status = *upd.Status
		}
		if upd.SubscriptionRef != nil {
			sub.ProviderSubscriptionRef = *upd.SubscriptionRef
		}
		sub.UpdatedAt = time.Now().UTC()
		n++
	}
	return n, nil
}

func (s *MemorySubscriptionStore) LinkCustomerRef(ctx context.Context, tenantID, customerRef string) error {
	if tenantID == "" || customerRef == "" {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[tenantID]
	if !ok {
		return ErrNotFound
	}
	sub.ProviderCustomerRef = customerRef
	sub.UpdatedAt = time.Now().UTC()
	return nil
}
