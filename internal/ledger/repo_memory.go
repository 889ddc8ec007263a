package ledger

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory append-only repository useful for tests.
// It enforces the same (provider, event_id) uniqueness as Postgres.
// Not intended for production use.

type MemoryRepo struct {
	mu      sync.Mutex
	entries []Entry
	seen    map[string]struct{}
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{seen: make(map[string]struct{})}
}

func eventKey(provider, eventID string) string {
	return provider + ":" + eventID
}

func (r *MemoryRepo) Append(ctx context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.EventID != "" {
		k := eventKey(e.Provider, e.EventID)
		if _, dup := r.seen[k]; dup {
			return ErrDuplicateEvent
		}
		r.seen[k] = struct{}{}
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *MemoryRepo) SeenEvent(ctx context.Context, provider, eventID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.seen[eventKey(provider, eventID)]
	return ok, nil
}

func (r *MemoryRepo) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Forget drops a recorded event id. Tests use it to simulate a rolled-back
// transaction, where the ledger insert is undone together with the mutation.
func (r *MemoryRepo) Forget(provider, eventID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.seen, eventKey(provider, eventID))
}
