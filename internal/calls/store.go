package calls

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("calls: not found")
	ErrInvalidArgument = errors.New("calls: invalid argument")
)

// Store is the persistence contract for calls.
//
// Concurrency requirements (enforced by implementations):
// - CreateIfAbsent is a single conditional insert, so redelivered "call
//   initiated" events cannot produce a second row.
// - ApplyStatus is a single conditional update (lookup and mutation in one
//   statement), so concurrent redelivery cannot lose updates.
type Store interface {
	// CreateIfAbsent inserts the call unless (tenant_id, provider_call_ref)
	// already exists. Returns true when a row was created.
	CreateIfAbsent(ctx context.Context, c Call) (bool, error)

	// ApplyStatus overwrites status and duration and merges metadata for an
	// existing call. Returns false when no matching call exists (a status
	// update racing ahead of its create is not an error).
	ApplyStatus(ctx context.Context, tenantID, providerCallRef string, status CallStatus, durationSeconds int, metadata map[string]string) (bool, error)

	FindByProviderRef(ctx context.Context, tenantID, providerCallRef string) (Call, error)
	ListRecent(ctx context.Context, tenantID string, limit int) ([]Call, error)
}
