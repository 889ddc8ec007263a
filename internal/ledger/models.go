package ledger

import "time"

// Entry is an immutable, append-only event-ledger record.
//
// Invariants:
// - Entries are never updated or deleted.
// - Every state-mutating webhook writes exactly one entry carrying the
//   provider event id; that entry is the idempotency witness for redelivery.
// - tenant_id may be empty for provider-global events (e.g. a billing webhook
//   whose customer could not be resolved to a tenant).
//
// Storage (Postgres):
// - Table ledger_entries with an INSERT-only policy.
// - UNIQUE (provider, event_id) WHERE event_id <> '' backs the idempotency
//   guard; a duplicate delivery loses the insert race regardless of timing.

type Entry struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id,omitempty" db:"tenant_id"`

	Category Category `json:"category" db:"category"`

	// Provider plus EventID identify the upstream delivery. Empty EventID
	// means the entry is observability-only and takes no part in dedup.
	Provider string `json:"provider,omitempty" db:"provider"`
	EventID  string `json:"event_id,omitempty" db:"event_id"`

	// Message is a short human-readable description for internal ops.
	// It embeds the provider event id for grep-ability.
	Message string `json:"message" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Category string

const (
	CategoryTelephony        Category = "telephony"
	CategoryBilling          Category = "billing"
	CategoryBillingUnmatched Category = "billing_unmatched"
)
