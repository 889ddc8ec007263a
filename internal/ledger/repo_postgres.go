package ledger

import (
	"context"
	"errors"

	"frontdesk-platform/pkg/utils"

	"github.com/jackc/pgx/v5/pgconn"
)

// NOTE: This repository assumes the following table exists:
//
//   ledger_entries (
//     id         TEXT PRIMARY KEY,
//     tenant_id  TEXT,
//     category   TEXT NOT NULL,
//     provider   TEXT NOT NULL DEFAULT '',
//     event_id   TEXT NOT NULL DEFAULT '',
//     message    TEXT NOT NULL,
//     created_at TIMESTAMPTZ NOT NULL
//   )
//
// with the partial unique index backing the idempotency guard:
//
//   CREATE UNIQUE INDEX ux_ledger_provider_event
//   ON ledger_entries (provider, event_id) WHERE event_id <> '';

const pgUniqueViolation = "23505"

type PostgresRepo struct {
	db utils.DBTX
}

func NewPostgresRepo(db utils.DBTX) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Entry) error {
	const q = `
INSERT INTO ledger_entries (id, tenant_id, category, provider, event_id, message, created_at)
VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.TenantID,
		e.Category,
		e.Provider,
		e.EventID,
		e.Message,
		e.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateEvent
		}
		return err
	}
	return nil
}

func (r *PostgresRepo) SeenEvent(ctx context.Context, provider, eventID string) (bool, error) {
	const q = `
SELECT EXISTS (
  SELECT 1 FROM ledger_entries WHERE provider = $1 AND event_id = $2
)
`
	var seen bool
	if err := r.db.QueryRowContext(ctx, q, provider, eventID).Scan(&seen); err != nil {
		return false, err
	}
	return seen, nil
}
