package notify

import (
	"context"

	"frontdesk-platform/pkg/utils"
)

// NOTE: This repository assumes a follow_up_messages table with an
// INSERT-only policy, mirroring the ledger.

type PostgresRepo struct {
	db utils.DBTX
}

func NewPostgresRepo(db utils.DBTX) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, m FollowUpMessage) error {
	if m.ID == "" || m.TenantID == "" || m.Content == "" {
		return ErrInvalidMessage
	}
	const q = `
INSERT INTO follow_up_messages (id, tenant_id, direction, content, channel, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`
	_, err := r.db.ExecContext(ctx, q, m.ID, m.TenantID, m.Direction, m.Content, m.Channel, m.CreatedAt)
	return err
}

func (r *PostgresRepo) ListByTenant(ctx context.Context, tenantID string, limit int) ([]FollowUpMessage, error) {
	if tenantID == "" {
		return nil, ErrInvalidMessage
	}
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, tenant_id, direction, content, channel, created_at
FROM follow_up_messages
WHERE tenant_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := r.db.QueryContext(ctx, q, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FollowUpMessage
	for rows.Next() {
		var m FollowUpMessage
		if err := rows.Scan(&m.ID, &m.TenantID, &m.Direction, &m.Content, &m.Channel, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
