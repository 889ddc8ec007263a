package calls

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"frontdesk-platform/pkg/utils"
)

// NOTE: This repository assumes a calls table with
// UNIQUE (tenant_id, provider_call_ref) and raw_metadata JSONB.

type PostgresStore struct {
	db utils.DBTX
}

func NewPostgresStore(db utils.DBTX) *PostgresStore { return &PostgresStore{db: db} }

func (s *PostgresStore) CreateIfAbsent(ctx context.Context, c Call) (bool, error) {
	if c.ID == "" || c.TenantID == "" || c.ProviderCallRef == "" {
		return false, ErrInvalidArgument
	}
	meta, err := json.Marshal(metadataOrEmpty(c.RawMetadata))
	if err != nil {
		return false, err
	}
	now := time.Now().UTC()
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	const q = `
INSERT INTO calls (
  id, tenant_id, provider_call_ref, from_number, to_number,
  status, duration, raw_metadata, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$9
)
ON CONFLICT (tenant_id, provider_call_ref) DO NOTHING
`
	res, err := s.db.ExecContext(ctx, q,
		c.ID,
		c.TenantID,
		c.ProviderCallRef,
		c.FromNumber,
		c.ToNumber,
		c.Status,
		c.DurationSeconds,
		meta,
		createdAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PostgresStore) ApplyStatus(ctx context.Context, tenantID, providerCallRef string, status CallStatus, durationSeconds int, metadata map[string]string) (bool, error) {
	if tenantID == "" || providerCallRef == "" || status == "" {
		return false, ErrInvalidArgument
	}
	meta, err := json.Marshal(metadataOrEmpty(metadata))
	if err != nil {
		return false, err
	}
	// Lookup and mutation in one statement; || merges, keeping earlier keys
	// unless the new payload overwrites them.
	const q = `
UPDATE calls
SET status = $3,
    duration = $4,
    raw_metadata = raw_metadata || $5::jsonb,
    updated_at = $6
WHERE tenant_id = $1 AND provider_call_ref = $2
`
	res, err := s.db.ExecContext(ctx, q, tenantID, providerCallRef, status, durationSeconds, meta, time.Now().UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PostgresStore) FindByProviderRef(ctx context.Context, tenantID, providerCallRef string) (Call, error) {
	if tenantID == "" || providerCallRef == "" {
		return Call{}, ErrInvalidArgument
	}
	const q = `
SELECT id, tenant_id, provider_call_ref, from_number, to_number,
       status, duration, raw_metadata, created_at, updated_at
FROM calls
WHERE tenant_id = $1 AND provider_call_ref = $2
`
	return s.scanOne(s.db.QueryRowContext(ctx, q, tenantID, providerCallRef))
}

func (s *PostgresStore) ListRecent(ctx context.Context, tenantID string, limit int) ([]Call, error) {
	if tenantID == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 {
		limit = 5
	}
	const q = `
SELECT id, tenant_id, provider_call_ref, from_number, to_number,
       status, duration, raw_metadata, created_at, updated_at
FROM calls
WHERE tenant_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := s.db.QueryContext(ctx, q, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		var c Call
		var meta []byte
		if err := rows.Scan(
			&c.ID, &c.TenantID, &c.ProviderCallRef, &c.FromNumber, &c.ToNumber,
			&c.Status, &c.DurationSeconds, &meta, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(meta, &c.RawMetadata); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) scanOne(row *sql.Row) (Call, error) {
	var c Call
	var meta []byte
	if err := row.Scan(
		&c.ID, &c.TenantID, &c.ProviderCallRef, &c.FromNumber, &c.ToNumber,
		&c.Status, &c.DurationSeconds, &meta, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, ErrNotFound
		}
		return Call{}, err
	}
	if err := json.Unmarshal(meta, &c.RawMetadata); err != nil {
		return Call{}, err
	}
	return c, nil
}

func metadataOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
