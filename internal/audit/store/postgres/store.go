// Package postgres persists audit entries using the transactional outbox
// pattern: Append writes the queryable entry row and the outbox row in one
// transaction, and the relay worker drains the outbox to the audit topic.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"wayfare/internal/audit"
	"wayfare/internal/rbac"
	id "wayfare/pkg/domain"
)

// Schema holds the audit DDL, applied by migrations and integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id           UUID PRIMARY KEY,
	tenant_id    UUID NOT NULL,
	user_id      UUID,
	action       TEXT NOT NULL,
	resource     TEXT NOT NULL,
	resource_id  TEXT NOT NULL,
	before_value JSONB,
	after_value  JSONB,
	request_id   TEXT NOT NULL DEFAULT '',
	client_ip    TEXT NOT NULL DEFAULT '',
	device       TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS audit_entries_tenant_idx
	ON audit_entries (tenant_id, created_at DESC);

CREATE TABLE IF NOT EXISTS audit_outbox (
	id            UUID PRIMARY KEY,
	partition_key TEXT NOT NULL,
	payload       JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	published_at  TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS audit_outbox_unpublished_idx
	ON audit_outbox (created_at) WHERE published_at IS NULL;
`

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append writes the entry and its outbox row atomically. The entry row
// serves the admin listing; the outbox row feeds the relay.
func (s *Store) Append(ctx context.Context, entry *audit.Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin audit append: %w", err)
	}
	defer tx.Rollback()

	var userID *uuid.UUID
	if !entry.UserID.IsNil() {
		u := uuid.UUID(entry.UserID)
		userID = &u
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_entries (
			id, tenant_id, user_id, action, resource, resource_id,
			before_value, after_value, request_id, client_ip, device, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		entry.ID,
		uuid.UUID(entry.TenantID),
		userID,
		string(entry.Action),
		string(entry.Resource),
		entry.ResourceID,
		nullableJSON(entry.Before),
		nullableJSON(entry.After),
		entry.RequestID,
		entry.ClientIP,
		entry.Device,
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_outbox (id, partition_key, payload, created_at)
		VALUES ($1, $2, $3, $4)`,
		entry.ID,
		entry.TenantID.String(),
		payload,
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit audit append: %w", err)
	}
	return nil
}

// ListByTenant returns the tenant's entries, newest first.
func (s *Store) ListByTenant(ctx context.Context, tenantID id.TenantID, limit int) ([]*audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, user_id, action, resource, resource_id,
		       before_value, after_value, request_id, client_ip, device, created_at
		FROM audit_entries
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		uuid.UUID(tenantID), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*audit.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

// FetchUnpublished returns the oldest unpublished outbox rows.
func (s *Store) FetchUnpublished(ctx context.Context, limit int) ([]audit.OutboxEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, partition_key, payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var out []audit.OutboxEntry
	for rows.Next() {
		var e audit.OutboxEntry
		if err := rows.Scan(&e.ID, &e.Key, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return out, nil
}

func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE audit_outbox
		SET published_at = now()
		WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

func scanEntry(rows *sql.Rows) (*audit.Entry, error) {
	var (
		entry    audit.Entry
		entryID  uuid.UUID
		tenantID uuid.UUID
		userID   *uuid.UUID
		action   string
		resource string
		before   []byte
		after    []byte
		created  time.Time
	)
	err := rows.Scan(
		&entryID, &tenantID, &userID, &action, &resource, &entry.ResourceID,
		&before, &after, &entry.RequestID, &entry.ClientIP, &entry.Device, &created,
	)
	if err != nil {
		return nil, fmt.Errorf("scan audit entry: %w", err)
	}
	entry.ID = entryID
	entry.TenantID = id.TenantID(tenantID)
	if userID != nil {
		entry.UserID = id.UserID(*userID)
	}
	entry.Action = audit.Action(action)
	entry.Resource = rbac.Resource(resource)
	entry.Before = before
	entry.After = after
	entry.Timestamp = created
	return &entry, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
