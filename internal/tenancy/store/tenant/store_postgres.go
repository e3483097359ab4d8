package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"wayfare/internal/tenancy/models"
	id "wayfare/pkg/domain"
	"wayfare/pkg/platform/sentinel"
)

// PostgresStore persists tenants in PostgreSQL. Slug and domain uniqueness
// is enforced by unique indexes on lower(slug) and lower(domain); violations
// surface as sentinel.ErrAlreadyUsed.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Schema is the DDL for the tenants table. Applied by migrations and by
// integration tests against throwaway databases.
const Schema = `
CREATE TABLE IF NOT EXISTS tenants (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	slug       TEXT NOT NULL,
	domain     TEXT,
	status     TEXT NOT NULL,
	settings   JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS tenants_slug_key ON tenants (lower(slug));
CREATE UNIQUE INDEX IF NOT EXISTS tenants_domain_key ON tenants (lower(domain)) WHERE domain <> '';
`

const uniqueViolation = "23505"

func (s *PostgresStore) Create(ctx context.Context, t *models.Tenant) error {
	settings, err := json.Marshal(t.Settings)
	if err != nil {
		return fmt.Errorf("encode tenant settings: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO tenants (id, name, slug, domain, status, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, t.ID.String(), t.Name, t.Slug, t.Domain, string(t.Status), settings, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("tenant slug or domain: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	return s.findBy(ctx, `id = $1`, tenantID.String())
}

func (s *PostgresStore) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	return s.findBy(ctx, `lower(slug) = lower($1)`, slug)
}

func (s *PostgresStore) FindByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	return s.findBy(ctx, `lower(domain) = lower($1) AND domain <> ''`, domain)
}

func (s *PostgresStore) findBy(ctx context.Context, where string, arg any) (*models.Tenant, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, slug, domain, status, settings, created_at, updated_at
		FROM tenants WHERE `+where, arg)
	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tenant: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find tenant: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Tenant, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, slug, domain, status, settings, created_at, updated_at
		FROM tenants ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var out []*models.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return out, nil
}

// Execute locks the tenant row FOR UPDATE, validates, mutates, then writes
// back inside one transaction.
func (s *PostgresStore) Execute(ctx context.Context, tenantID id.TenantID, validate func(*models.Tenant) error, mutate func(*models.Tenant)) (*models.Tenant, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tenant update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		SELECT id, name, slug, domain, status, settings, created_at, updated_at
		FROM tenants WHERE id = $1 FOR UPDATE`, tenantID.String())
	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tenant %s: %w", tenantID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("lock tenant: %w", err)
	}

	if validate != nil {
		if err := validate(t); err != nil {
			return nil, err
		}
	}
	if mutate != nil {
		mutate(t)
	}

	settings, err := json.Marshal(t.Settings)
	if err != nil {
		return nil, fmt.Errorf("encode tenant settings: %w", err)
	}
	_, err = tx.Exec(ctx, `
		UPDATE tenants SET name = $2, slug = $3, domain = $4, status = $5, settings = $6, updated_at = $7
		WHERE id = $1
	`, t.ID.String(), t.Name, t.Slug, t.Domain, string(t.Status), settings, t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update tenant: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tenant update: %w", err)
	}
	return t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (*models.Tenant, error) {
	var (
		t        models.Tenant
		rawID    string
		status   string
		settings []byte
	)
	if err := row.Scan(&rawID, &t.Name, &t.Slug, &t.Domain, &status, &settings, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	tenantID, err := id.ParseTenantID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored tenant id: %w", err)
	}
	t.ID = tenantID
	t.Status = models.TenantStatus(status)
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &t.Settings); err != nil {
			return nil, fmt.Errorf("decode tenant settings: %w", err)
		}
	}
	return &t, nil
}
