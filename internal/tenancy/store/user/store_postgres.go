package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"wayfare/internal/tenancy/models"
	id "wayfare/pkg/domain"
	"wayfare/pkg/platform/sentinel"
)

// PostgresStore persists users in PostgreSQL. Email uniqueness is scoped to
// the tenant by a composite unique index.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Schema is the DDL for the users table.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	tenant_id     UUID NOT NULL REFERENCES tenants (id),
	email         TEXT NOT NULL,
	designation   TEXT NOT NULL,
	status        TEXT NOT NULL,
	password_hash TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS users_tenant_email_key ON users (tenant_id, lower(email));
CREATE INDEX IF NOT EXISTS users_tenant_idx ON users (tenant_id);
`

const uniqueViolation = "23505"

func (s *PostgresStore) Create(ctx context.Context, u *models.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, tenant_id, email, designation, status, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID.String(), u.TenantID.String(), u.Email, string(u.Designation), string(u.Status), u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("user email in tenant: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, email, designation, status, password_hash, created_at, updated_at
		FROM users WHERE id = $1`, userID.String())
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, tenantID id.TenantID, email string) (*models.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, email, designation, status, password_hash, created_at, updated_at
		FROM users WHERE tenant_id = $1 AND lower(email) = lower($2)`, tenantID.String(), email)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user email in tenant %s: %w", tenantID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*models.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, email, designation, status, password_hash, created_at, updated_at
		FROM users WHERE tenant_id = $1 ORDER BY created_at`, tenantID.String())
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, u *models.User) error {
	// tenant_id is deliberately absent from the SET list: membership is
	// immutable and the WHERE clause pins the row to its tenant.
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET email = $3, designation = $4, status = $5, password_hash = $6, updated_at = $7
		WHERE id = $1 AND tenant_id = $2
	`, u.ID.String(), u.TenantID.String(), u.Email, string(u.Designation), string(u.Status), u.PasswordHash, u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("user email in tenant: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", u.ID, sentinel.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u           models.User
		rawID       string
		rawTenant   string
		designation string
		status      string
	)
	if err := row.Scan(&rawID, &rawTenant, &u.Email, &designation, &status, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	userID, err := id.ParseUserID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored user id: %w", err)
	}
	tenantID, err := id.ParseTenantID(rawTenant)
	if err != nil {
		return nil, fmt.Errorf("stored tenant id: %w", err)
	}
	u.ID = userID
	u.TenantID = tenantID
	u.Designation = models.Designation(designation)
	u.Status = models.UserStatus(status)
	return &u, nil
}
