// Package postgres backs the storage engine with one JSONB documents table
// per deployment.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"wayfare/internal/storage"
	id "wayfare/pkg/domain"
	"wayfare/pkg/platform/sentinel"
)

// Engine stores every entity's records as rows (entity, id, doc JSONB).
// Equality filters compile to JSONB containment, which keeps the engine
// schema-free while the isolation layer injects tenant constraints as
// ordinary filter keys.
type Engine struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Engine {
	return &Engine{pool: pool}
}

// Schema is the DDL for the documents table.
const Schema = `
CREATE TABLE IF NOT EXISTS records (
	entity TEXT NOT NULL,
	id     UUID NOT NULL,
	doc    JSONB NOT NULL DEFAULT '{}',
	PRIMARY KEY (entity, id)
);
CREATE INDEX IF NOT EXISTS records_doc_idx ON records USING gin (doc jsonb_path_ops);
`

const uniqueViolation = "23505"

func (e *Engine) Create(ctx context.Context, entity string, rec *storage.Record) error {
	doc, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", entity, err)
	}
	_, err = e.pool.Exec(ctx, `INSERT INTO records (entity, id, doc) VALUES ($1, $2, $3)`,
		entity, rec.ID.String(), doc)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%s record %s: %w", entity, rec.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert %s record: %w", entity, err)
	}
	return nil
}

func (e *Engine) FindOne(ctx context.Context, entity string, filter storage.Filter) (*storage.Record, error) {
	where, args, err := compile(entity, filter)
	if err != nil {
		return nil, err
	}
	row := e.pool.QueryRow(ctx, `SELECT r0.id, r0.doc FROM records r0 WHERE `+where+` LIMIT 1`, args...)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s record: %w", entity, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find %s record: %w", entity, err)
	}
	return rec, nil
}

func (e *Engine) Find(ctx context.Context, entity string, filter storage.Filter) ([]*storage.Record, error) {
	where, args, err := compile(entity, filter)
	if err != nil {
		return nil, err
	}
	rows, err := e.pool.Query(ctx, `SELECT r0.id, r0.doc FROM records r0 WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("find %s records: %w", entity, err)
	}
	defer rows.Close()

	var out []*storage.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s record: %w", entity, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find %s records: %w", entity, err)
	}
	return out, nil
}

func (e *Engine) Count(ctx context.Context, entity string, filter storage.Filter) (int, error) {
	where, args, err := compile(entity, filter)
	if err != nil {
		return 0, err
	}
	var n int
	if err := e.pool.QueryRow(ctx, `SELECT count(*) FROM records r0 WHERE `+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s records: %w", entity, err)
	}
	return n, nil
}

func (e *Engine) Update(ctx context.Context, entity string, filter storage.Filter, set map[string]any) (int, error) {
	where, args, err := compile(entity, filter)
	if err != nil {
		return 0, err
	}
	patch, err := json.Marshal(set)
	if err != nil {
		return 0, fmt.Errorf("encode %s patch: %w", entity, err)
	}
	args = append(args, patch)
	tag, err := e.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE records r0 SET doc = r0.doc || $%d WHERE %s`, len(args), where), args...)
	if err != nil {
		return 0, fmt.Errorf("update %s records: %w", entity, err)
	}
	return int(tag.RowsAffected()), nil
}

func (e *Engine) Delete(ctx context.Context, entity string, filter storage.Filter) (int, error) {
	where, args, err := compile(entity, filter)
	if err != nil {
		return 0, err
	}
	tag, err := e.pool.Exec(ctx, `DELETE FROM records r0 WHERE `+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s records: %w", entity, err)
	}
	return int(tag.RowsAffected()), nil
}

// compile builds the WHERE clause against alias r0: entity match, optional
// id match, one JSONB containment predicate for plain keys, and a nested
// EXISTS per dotted relation key.
func compile(entity string, filter storage.Filter) (string, []any, error) {
	c := &compiler{}
	clauses := []string{"r0.entity = " + c.arg(entity)}

	doc := make(map[string]any)
	for k, v := range filter {
		if k == "id" {
			clauses = append(clauses, "r0.id = "+c.arg(fmt.Sprint(v)))
			continue
		}
		if strings.Contains(k, ".") {
			clause, err := c.relationClause("r0", strings.Split(k, "."), v)
			if err != nil {
				return "", nil, err
			}
			clauses = append(clauses, clause)
			continue
		}
		doc[k] = normalize(v)
	}
	if len(doc) > 0 {
		contained, err := json.Marshal(doc)
		if err != nil {
			return "", nil, fmt.Errorf("encode filter: %w", err)
		}
		clauses = append(clauses, "r0.doc @> "+c.arg(contained))
	}
	return strings.Join(clauses, " AND "), c.args, nil
}

type compiler struct {
	args  []any
	alias int
}

func (c *compiler) arg(v any) string {
	c.args = append(c.args, v)
	return fmt.Sprintf("$%d", len(c.args))
}

// relationClause compiles ["user", "tenant_id"] relative to parent into an
// EXISTS over the owner record, recursing for deeper chains.
func (c *compiler) relationClause(parent string, path []string, value any) (string, error) {
	relation := path[0]
	c.alias++
	alias := fmt.Sprintf("r%d", c.alias)

	var inner string
	if len(path) == 2 {
		contained, err := json.Marshal(map[string]any{path[1]: normalize(value)})
		if err != nil {
			return "", fmt.Errorf("encode filter: %w", err)
		}
		inner = alias + ".doc @> " + c.arg(contained)
	} else {
		var err error
		inner, err = c.relationClause(alias, path[1:], value)
		if err != nil {
			return "", err
		}
	}

	return fmt.Sprintf(
		"EXISTS (SELECT 1 FROM records %s WHERE %s.entity = %s AND %s.id::text = %s.doc->>%s AND %s)",
		alias, alias, c.arg(relation), alias, parent, c.arg(relation+"_id"), inner,
	), nil
}

// normalize converts typed identifiers to their canonical string form so a
// uuid-typed filter value matches the string stored in the document.
func normalize(v any) any {
	switch t := v.(type) {
	case fmt.Stringer:
		return t.String()
	default:
		return v
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*storage.Record, error) {
	var (
		rawID string
		doc   []byte
	)
	if err := row.Scan(&rawID, &doc); err != nil {
		return nil, err
	}
	recordID, err := id.ParseRecordID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored record id: %w", err)
	}
	fields := make(map[string]any)
	if len(doc) > 0 {
		if err := json.Unmarshal(doc, &fields); err != nil {
			return nil, fmt.Errorf("decode record doc: %w", err)
		}
	}
	return &storage.Record{ID: recordID, Fields: fields}, nil
}
