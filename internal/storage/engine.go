// Package storage defines the entity-agnostic document store the isolation
// layer wraps.
//
// Engines are interface-driven to keep the enforcement logic testable and to
// allow swapping in-memory and PostgreSQL persistence without rewiring
// business code. Engines know nothing about tenants; every tenant constraint
// arrives as an ordinary filter key injected upstream.
package storage

import (
	"context"

	id "wayfare/pkg/domain"
)

// Filter is a conjunction of equality constraints on field names. The key
// "id" addresses the record identifier; all other keys address Fields.
//
// Dotted keys traverse relations by convention: "user.tenant_id" follows
// the record's "user_id" field to a record of entity "user" and constrains
// its "tenant_id". A record whose relation link is absent or dangling never
// matches a dotted constraint.
type Filter map[string]any

// Clone returns an independent copy. Callers that augment a filter must
// clone first so the caller's map is never mutated.
func (f Filter) Clone() Filter {
	cp := make(Filter, len(f)+1)
	for k, v := range f {
		cp[k] = v
	}
	return cp
}

// Record is one stored document.
type Record struct {
	ID     id.RecordID
	Fields map[string]any
}

// Clone returns a deep-enough copy for the flat documents engines store.
func (r *Record) Clone() *Record {
	fields := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return &Record{ID: r.ID, Fields: fields}
}

// Engine is the storage contract.
//
// Error contract: FindOne returns sentinel.ErrNotFound (wrapped) when no
// record matches; Create returns sentinel.ErrConflict for a duplicate id.
// Update and Delete report the number of records affected and succeed with
// zero when nothing matches.
type Engine interface {
	Create(ctx context.Context, entity string, rec *Record) error
	FindOne(ctx context.Context, entity string, filter Filter) (*Record, error)
	Find(ctx context.Context, entity string, filter Filter) ([]*Record, error)
	Count(ctx context.Context, entity string, filter Filter) (int, error)
	Update(ctx context.Context, entity string, filter Filter, set map[string]any) (int, error)
	Delete(ctx context.Context, entity string, filter Filter) (int, error)
}
