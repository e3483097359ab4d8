package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	id "wayfare/pkg/domain"
	"wayfare/pkg/platform/sentinel"
)

// InMemoryEngine keeps documents per entity under one mutex. It favors
// clarity over performance; filters scan.
type InMemoryEngine struct {
	mu       sync.RWMutex
	entities map[string]map[id.RecordID]*Record
}

func NewInMemoryEngine() *InMemoryEngine {
	return &InMemoryEngine{entities: make(map[string]map[id.RecordID]*Record)}
}

func (e *InMemoryEngine) Create(_ context.Context, entity string, rec *Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	records, ok := e.entities[entity]
	if !ok {
		records = make(map[id.RecordID]*Record)
		e.entities[entity] = records
	}
	if _, exists := records[rec.ID]; exists {
		return fmt.Errorf("%s record %s: %w", entity, rec.ID, sentinel.ErrConflict)
	}
	records[rec.ID] = rec.Clone()
	return nil
}

func (e *InMemoryEngine) FindOne(_ context.Context, entity string, filter Filter) (*Record, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, rec := range e.entities[entity] {
		if e.matchesLocked(rec, filter) {
			return rec.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%s record: %w", entity, sentinel.ErrNotFound)
}

func (e *InMemoryEngine) Find(_ context.Context, entity string, filter Filter) ([]*Record, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []*Record
	for _, rec := range e.entities[entity] {
		if e.matchesLocked(rec, filter) {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

func (e *InMemoryEngine) Count(_ context.Context, entity string, filter Filter) (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	n := 0
	for _, rec := range e.entities[entity] {
		if e.matchesLocked(rec, filter) {
			n++
		}
	}
	return n, nil
}

func (e *InMemoryEngine) Update(_ context.Context, entity string, filter Filter, set map[string]any) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for _, rec := range e.entities[entity] {
		if e.matchesLocked(rec, filter) {
			for k, v := range set {
				rec.Fields[k] = v
			}
			n++
		}
	}
	return n, nil
}

func (e *InMemoryEngine) Delete(_ context.Context, entity string, filter Filter) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for recID, rec := range e.entities[entity] {
		if e.matchesLocked(rec, filter) {
			delete(e.entities[entity], recID)
			n++
		}
	}
	return n, nil
}

// matchesLocked compares by canonical string form, so a uuid-typed filter
// value equals its stored string representation. Dotted keys walk relations:
// "user.tenant_id" follows the record's user_id to the user entity and
// matches tenant_id there. A broken link never matches.
func (e *InMemoryEngine) matchesLocked(rec *Record, filter Filter) bool {
	for k, want := range filter {
		if k == "id" {
			if fmt.Sprint(want) != rec.ID.String() {
				return false
			}
			continue
		}
		if rel, rest, dotted := strings.Cut(k, "."); dotted {
			owner := e.ownerLocked(rec, rel)
			if owner == nil || !e.matchesLocked(owner, Filter{rest: want}) {
				return false
			}
			continue
		}
		got, ok := rec.Fields[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func (e *InMemoryEngine) ownerLocked(rec *Record, relation string) *Record {
	raw, ok := rec.Fields[relation+"_id"]
	if !ok {
		return nil
	}
	ownerID, err := id.ParseRecordID(fmt.Sprint(raw))
	if err != nil {
		return nil
	}
	return e.entities[relation][ownerID]
}
