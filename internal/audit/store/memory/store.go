// Package memory provides an in-memory audit store for development and
// tests. It implements both the append-only entry store and the outbox.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"wayfare/internal/audit"
	id "wayfare/pkg/domain"
)

type Store struct {
	mu      sync.RWMutex
	entries []*audit.Entry
	outbox  []audit.OutboxEntry
}

func New() *Store {
	return &Store{}
}

func (s *Store) Append(ctx context.Context, entry *audit.Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	cp := *entry
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, &cp)
	s.outbox = append(s.outbox, audit.OutboxEntry{
		ID:      entry.ID,
		Key:     entry.TenantID.String(),
		Payload: payload,
	})
	return nil
}

// ListByTenant returns the tenant's entries, newest first.
func (s *Store) ListByTenant(ctx context.Context, tenantID id.TenantID, limit int) ([]*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*audit.Entry
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if s.entries[i].TenantID != tenantID {
			continue
		}
		cp := *s.entries[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) FetchUnpublished(ctx context.Context, limit int) ([]audit.OutboxEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := min(limit, len(s.outbox))
	out := make([]audit.OutboxEntry, n)
	copy(out, s.outbox[:n])
	return out, nil
}

func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	published := make(map[uuid.UUID]struct{}, len(ids))
	for _, entryID := range ids {
		published[entryID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.outbox[:0]
	for _, e := range s.outbox {
		if _, ok := published[e.ID]; !ok {
			kept = append(kept, e)
		}
	}
	s.outbox = kept
	return nil
}
