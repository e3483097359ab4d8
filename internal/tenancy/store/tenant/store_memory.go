package tenant

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"wayfare/internal/tenancy/models"
	id "wayfare/pkg/domain"
	"wayfare/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded tenant store for development and tests.
type InMemory struct {
	mu       sync.RWMutex
	tenants  map[id.TenantID]*models.Tenant
	bySlug   map[string]id.TenantID
	byDomain map[string]id.TenantID
}

func NewInMemory() *InMemory {
	return &InMemory{
		tenants:  make(map[id.TenantID]*models.Tenant),
		bySlug:   make(map[string]id.TenantID),
		byDomain: make(map[string]id.TenantID),
	}
}

func (s *InMemory) Create(_ context.Context, t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slug := strings.ToLower(t.Slug)
	if _, taken := s.bySlug[slug]; taken {
		return fmt.Errorf("tenant slug %q: %w", t.Slug, sentinel.ErrAlreadyUsed)
	}
	domain := strings.ToLower(t.Domain)
	if domain != "" {
		if _, taken := s.byDomain[domain]; taken {
			return fmt.Errorf("tenant domain %q: %w", t.Domain, sentinel.ErrAlreadyUsed)
		}
	}
	if _, exists := s.tenants[t.ID]; exists {
		return fmt.Errorf("tenant %s: %w", t.ID, sentinel.ErrConflict)
	}

	cp := *t
	s.tenants[t.ID] = &cp
	s.bySlug[slug] = t.ID
	if domain != "" {
		s.byDomain[domain] = t.ID
	}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[tenantID]
	if !ok {
		return nil, fmt.Errorf("tenant %s: %w", tenantID, sentinel.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (s *InMemory) FindBySlug(_ context.Context, slug string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenantID, ok := s.bySlug[strings.ToLower(slug)]
	if !ok {
		return nil, fmt.Errorf("tenant slug %q: %w", slug, sentinel.ErrNotFound)
	}
	cp := *s.tenants[tenantID]
	return &cp, nil
}

func (s *InMemory) FindByDomain(_ context.Context, domain string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenantID, ok := s.byDomain[strings.ToLower(domain)]
	if !ok {
		return nil, fmt.Errorf("tenant domain %q: %w", domain, sentinel.ErrNotFound)
	}
	cp := *s.tenants[tenantID]
	return &cp, nil
}

func (s *InMemory) List(_ context.Context) ([]*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

// Execute runs validate then mutate on the tenant while holding the write
// lock, so the validation still holds when the mutation lands.
func (s *InMemory) Execute(_ context.Context, tenantID id.TenantID, validate func(*models.Tenant) error, mutate func(*models.Tenant)) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[tenantID]
	if !ok {
		return nil, fmt.Errorf("tenant %s: %w", tenantID, sentinel.ErrNotFound)
	}
	if validate != nil {
		if err := validate(t); err != nil {
			return nil, err
		}
	}
	if mutate != nil {
		mutate(t)
	}
	cp := *t
	return &cp, nil
}
