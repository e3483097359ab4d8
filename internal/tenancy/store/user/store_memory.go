package user

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"wayfare/internal/tenancy/models"
	id "wayfare/pkg/domain"
	"wayfare/pkg/platform/sentinel"
)

type emailKey struct {
	tenant id.TenantID
	email  string
}

// InMemory is a mutex-guarded user store for development and tests.
type InMemory struct {
	mu      sync.RWMutex
	users   map[id.UserID]*models.User
	byEmail map[emailKey]id.UserID
}

func NewInMemory() *InMemory {
	return &InMemory{
		users:   make(map[id.UserID]*models.User),
		byEmail: make(map[emailKey]id.UserID),
	}
}

func key(tenantID id.TenantID, email string) emailKey {
	return emailKey{tenant: tenantID, email: strings.ToLower(email)}
}

func (s *InMemory) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(u.TenantID, u.Email)
	if _, taken := s.byEmail[k]; taken {
		return fmt.Errorf("user email %q in tenant %s: %w", u.Email, u.TenantID, sentinel.ErrAlreadyUsed)
	}
	if _, exists := s.users[u.ID]; exists {
		return fmt.Errorf("user %s: %w", u.ID, sentinel.ErrConflict)
	}

	cp := *u
	s.users[u.ID] = &cp
	s.byEmail[k] = u.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, sentinel.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (s *InMemory) FindByEmail(_ context.Context, tenantID id.TenantID, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.byEmail[key(tenantID, email)]
	if !ok {
		return nil, fmt.Errorf("user email %q in tenant %s: %w", email, tenantID, sentinel.ErrNotFound)
	}
	cp := *s.users[userID]
	return &cp, nil
}

func (s *InMemory) ListByTenant(_ context.Context, tenantID id.TenantID) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.User
	for _, u := range s.users {
		if u.TenantID == tenantID {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemory) Update(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.users[u.ID]
	if !ok {
		return fmt.Errorf("user %s: %w", u.ID, sentinel.ErrNotFound)
	}
	// Tenant membership is immutable; moving a user between tenants is a
	// delete-and-recreate operation.
	if cur.TenantID != u.TenantID {
		return fmt.Errorf("user tenant binding: %w", sentinel.ErrInvalidState)
	}
	if !strings.EqualFold(cur.Email, u.Email) {
		k := key(u.TenantID, u.Email)
		if _, taken := s.byEmail[k]; taken {
			return fmt.Errorf("user email %q in tenant %s: %w", u.Email, u.TenantID, sentinel.ErrAlreadyUsed)
		}
		delete(s.byEmail, key(cur.TenantID, cur.Email))
		s.byEmail[k] = u.ID
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}
