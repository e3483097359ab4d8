package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"wayfare/internal/tenancy/models"
	id "wayfare/pkg/domain"
	dErrors "wayfare/pkg/domain-errors"
	"wayfare/pkg/platform/sentinel"
)

type TenantStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func (s *TenantStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
}

func (s *TenantStoreSuite) newTenant(name, slug, domain string) *models.Tenant {
	t, err := models.NewTenant(id.TenantID(uuid.New()), name, slug, domain, s.now)
	s.Require().NoError(err)
	return t
}

func (s *TenantStoreSuite) TestCreateAndFind() {
	t := s.newTenant("Acme Travel", "acme", "travel.acme.com")
	s.Require().NoError(s.store.Create(s.ctx, t))

	s.Run("by id", func() {
		got, err := s.store.FindByID(s.ctx, t.ID)
		s.Require().NoError(err)
		s.Equal(t.Slug, got.Slug)
	})

	s.Run("by slug is case-insensitive", func() {
		got, err := s.store.FindBySlug(s.ctx, "ACME")
		s.Require().NoError(err)
		s.Equal(t.ID, got.ID)
	})

	s.Run("by domain is case-insensitive", func() {
		got, err := s.store.FindByDomain(s.ctx, "Travel.Acme.Com")
		s.Require().NoError(err)
		s.Equal(t.ID, got.ID)
	})
}

func (s *TenantStoreSuite) TestNotFound() {
	_, err := s.store.FindByID(s.ctx, id.TenantID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindBySlug(s.ctx, "ghost")
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByDomain(s.ctx, "ghost.example.com")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *TenantStoreSuite) TestUniqueness() {
	first := s.newTenant("Acme Travel", "acme", "travel.acme.com")
	s.Require().NoError(s.store.Create(s.ctx, first))

	s.Run("duplicate slug rejected", func() {
		dup := s.newTenant("Other", "ACME", "")
		s.ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrAlreadyUsed)
	})

	s.Run("duplicate domain rejected", func() {
		dup := s.newTenant("Other", "other", "TRAVEL.ACME.COM")
		s.ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrAlreadyUsed)
	})

	s.Run("empty domains do not collide", func() {
		a := s.newTenant("A", "tenant-a", "")
		b := s.newTenant("B", "tenant-b", "")
		s.NoError(s.store.Create(s.ctx, a))
		s.NoError(s.store.Create(s.ctx, b))
	})
}

func (s *TenantStoreSuite) TestExecute() {
	t := s.newTenant("Acme Travel", "acme", "")
	s.Require().NoError(s.store.Create(s.ctx, t))

	s.Run("deactivate then reactivate", func() {
		later := s.now.Add(time.Hour)
		updated, err := s.store.Execute(s.ctx, t.ID,
			func(cur *models.Tenant) error { return cur.CanDeactivate() },
			func(cur *models.Tenant) { cur.ApplyDeactivation(later) },
		)
		s.Require().NoError(err)
		s.Equal(models.TenantStatusInactive, updated.Status)
		s.Equal(later, updated.UpdatedAt)

		updated, err = s.store.Execute(s.ctx, t.ID,
			func(cur *models.Tenant) error { return cur.CanReactivate() },
			func(cur *models.Tenant) { cur.ApplyReactivation(later.Add(time.Hour)) },
		)
		s.Require().NoError(err)
		s.True(updated.IsActive())
	})

	s.Run("validation failure leaves state intact", func() {
		_, err := s.store.Execute(s.ctx, t.ID,
			func(cur *models.Tenant) error { return cur.CanReactivate() },
			func(cur *models.Tenant) { cur.ApplyReactivation(s.now) },
		)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

		cur, err := s.store.FindByID(s.ctx, t.ID)
		s.Require().NoError(err)
		s.True(cur.IsActive())
	})

	s.Run("unknown tenant", func() {
		_, err := s.store.Execute(s.ctx, id.TenantID(uuid.New()), nil, nil)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *TenantStoreSuite) TestReturnsCopies() {
	t := s.newTenant("Acme Travel", "acme", "")
	s.Require().NoError(s.store.Create(s.ctx, t))

	got, err := s.store.FindByID(s.ctx, t.ID)
	s.Require().NoError(err)
	got.Name = "mutated"

	again, err := s.store.FindByID(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Equal("Acme Travel", again.Name)
}

func TestTenantStoreSuite(t *testing.T) {
	suite.Run(t, new(TenantStoreSuite))
}
