package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"wayfare/internal/tenancy/models"
	id "wayfare/pkg/domain"
	"wayfare/pkg/platform/sentinel"
)

type UserStoreSuite struct {
	suite.Suite
	store   *InMemory
	ctx     context.Context
	now     time.Time
	tenantA id.TenantID
	tenantB id.TenantID
}

func (s *UserStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s.tenantA = id.TenantID(uuid.New())
	s.tenantB = id.TenantID(uuid.New())
}

func (s *UserStoreSuite) newUser(tenantID id.TenantID, email string, designation models.Designation) *models.User {
	u, err := models.NewUser(id.UserID(uuid.New()), tenantID, email, designation, s.now)
	s.Require().NoError(err)
	return u
}

func (s *UserStoreSuite) TestCreateAndFind() {
	u := s.newUser(s.tenantA, "ada@acme.test", models.DesignationAdmin)
	s.Require().NoError(s.store.Create(s.ctx, u))

	s.Run("by id", func() {
		got, err := s.store.FindByID(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Equal(s.tenantA, got.TenantID)
		s.Equal(models.DesignationAdmin, got.Designation)
	})

	s.Run("by email is case-insensitive within tenant", func() {
		got, err := s.store.FindByEmail(s.ctx, s.tenantA, "ADA@acme.test")
		s.Require().NoError(err)
		s.Equal(u.ID, got.ID)
	})

	s.Run("email lookup does not cross tenants", func() {
		_, err := s.store.FindByEmail(s.ctx, s.tenantB, "ada@acme.test")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *UserStoreSuite) TestEmailUniquenessPerTenant() {
	s.Require().NoError(s.store.Create(s.ctx, s.newUser(s.tenantA, "ada@acme.test", models.DesignationMember)))

	s.Run("duplicate within tenant rejected", func() {
		dup := s.newUser(s.tenantA, "ada@acme.test", models.DesignationMember)
		s.ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrAlreadyUsed)
	})

	s.Run("same email in another tenant allowed", func() {
		other := s.newUser(s.tenantB, "ada@acme.test", models.DesignationMember)
		s.NoError(s.store.Create(s.ctx, other))
	})
}

func (s *UserStoreSuite) TestListByTenant() {
	s.Require().NoError(s.store.Create(s.ctx, s.newUser(s.tenantA, "a@acme.test", models.DesignationMember)))
	s.Require().NoError(s.store.Create(s.ctx, s.newUser(s.tenantA, "b@acme.test", models.DesignationAuthor)))
	s.Require().NoError(s.store.Create(s.ctx, s.newUser(s.tenantB, "c@beta.test", models.DesignationMember)))

	users, err := s.store.ListByTenant(s.ctx, s.tenantA)
	s.Require().NoError(err)
	s.Len(users, 2)
	for _, u := range users {
		s.Equal(s.tenantA, u.TenantID)
	}
}

func (s *UserStoreSuite) TestUpdate() {
	u := s.newUser(s.tenantA, "ada@acme.test", models.DesignationMember)
	s.Require().NoError(s.store.Create(s.ctx, u))

	s.Run("designation change", func() {
		u.Designation = models.DesignationAuthor
		u.UpdatedAt = s.now.Add(time.Hour)
		s.Require().NoError(s.store.Update(s.ctx, u))

		got, err := s.store.FindByID(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Equal(models.DesignationAuthor, got.Designation)
	})

	s.Run("tenant rebinding rejected", func() {
		moved := *u
		moved.TenantID = s.tenantB
		s.ErrorIs(s.store.Update(s.ctx, &moved), sentinel.ErrInvalidState)
	})

	s.Run("email change maintains index", func() {
		u.Email = "ada.l@acme.test"
		s.Require().NoError(s.store.Update(s.ctx, u))

		_, err := s.store.FindByEmail(s.ctx, s.tenantA, "ada@acme.test")
		s.ErrorIs(err, sentinel.ErrNotFound)

		got, err := s.store.FindByEmail(s.ctx, s.tenantA, "ada.l@acme.test")
		s.Require().NoError(err)
		s.Equal(u.ID, got.ID)
	})

	s.Run("unknown user", func() {
		ghost := s.newUser(s.tenantA, "ghost@acme.test", models.DesignationMember)
		s.ErrorIs(s.store.Update(s.ctx, ghost), sentinel.ErrNotFound)
	})
}

func TestUserStoreSuite(t *testing.T) {
	suite.Run(t, new(UserStoreSuite))
}
