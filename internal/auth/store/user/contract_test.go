package user

import (
	"context"
	"errors"

	"github.com/stretchr/testify/suite"

	"safesupport/internal/auth/models"
	"safesupport/pkg/platform/sentinel"
)

type userStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id string, fn func(*models.User) error) (*models.User, error)
}

// storeContractSuite is shared by every backend; newStore must return an
// empty store.
type storeContractSuite struct {
	suite.Suite
	newStore func() userStore
}

func jane() *models.User {
	return &models.User{
		ID:           "1700000000001",
		Email:        "Jane.Doe@example.com",
		Name:         "Jane",
		PasswordHash: "$2a$10$hash",
		TrustedContacts: []models.TrustedContact{
			{ID: "c1", Name: "Mum", Phone: "+15550001", Relationship: "parent"},
		},
	}
}

func (s *storeContractSuite) TestLookupBehavior() {
	ctx := context.Background()

	s.Run("returns user by ID and email", func() {
		store := s.newStore()
		s.Require().NoError(store.Create(ctx, jane()))

		byID, err := store.FindByID(ctx, "1700000000001")
		s.Require().NoError(err)
		s.Equal("Jane", byID.Name)
		s.Len(byID.TrustedContacts, 1)

		byEmail, err := store.FindByEmail(ctx, "  jane.doe@EXAMPLE.com ")
		s.Require().NoError(err)
		s.Equal(byID.ID, byEmail.ID)
	})

	s.Run("returns ErrNotFound for unknown keys", func() {
		store := s.newStore()
		_, err := store.FindByID(ctx, "missing")
		s.ErrorIs(err, sentinel.ErrNotFound)
		_, err = store.FindByEmail(ctx, "missing@example.com")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *storeContractSuite) TestEmailUniqueness() {
	ctx := context.Background()
	store := s.newStore()
	s.Require().NoError(store.Create(ctx, jane()))

	dup := jane()
	dup.ID = "1700000000002"
	dup.Email = "jane.doe@example.com"
	s.ErrorIs(store.Create(ctx, dup), sentinel.ErrConflict)
}

func (s *storeContractSuite) TestUpdate() {
	ctx := context.Background()

	s.Run("applies the mutation and persists it", func() {
		store := s.newStore()
		s.Require().NoError(store.Create(ctx, jane()))

		updated, err := store.Update(ctx, "1700000000001", func(u *models.User) error {
			u.IsVerified = true
			u.TrustedContacts = []models.TrustedContact{}
			return nil
		})
		s.Require().NoError(err)
		s.True(updated.IsVerified)

		found, err := store.FindByID(ctx, "1700000000001")
		s.Require().NoError(err)
		s.True(found.IsVerified)
		s.Empty(found.TrustedContacts)
	})

	s.Run("leaves the record untouched when the mutation fails", func() {
		store := s.newStore()
		s.Require().NoError(store.Create(ctx, jane()))
		boom := errors.New("boom")

		_, err := store.Update(ctx, "1700000000001", func(u *models.User) error {
			u.Name = "changed"
			return boom
		})
		s.ErrorIs(err, boom)

		found, err := store.FindByID(ctx, "1700000000001")
		s.Require().NoError(err)
		s.Equal("Jane", found.Name)
	})

	s.Run("returns ErrNotFound for unknown users", func() {
		store := s.newStore()
		_, err := store.Update(ctx, "missing", func(*models.User) error { return nil })
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}
