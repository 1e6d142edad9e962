package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"safesupport/internal/auth/models"
	dErrors "safesupport/pkg/domain-errors"
	"safesupport/pkg/platform/sentinel"
	"safesupport/pkg/requestcontext"
)

// Store is the subset of the user store the contacts list lives in.
type Store interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, id string, fn func(*models.User) error) (*models.User, error)
}

// Service reads and replaces a user's trusted contacts.
type Service struct {
	users  Store
	logger *slog.Logger
}

func New(users Store, logger *slog.Logger) *Service {
	return &Service{users: users, logger: logger}
}

var errUserNotFound = dErrors.New(dErrors.CodeNotFound, "User not found")

// List returns the caller's contacts, never nil.
func (s *Service) List(ctx context.Context, userID string) ([]models.TrustedContact, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "Failed to load trusted contacts")
	}
	if user.TrustedContacts == nil {
		return []models.TrustedContact{}, nil
	}
	return user.TrustedContacts, nil
}

// Replace swaps the whole list. Contacts without an id are given one.
func (s *Service) Replace(ctx context.Context, userID string, contacts []models.TrustedContact) ([]models.TrustedContact, error) {
	next := make([]models.TrustedContact, len(contacts))
	for i, c := range contacts {
		if strings.TrimSpace(c.ID) == "" {
			c.ID = uuid.NewString()
		}
		next[i] = c
	}

	updated, err := s.users.Update(ctx, userID, func(u *models.User) error {
		u.TrustedContacts = next
		return nil
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "Failed to save trusted contacts")
	}

	s.logger.InfoContext(ctx, "trusted contacts saved",
		"user_id", userID,
		"count", len(next),
		"request_id", requestcontext.RequestID(ctx),
	)
	return updated.TrustedContacts, nil
}
