package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"safesupport/internal/auth/models"
	"safesupport/pkg/platform/sentinel"
)

// usersDocument is the on-disk shape of users.json.
type usersDocument struct {
	Users []*models.User `json:"users"`
}

// FileUserStore keeps every user in a single JSON document. Each mutation is a
// full read-modify-write of the file with no cross-request locking, so two
// concurrent updates can lose one write. The file is replaced by rename so a
// reader never sees a half-written document.
type FileUserStore struct {
	path string
}

// NewFileUserStore creates the document with an empty user list if missing.
func NewFileUserStore(path string) (*FileUserStore, error) {
	s := &FileUserStore{path: path}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := s.save(nil); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat users file: %w", err)
	}
	return s, nil
}

func (s *FileUserStore) load() ([]*models.User, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	var doc usersDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode users file: %w", err)
	}
	return doc.Users, nil
}

func (s *FileUserStore) save(users []*models.User) error {
	if users == nil {
		users = []*models.User{}
	}
	data, err := json.MarshalIndent(usersDocument{Users: users}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode users file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create users dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".users-*.json")
	if err != nil {
		return fmt.Errorf("create temp users file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write users file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close users file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace users file: %w", err)
	}
	return nil
}

func (s *FileUserStore) Create(_ context.Context, user *models.User) error {
	users, err := s.load()
	if err != nil {
		return err
	}
	email := models.NormalizeEmail(user.Email)
	for _, u := range users {
		if u.ID == user.ID || models.NormalizeEmail(u.Email) == email {
			return sentinel.ErrConflict
		}
	}
	return s.save(append(users, user.Clone()))
}

func (s *FileUserStore) FindByID(_ context.Context, id string) (*models.User, error) {
	users, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *FileUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	users, err := s.load()
	if err != nil {
		return nil, err
	}
	email = models.NormalizeEmail(email)
	for _, u := range users {
		if models.NormalizeEmail(u.Email) == email {
			return u, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *FileUserStore) Update(_ context.Context, id string, fn func(*models.User) error) (*models.User, error) {
	users, err := s.load()
	if err != nil {
		return nil, err
	}
	for i, u := range users {
		if u.ID != id {
			continue
		}
		next := u.Clone()
		if err := fn(next); err != nil {
			return nil, err
		}
		next.ID = id
		users[i] = next
		if err := s.save(users); err != nil {
			return nil, err
		}
		return next.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}
