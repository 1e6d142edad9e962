package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"safesupport/internal/auth/models"
	"safesupport/pkg/platform/sentinel"
	"safesupport/pkg/platform/tx"
)

const uniqueViolation = "23505"

// Schema creates the users table. Trusted contacts live in a JSONB column
// because the list is always replaced wholesale.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id               TEXT PRIMARY KEY,
	email            TEXT NOT NULL UNIQUE,
	name             TEXT NOT NULL DEFAULT '',
	phone            TEXT NOT NULL DEFAULT '',
	notify_by_sms    BOOLEAN NOT NULL DEFAULT FALSE,
	is_verified      BOOLEAN NOT NULL DEFAULT FALSE,
	password_hash    TEXT NOT NULL,
	trusted_contacts JSONB NOT NULL DEFAULT '[]'::jsonb
)`

const selectColumns = `id, email, name, phone, notify_by_sms, is_verified, password_hash, trusted_contacts`

// PostgresUserStore persists users in PostgreSQL.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

// Migrate applies Schema.
func (s *PostgresUserStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate users: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) Create(ctx context.Context, user *models.User) error {
	contacts, err := encodeContacts(user.TrustedContacts)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (`+selectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, models.NormalizeEmail(user.Email), user.Name, user.Phone,
		user.NotifyBySMS, user.IsVerified, user.PasswordHash, contacts,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.queryOne(ctx, s.db, `SELECT `+selectColumns+` FROM users WHERE id = $1`, id)
}

func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.queryOne(ctx, s.db, `SELECT `+selectColumns+` FROM users WHERE email = $1`, models.NormalizeEmail(email))
}

// Update locks the row, applies fn and writes the result in one transaction.
func (s *PostgresUserStore) Update(ctx context.Context, id string, fn func(*models.User) error) (*models.User, error) {
	var updated *models.User
	err := tx.Run(ctx, s.db, func(ctx context.Context) error {
		sqlTx, _ := tx.From(ctx)
		current, err := s.queryOne(ctx, sqlTx, `SELECT `+selectColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}
		if err := fn(current); err != nil {
			return err
		}
		contacts, err := encodeContacts(current.TrustedContacts)
		if err != nil {
			return err
		}
		_, err = sqlTx.ExecContext(ctx, `
			UPDATE users SET name = $2, phone = $3, notify_by_sms = $4, is_verified = $5,
				password_hash = $6, trusted_contacts = $7
			WHERE id = $1`,
			id, current.Name, current.Phone, current.NotifyBySMS, current.IsVerified,
			current.PasswordHash, contacts,
		)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		current.ID = id
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresUserStore) queryOne(ctx context.Context, q queryer, query string, arg string) (*models.User, error) {
	var (
		u        models.User
		contacts []byte
	)
	err := q.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.Name, &u.Phone, &u.NotifyBySMS, &u.IsVerified, &u.PasswordHash, &contacts,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	if err := json.Unmarshal(contacts, &u.TrustedContacts); err != nil {
		return nil, fmt.Errorf("decode trusted contacts: %w", err)
	}
	return &u, nil
}

func encodeContacts(contacts []models.TrustedContact) ([]byte, error) {
	if contacts == nil {
		contacts = []models.TrustedContact{}
	}
	data, err := json.Marshal(contacts)
	if err != nil {
		return nil, fmt.Errorf("encode trusted contacts: %w", err)
	}
	return data, nil
}
