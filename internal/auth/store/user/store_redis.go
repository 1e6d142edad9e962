package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"safesupport/internal/auth/models"
	"safesupport/pkg/platform/sentinel"
)

const (
	userKeyPrefix  = "safesupport:user:"
	emailKeyPrefix = "safesupport:user-email:"

	// maxTxRetries bounds optimistic retries when a watched key changes.
	maxTxRetries = 5
)

// RedisUserStore stores each user as a JSON string with a secondary
// email->id key. Writes use WATCH/MULTI so a concurrent update is retried
// instead of silently overwritten.
type RedisUserStore struct {
	client *redis.Client
}

func NewRedisUserStore(client *redis.Client) *RedisUserStore {
	return &RedisUserStore{client: client}
}

func userKey(id string) string { return userKeyPrefix + id }

func emailKey(email string) string { return emailKeyPrefix + models.NormalizeEmail(email) }

func (s *RedisUserStore) Create(ctx context.Context, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	ek := emailKey(user.Email)
	uk := userKey(user.ID)

	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, ek, uk).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return sentinel.ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, uk, data, 0)
			pipe.Set(ctx, ek, user.ID, 0)
			return nil
		})
		return err
	}
	return s.watch(ctx, txf, ek, uk)
}

func (s *RedisUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	return getUser(ctx, s.client, id)
}

func (s *RedisUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	id, err := s.client.Get(ctx, emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user email: %w", err)
	}
	return getUser(ctx, s.client, id)
}

func (s *RedisUserStore) Update(ctx context.Context, id string, fn func(*models.User) error) (*models.User, error) {
	uk := userKey(id)
	var updated *models.User

	txf := func(tx *redis.Tx) error {
		current, err := getUser(ctx, tx, id)
		if err != nil {
			return err
		}
		next := current.Clone()
		if err := fn(next); err != nil {
			return err
		}
		next.ID = id
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode user: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, uk, data, 0)
			return nil
		})
		if err == nil {
			updated = next
		}
		return err
	}
	if err := s.watch(ctx, txf, uk); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *RedisUserStore) watch(ctx context.Context, txf func(*redis.Tx) error, keys ...string) error {
	for range maxTxRetries {
		err := s.client.Watch(ctx, txf, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("user update contended: %w", redis.TxFailedErr)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getUser(ctx context.Context, c getter, id string) (*models.User, error) {
	data, err := c.Get(ctx, userKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	var u models.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}
