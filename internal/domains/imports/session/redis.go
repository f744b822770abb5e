package session

import (
	"context"
	"fmt"
	"time"

	"marketplace-backend/internal/domains/imports/model"
	"marketplace-backend/pkg/cache"
)

const (
	sessionKeyPrefix = "import:session:"
	commitKeySuffix  = ":commit"
)

// RedisStore keeps sessions in Redis so any API instance can serve the
// commit call. Expiry rides on the key TTL.
type RedisStore struct {
	cache cache.Cache
}

func NewRedisStore(c cache.Cache) *RedisStore {
	return &RedisStore{cache: c}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func (r *RedisStore) Create(ctx context.Context, s *model.ImportSession) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return model.ErrSessionExpired
	}
	if err := r.cache.Set(ctx, sessionKey(s.ID), s, ttl); err != nil {
		return fmt.Errorf("store session %s: %w", s.ID, err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*model.ImportSession, error) {
	var s model.ImportSession
	found, err := r.cache.Get(ctx, sessionKey(id), &s)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if !found {
		return nil, model.ErrSessionNotFound
	}
	// Key TTL normally handles this; double-check for clock skew.
	if s.IsExpired() {
		_ = r.cache.Delete(ctx, sessionKey(id))
		return nil, model.ErrSessionExpired
	}
	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.cache.Delete(ctx, sessionKey(id), sessionKey(id)+commitKeySuffix)
}

// BeginCommit takes a SETNX lock scoped to the session's remaining TTL.
// The second concurrent caller fails to set the key and loses.
func (r *RedisStore) BeginCommit(ctx context.Context, id string) error {
	s, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if s.Status != model.SessionStatusPending {
		return model.ErrSessionCommitting
	}

	ttl := time.Until(s.ExpiresAt)
	ok, err := r.cache.SetNX(ctx, sessionKey(id)+commitKeySuffix, 1, ttl)
	if err != nil {
		return fmt.Errorf("acquire commit lock %s: %w", id, err)
	}
	if !ok {
		return model.ErrSessionCommitting
	}

	s.Status = model.SessionStatusCommitting
	if err := r.cache.Set(ctx, sessionKey(id), s, ttl); err != nil {
		return fmt.Errorf("update session %s: %w", id, err)
	}
	return nil
}

// Sweep is a no-op: Redis evicts expired keys natively.
func (r *RedisStore) Sweep(_ context.Context) int {
	return 0
}
