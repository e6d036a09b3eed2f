package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/trialiq-server/internal/domain"
)

// RedisStore shares sessions across service instances. Each session is a
// JSON value under <prefix><id> with a sliding TTL.
type RedisStore struct {
	redis  *redis.Client
	prefix string
	ttl    time.Duration
	log    *logrus.Logger
}

// NewRedisStore connects to cfg.RedisURL and verifies the connection.
func NewRedisStore(ctx context.Context, cfg domain.SessionConfig, logger *logrus.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreFromClient(client, cfg, logger), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, cfg domain.SessionConfig, logger *logrus.Logger) *RedisStore {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "trialiq:session:"
	}
	return &RedisStore{redis: client, prefix: prefix, ttl: ttl, log: logger}
}

// Get loads a session and refreshes its TTL.
func (r *RedisStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	key := r.key(id)
	val, err := r.redis.GetEx(ctx, key, r.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var s domain.Session
	if err := json.Unmarshal(val, &s); err != nil {
		r.log.WithError(err).WithField("session_id", id).Warn("Dropping corrupted session")
		r.redis.Del(ctx, key)
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	if s.Answers == nil {
		s.Answers = domain.AnswerSet{}
	}
	return &s, nil
}

// Put writes the session with a fresh TTL.
func (r *RedisStore) Put(ctx context.Context, s *domain.Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("session id is required")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.redis.Set(ctx, r.key(s.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Delete removes a session.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.redis.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (r *RedisStore) Close() error {
	return r.redis.Close()
}

func (r *RedisStore) key(id string) string {
	return r.prefix + id
}
