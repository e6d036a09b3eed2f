// Package session keeps in-progress intake sessions between requests.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/trialiq-server/internal/domain"
)

// defaultTTL applies when the configuration leaves the TTL unset.
const defaultTTL = 2 * time.Hour

// MemoryStore is a single-node session registry. Sessions expire after the
// configured TTL and the least recently used ones are evicted past MaxSessions.
type MemoryStore struct {
	cache *expirable.LRU[string, *domain.Session]
	log   *logrus.Logger
}

// NewMemoryStore creates an in-process session registry.
func NewMemoryStore(cfg domain.SessionConfig, logger *logrus.Logger) *MemoryStore {
	onEvict := func(id string, s *domain.Session) {
		logger.WithFields(logrus.Fields{
			"session_id": id,
			"step":       s.Step.String(),
		}).Debug("Session evicted")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &MemoryStore{
		cache: expirable.NewLRU[string, *domain.Session](cfg.MaxSessions, onEvict, ttl),
		log:   logger,
	}
}

// Get returns a copy of the stored session.
func (m *MemoryStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, ok := m.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	return s.Clone(), nil
}

// Put stores a copy of s, replacing any previous version.
func (m *MemoryStore) Put(ctx context.Context, s *domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.ID == "" {
		return fmt.Errorf("session id is required")
	}
	m.cache.Add(s.ID, s.Clone())
	return nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.cache.Remove(id)
	return nil
}

// Len reports the number of live sessions.
func (m *MemoryStore) Len() int {
	return m.cache.Len()
}
