package submission

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/trialiq-server/internal/domain"
)

// MemoryStore keeps submissions in process memory. Writes and reads are
// serialized by a RWMutex, so a query never observes a half-appended entry.
type MemoryStore struct {
	mu    sync.RWMutex
	subs  []*domain.Submission
	index map[string]int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: make(map[string]int)}
}

// Append stores a copy of the submission, assigning an ID if it has none.
func (m *MemoryStore) Append(ctx context.Context, s *domain.Submission) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stored := cloneSubmission(s)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.index[stored.ID]; exists {
		return "", fmt.Errorf("submission %s already exists", stored.ID)
	}
	m.index[stored.ID] = len(m.subs)
	m.subs = append(m.subs, stored)
	return stored.ID, nil
}

// Query returns copies of the matching submissions, oldest first.
func (m *MemoryStore) Query(ctx context.Context, filter domain.SubmissionFilter) ([]*domain.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	matched := filterAndSort(m.subs, filter)
	m.mu.RUnlock()

	out := make([]*domain.Submission, len(matched))
	for i, s := range matched {
		out[i] = cloneSubmission(s)
	}
	return out, nil
}

// Get returns a copy of one submission or ErrNotFound.
func (m *MemoryStore) Get(ctx context.Context, id string) (*domain.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.index[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneSubmission(m.subs[i]), nil
}

// Count returns the number of stored submissions.
func (m *MemoryStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs), nil
}

// ExportJSON writes every submission as a JSON export.
func (m *MemoryStore) ExportJSON(ctx context.Context, w io.Writer) error {
	all, err := m.Query(ctx, domain.SubmissionFilter{})
	if err != nil {
		return err
	}
	return WriteExport(w, all)
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
