package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// InMemoryStore is a volatile Store backed by a process local map. It is safe
// for concurrent access; returned runs are clones.
type InMemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*Run
	opts Options
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore(optFns ...func(o *Options)) *InMemoryStore {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &InMemoryStore{runs: make(map[string]*Run), opts: opts}
}

// Create implements Store.
func (s *InMemoryStore) Create(_ context.Context, run Run) (*Run, error) {
	if run.ID == "" {
		return nil, fmt.Errorf("create run: empty run id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.runs[run.ID]; ok {
		return existing.Clone(), nil
	}

	now := s.opts.Now()
	stored := run.Clone()
	stored.Created, stored.Updated = now, now
	s.runs[run.ID] = stored

	return stored.Clone(), nil
}

// Get implements Store.
func (s *InMemoryStore) Get(_ context.Context, runID string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run.Clone(), nil
}

// ListRunIDs implements Store.
func (s *InMemoryStore) ListRunIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	runs := make([]*Run, 0, len(s.runs))
	for _, r := range s.runs {
		if r.UserID == userID {
			runs = append(runs, r)
		}
	}
	s.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].Created.Equal(runs[j].Created) {
			return runs[i].Created.After(runs[j].Created)
		}
		return runs[i].ID > runs[j].ID
	})

	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	return ids, nil
}

// Append implements Store.
func (s *InMemoryStore) Append(_ context.Context, runID string, msgs ...Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	now := s.opts.Now()
	for _, m := range msgs {
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		run.Messages = append(run.Messages, m)
	}
	run.Updated = now

	return nil
}
