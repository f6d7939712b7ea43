package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/waypoint/pkg/domain"
)

// Store implements ports.TimelineStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[domain.RunID]domain.Timeline
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[domain.RunID]domain.Timeline),
	}
}

// Save persists the timeline in memory.
func (s *Store) Save(ctx context.Context, run domain.RunID, tl *domain.Timeline) error {
	// Copy on write so later edits by the caller do not leak into the store.
	copied := tl.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[run] = copied
	return nil
}

// Load retrieves the timeline from memory.
func (s *Store) Load(ctx context.Context, run domain.RunID) (*domain.Timeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tl, ok := s.data[run]
	if !ok {
		return nil, domain.ErrTimelineNotFound
	}

	ret := tl.Clone()
	return &ret, nil
}

// Delete removes the timeline.
func (s *Store) Delete(ctx context.Context, run domain.RunID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, run)
	return nil
}

// List returns the stored runs, sorted.
func (s *Store) List(ctx context.Context) ([]domain.RunID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]domain.RunID, 0, len(s.data))
	for id := range s.data {
		runs = append(runs, id)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i] < runs[j] })
	return runs, nil
}
