// Package history keeps one undo/redo timeline per run.
//
// Every run owns an independent (history, step) pair: batches before step are
// visible, batches from step on are undone and can be redone until the next edit
// truncates them. Runs are fixed when the Store is built; naming any other run is a
// programming error and panics.
package history

import (
	"fmt"

	"github.com/aretw0/waypoint/pkg/domain"
)

// Store holds the timelines of all configured runs. It is not safe for concurrent
// use; callers serialise access (see pkg/session).
type Store struct {
	order     []domain.RunID
	timelines map[domain.RunID]*domain.Timeline
}

// New creates a store with an empty timeline for each run, in the given order.
func New(runs ...domain.RunID) *Store {
	s := &Store{
		order:     make([]domain.RunID, 0, len(runs)),
		timelines: make(map[domain.RunID]*domain.Timeline, len(runs)),
	}
	for _, id := range runs {
		if _, dup := s.timelines[id]; dup {
			continue
		}
		s.order = append(s.order, id)
		s.timelines[id] = &domain.Timeline{}
	}
	return s
}

func (s *Store) get(run domain.RunID) *domain.Timeline {
	tl, ok := s.timelines[run]
	if !ok {
		panic(fmt.Errorf("%w: %q", domain.ErrUnknownRun, run))
	}
	return tl
}

// Has reports whether run is one of the configured runs.
func (s *Store) Has(run domain.RunID) bool {
	_, ok := s.timelines[run]
	return ok
}

// Runs returns the configured run IDs in configuration order.
func (s *Store) Runs() []domain.RunID {
	return append([]domain.RunID(nil), s.order...)
}

// BeginEdit discards the undone future of run. It must be called before a new
// gesture is interpreted.
func (s *Store) BeginEdit(run domain.RunID) {
	tl := s.get(run)
	// Nil out the dropped tail so the shapes can be collected.
	for i := tl.Step; i < len(tl.History); i++ {
		tl.History[i] = nil
	}
	tl.History = tl.History[:tl.Step]
}

// Commit appends shape as a new batch and moves the cursor past it.
func (s *Store) Commit(run domain.RunID, shape domain.Shape) {
	tl := s.get(run)
	tl.History = append(tl.History[:tl.Step], domain.Batch{shape})
	tl.Step = len(tl.History)
}

// Undo steps the cursor back. It returns false when there is nothing to undo.
func (s *Store) Undo(run domain.RunID) bool {
	tl := s.get(run)
	if tl.Step == 0 {
		return false
	}
	tl.Step--
	return true
}

// Redo steps the cursor forward. It returns false when there is nothing to redo.
func (s *Store) Redo(run domain.RunID) bool {
	tl := s.get(run)
	if tl.Step >= len(tl.History) {
		return false
	}
	tl.Step++
	return true
}

// CanUndo reports whether Undo would move the cursor.
func (s *Store) CanUndo(run domain.RunID) bool {
	return s.get(run).Step > 0
}

// CanRedo reports whether Redo would move the cursor.
func (s *Store) CanRedo(run domain.RunID) bool {
	tl := s.get(run)
	return tl.Step < len(tl.History)
}

// Clear empties the timeline of run.
func (s *Store) Clear(run domain.RunID) {
	*s.get(run) = domain.Timeline{}
}

// Reset empties every timeline.
func (s *Store) Reset() {
	for _, id := range s.order {
		*s.timelines[id] = domain.Timeline{}
	}
}

// VisibleShapes returns the shapes of history[:step] in creation order.
// The returned slice is owned by the caller.
func (s *Store) VisibleShapes(run domain.RunID) []domain.Shape {
	return s.get(run).Visible()
}

// Stats returns the cursor position and the number of stored batches.
func (s *Store) Stats(run domain.RunID) (step, total int) {
	tl := s.get(run)
	return tl.Step, len(tl.History)
}

// Timeline returns a deep copy of the timeline of run, suitable for persistence.
func (s *Store) Timeline(run domain.RunID) domain.Timeline {
	return s.get(run).Clone()
}

// Restore replaces the timeline of run with a previously persisted one.
func (s *Store) Restore(run domain.RunID, tl domain.Timeline) error {
	dst := s.get(run)
	if err := tl.Validate(); err != nil {
		return fmt.Errorf("restore %s: %w", run, err)
	}
	*dst = tl.Clone()
	return nil
}
