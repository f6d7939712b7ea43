package history_test

import (
	"errors"
	"testing"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seg(n float64) domain.Segment {
	return domain.Segment{P1: domain.Point{X: n}, P2: domain.Point{X: n + 1}, LengthCm: n}
}

func commit(s *history.Store, run domain.RunID, shape domain.Shape) {
	s.BeginEdit(run)
	s.Commit(run, shape)
}

func TestStore_UndoRedoInverse(t *testing.T) {
	s := history.New("run-1")
	for i := 0; i < 5; i++ {
		commit(s, "run-1", seg(float64(i)))

		before := s.VisibleShapes("run-1")
		require.True(t, s.Undo("run-1"))
		require.True(t, s.Redo("run-1"))
		assert.Equal(t, before, s.VisibleShapes("run-1"))
	}

	// Also holds from the middle of the timeline.
	s.Undo("run-1")
	s.Undo("run-1")
	before := s.VisibleShapes("run-1")
	s.Undo("run-1")
	s.Redo("run-1")
	assert.Equal(t, before, s.VisibleShapes("run-1"))
}

func TestStore_TruncationOnNewEdit(t *testing.T) {
	s := history.New("run-1")
	a, b, c := seg(1), seg(2), seg(3)

	commit(s, "run-1", a)
	commit(s, "run-1", b)
	require.True(t, s.Undo("run-1"))
	commit(s, "run-1", c)

	assert.Equal(t, []domain.Shape{a, c}, s.VisibleShapes("run-1"))
	assert.False(t, s.Redo("run-1"), "B must be gone for good")
	assert.Equal(t, []domain.Shape{a, c}, s.VisibleShapes("run-1"))

	step, total := s.Stats("run-1")
	assert.Equal(t, 2, step)
	assert.Equal(t, 2, total)
}

func TestStore_BeginEditAloneTruncates(t *testing.T) {
	s := history.New("run-1")
	commit(s, "run-1", seg(1))
	commit(s, "run-1", seg(2))
	s.Undo("run-1")

	s.BeginEdit("run-1")
	assert.False(t, s.CanRedo("run-1"))
	_, total := s.Stats("run-1")
	assert.Equal(t, 1, total)
}

func TestStore_Bounds(t *testing.T) {
	s := history.New("run-1")
	assert.False(t, s.Undo("run-1"))
	assert.False(t, s.Redo("run-1"))
	assert.False(t, s.CanUndo("run-1"))
	assert.Empty(t, s.VisibleShapes("run-1"))

	commit(s, "run-1", seg(1))
	assert.True(t, s.CanUndo("run-1"))
	assert.False(t, s.CanRedo("run-1"))
	assert.False(t, s.Redo("run-1"))

	require.True(t, s.Undo("run-1"))
	assert.False(t, s.Undo("run-1"))
	assert.Empty(t, s.VisibleShapes("run-1"))
}

func TestStore_RunIndependence(t *testing.T) {
	s := history.New(domain.RunIDs("run", 2)...)
	commit(s, "run-2", seg(9))
	want := s.VisibleShapes("run-2")

	commit(s, "run-1", seg(1))
	commit(s, "run-1", seg(2))
	assert.Equal(t, want, s.VisibleShapes("run-2"))
	s.Undo("run-1")
	assert.Equal(t, want, s.VisibleShapes("run-2"))
	s.Redo("run-1")
	assert.Equal(t, want, s.VisibleShapes("run-2"))
	s.Clear("run-1")
	assert.Equal(t, want, s.VisibleShapes("run-2"))
	assert.Empty(t, s.VisibleShapes("run-1"))
}

func TestStore_Reset(t *testing.T) {
	s := history.New(domain.RunIDs("run", 3)...)
	for _, id := range s.Runs() {
		commit(s, id, seg(1))
	}
	s.Reset()
	for _, id := range s.Runs() {
		assert.Empty(t, s.VisibleShapes(id))
		_, total := s.Stats(id)
		assert.Zero(t, total)
	}
}

func TestStore_UnknownRunPanics(t *testing.T) {
	s := history.New("run-1")
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.True(t, errors.Is(err, domain.ErrUnknownRun))
	}()
	s.Undo("run-7")
}

func TestStore_TimelineAndRestore(t *testing.T) {
	s := history.New("run-1", "run-2")
	commit(s, "run-1", seg(1))
	commit(s, "run-1", seg(2))
	s.Undo("run-1")

	tl := s.Timeline("run-1")
	assert.Equal(t, 1, tl.Step)
	assert.Len(t, tl.History, 2)

	require.NoError(t, s.Restore("run-2", tl))
	assert.Equal(t, s.VisibleShapes("run-1"), s.VisibleShapes("run-2"))
	assert.True(t, s.CanRedo("run-2"))

	// The snapshot is detached from the store.
	commit(s, "run-1", seg(3))
	_, total := s.Stats("run-2")
	assert.Equal(t, 2, total)

	err := s.Restore("run-2", domain.Timeline{Step: 3})
	assert.ErrorIs(t, err, domain.ErrInvalidTimeline)
}

func TestStore_RunsKeepOrder(t *testing.T) {
	s := history.New("b", "a", "b", "c")
	assert.Equal(t, []domain.RunID{"b", "a", "c"}, s.Runs())
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has("z"))
}
