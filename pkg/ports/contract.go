package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTimelineStoreContract runs a suite of tests to verify that a TimelineStore implementation
// adheres to the defined interface contract.
func RunTimelineStoreContract(t *testing.T, store TimelineStore) {
	t.Helper()
	ctx := context.Background()
	run := domain.RunID("contract-run-" + time.Now().Format("20060102150405"))

	seg := domain.NewSegment(domain.Point{X: 0, Y: 0}, domain.Point{X: 500, Y: 0}, domain.DefaultStyle, 1000, 240)
	circle := domain.NewCircle(domain.Point{X: 10, Y: 10}, domain.Point{X: 20, Y: 10}, domain.DefaultStyle)
	timeline := func() *domain.Timeline {
		return &domain.Timeline{
			History: []domain.Batch{{seg}, {circle}},
			Step:    1,
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		err := store.Save(ctx, run, timeline())
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, run)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, 1, loaded.Step)
		require.Len(t, loaded.History, 2)

		got, ok := loaded.History[0][0].(domain.Segment)
		require.True(t, ok, "first batch should decode back to a segment")
		assert.InDelta(t, 120.0, got.LengthCm, 1e-9, "frozen length survives persistence")
		assert.InDelta(t, 0.0, got.AngleDeg, 1e-9)
		assert.Equal(t, domain.KindCircle, loaded.History[1][0].Kind())
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		tl := timeline()
		tl.Step = 2
		require.NoError(t, store.Save(ctx, run, tl))

		loaded, err := store.Load(ctx, run)
		require.NoError(t, err)
		assert.Equal(t, 2, loaded.Step)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+run)
		assert.ErrorIs(t, err, domain.ErrTimelineNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, run, timeline()))

		err := store.Delete(ctx, run)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, run)
		assert.ErrorIs(t, err, domain.ErrTimelineNotFound, "Load after Delete should return ErrTimelineNotFound")

		assert.NoError(t, store.Delete(ctx, run), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := run + "-1"
		id2 := run + "-2"
		_ = store.Save(ctx, id1, timeline())
		_ = store.Save(ctx, id2, &domain.Timeline{})

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		runs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, id1)
		assert.Contains(t, runs, id2)
	})
}
