package ports

import (
	"context"

	"github.com/aretw0/waypoint/pkg/domain"
)

// TimelineStore persists the undo/redo timeline of each run.
// The board saves after every commit, undo, redo and clear, so a restarted
// process resumes exactly where the user stopped.
type TimelineStore interface {
	// Save persists the timeline for a given run.
	Save(ctx context.Context, run domain.RunID, tl *domain.Timeline) error

	// Load retrieves the timeline for a given run.
	// Returns domain.ErrTimelineNotFound if nothing was saved for the run.
	Load(ctx context.Context, run domain.RunID) (*domain.Timeline, error)

	// Delete removes the timeline for a given run. Deleting a missing run is not an error.
	Delete(ctx context.Context, run domain.RunID) error

	// List returns the runs that currently have a saved timeline.
	List(ctx context.Context) ([]domain.RunID, error)
}
