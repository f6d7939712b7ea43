package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/ports"
)

// ErrEmptyRunID is returned for operations on the empty run ID.
var ErrEmptyRunID = errors.New("run id cannot be empty")

type validationMiddleware struct {
	next ports.TimelineStore
}

// NewValidationMiddleware rejects empty run IDs and timelines whose cursor is out of
// range, on the way in and on the way out.
func NewValidationMiddleware() Middleware {
	return func(next ports.TimelineStore) ports.TimelineStore {
		return &validationMiddleware{next: next}
	}
}

func (m *validationMiddleware) Save(ctx context.Context, run domain.RunID, tl *domain.Timeline) error {
	if run == "" {
		return ErrEmptyRunID
	}
	if tl == nil {
		return fmt.Errorf("%w: nil timeline for %s", domain.ErrInvalidTimeline, run)
	}
	if err := tl.Validate(); err != nil {
		return err
	}
	return m.next.Save(ctx, run, tl)
}

func (m *validationMiddleware) Load(ctx context.Context, run domain.RunID) (*domain.Timeline, error) {
	if run == "" {
		return nil, ErrEmptyRunID
	}
	tl, err := m.next.Load(ctx, run)
	if err != nil {
		return nil, err
	}
	if err := tl.Validate(); err != nil {
		return nil, fmt.Errorf("stored timeline %s: %w", run, err)
	}
	return tl, nil
}

func (m *validationMiddleware) Delete(ctx context.Context, run domain.RunID) error {
	if run == "" {
		return ErrEmptyRunID
	}
	return m.next.Delete(ctx, run)
}

func (m *validationMiddleware) List(ctx context.Context) ([]domain.RunID, error) {
	return m.next.List(ctx)
}
