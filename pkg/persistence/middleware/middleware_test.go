package middleware_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/waypoint/pkg/adapters/memory"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/persistence/middleware"
	"github.com/aretw0/waypoint/pkg/ports"
)

// MockStore hands back whatever was saved, without validating it.
type MockStore struct {
	data map[domain.RunID]*domain.Timeline
	err  error
}

func NewMockStore() *MockStore {
	return &MockStore{data: make(map[domain.RunID]*domain.Timeline)}
}

func (s *MockStore) Save(ctx context.Context, run domain.RunID, tl *domain.Timeline) error {
	if s.err != nil {
		return s.err
	}
	s.data[run] = tl
	return nil
}

func (s *MockStore) Load(ctx context.Context, run domain.RunID) (*domain.Timeline, error) {
	if s.err != nil {
		return nil, s.err
	}
	tl, ok := s.data[run]
	if !ok {
		return nil, domain.ErrTimelineNotFound
	}
	return tl, nil
}

func (s *MockStore) Delete(ctx context.Context, run domain.RunID) error {
	delete(s.data, run)
	return s.err
}

func (s *MockStore) List(ctx context.Context) ([]domain.RunID, error) {
	var runs []domain.RunID
	for run := range s.data {
		runs = append(runs, run)
	}
	return runs, s.err
}

func TestChain_KeepsStoreContract(t *testing.T) {
	reg := prometheus.NewRegistry()
	store := middleware.Chain(memory.NewStore(),
		middleware.NewValidationMiddleware(),
		middleware.NewMetricsMiddleware(reg),
	)
	ports.RunTimelineStoreContract(t, store)
}

func TestChain_Order(t *testing.T) {
	var calls []string
	tag := func(name string) middleware.Middleware {
		return func(next ports.TimelineStore) ports.TimelineStore {
			return listStore{TimelineStore: next, onList: func() { calls = append(calls, name) }}
		}
	}
	store := middleware.Chain(NewMockStore(), tag("outer"), tag("inner"))
	_, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, calls)
}

type listStore struct {
	ports.TimelineStore
	onList func()
}

func (s listStore) List(ctx context.Context) ([]domain.RunID, error) {
	s.onList()
	return s.TimelineStore.List(ctx)
}

func TestValidationMiddleware(t *testing.T) {
	ctx := context.Background()
	mock := NewMockStore()
	store := middleware.NewValidationMiddleware()(mock)

	assert.ErrorIs(t, store.Save(ctx, "", &domain.Timeline{}), middleware.ErrEmptyRunID)
	assert.ErrorIs(t, store.Save(ctx, "run-1", nil), domain.ErrInvalidTimeline)
	assert.ErrorIs(t, store.Save(ctx, "run-1", &domain.Timeline{Step: 3}), domain.ErrInvalidTimeline)
	assert.Empty(t, mock.data, "invalid timelines never reach the store")

	mock.data["run-2"] = &domain.Timeline{Step: -1}
	_, err := store.Load(ctx, "run-2")
	assert.ErrorIs(t, err, domain.ErrInvalidTimeline)

	_, err = store.Load(ctx, "")
	assert.ErrorIs(t, err, middleware.ErrEmptyRunID)
	assert.ErrorIs(t, store.Delete(ctx, ""), middleware.ErrEmptyRunID)
}

func TestMetricsMiddleware(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	mock := NewMockStore()
	store := middleware.NewMetricsMiddleware(reg)(mock)

	require.NoError(t, store.Save(ctx, "run-1", &domain.Timeline{}))
	_, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	_, err = store.Load(ctx, "run-9")
	require.ErrorIs(t, err, domain.ErrTimelineNotFound)

	mock.err = errors.New("disk full")
	assert.Error(t, store.Save(ctx, "run-1", &domain.Timeline{}))

	count, err := testutil.GatherAndCount(reg, "waypoint_store_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 4, count, "save/ok, load/ok, load/not_found, save/error")

	families, err := reg.Gather()
	require.NoError(t, err)
	var labels []string
	for _, m := range families[0].GetMetric() {
		var parts []string
		for _, l := range m.GetLabel() {
			parts = append(parts, l.GetValue())
		}
		labels = append(labels, strings.Join(parts, "/"))
	}
	assert.ElementsMatch(t, []string{"save/ok", "load/ok", "load/not_found", "save/error"}, labels)
}
