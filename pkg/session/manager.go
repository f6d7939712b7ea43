package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed replica can hold a distributed lock.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serialises access to shared boards and their stored timelines.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.TimelineStore

	mu    sync.Mutex            // guards locks
	locks map[string]*lockEntry // active per-key locks

	locker  ports.DistributedLocker // optional
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the lease requested from the distributed locker.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Manager over the given timeline store.
func NewManager(store ports.TimelineStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(key) after unlocking.
func (m *Manager) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		entry = &lockEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

// Load retrieves the stored timeline of a run.
func (m *Manager) Load(ctx context.Context, run domain.RunID) (*domain.Timeline, error) {
	var tl *domain.Timeline
	err := m.WithLock(ctx, string(run), func(ctx context.Context) error {
		var err error
		tl, err = m.store.Load(ctx, run)
		return err
	})
	return tl, err
}

// LoadOrEmpty loads the timeline of a run. If none is stored, an empty timeline
// is saved and returned.
func (m *Manager) LoadOrEmpty(ctx context.Context, run domain.RunID) (*domain.Timeline, error) {
	var tl *domain.Timeline
	err := m.WithLock(ctx, string(run), func(ctx context.Context) error {
		var err error
		tl, err = m.store.Load(ctx, run)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrTimelineNotFound) {
			return fmt.Errorf("failed to check timeline existence: %w", err)
		}

		tl = &domain.Timeline{History: []domain.Batch{}}
		if err := m.store.Save(ctx, run, tl); err != nil {
			return fmt.Errorf("failed to initialize timeline: %w", err)
		}
		return nil
	})
	return tl, err
}

// Save persists the timeline of a run.
func (m *Manager) Save(ctx context.Context, run domain.RunID, tl *domain.Timeline) error {
	return m.WithLock(ctx, string(run), func(ctx context.Context) error {
		return m.store.Save(ctx, run, tl)
	})
}

// Delete removes the stored timeline of a run.
func (m *Manager) Delete(ctx context.Context, run domain.RunID) error {
	return m.WithLock(ctx, string(run), func(ctx context.Context) error {
		return m.store.Delete(ctx, run)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]domain.RunID, error) {
	return m.store.List(ctx)
}

// Store returns the underlying timeline store.
func (m *Manager) Store() ports.TimelineStore {
	return m.store
}

// WithLock executes fn while holding the lock for key.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := m.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(key)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, key, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"key", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
