package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/waypoint/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key the store writes.
const DefaultPrefix = "waypoint:run:"

// noExpiry is the index score of timelines saved without a TTL (2100-01-01).
const noExpiry = 4102444800

// Store implements ports.TimelineStore using Redis.
// Each run is a JSON string key; a sorted set indexes runs by expiry.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for saved timelines.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying client, e.g. to build a Locker on the same connection.
func (s *Store) Client() *backend.Client {
	return s.client
}

// Prefix returns the key prefix in use.
func (s *Store) Prefix() string {
	return s.prefix
}

func (s *Store) key(run domain.RunID) string {
	return s.prefix + string(run)
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the timeline to Redis.
func (s *Store) Save(ctx context.Context, run domain.RunID, tl *domain.Timeline) error {
	data, err := json.Marshal(tl)
	if err != nil {
		return fmt.Errorf("failed to marshal timeline: %w", err)
	}

	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = noExpiry
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(run), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: string(run),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the timeline from Redis.
func (s *Store) Load(ctx context.Context, run domain.RunID) (*domain.Timeline, error) {
	val, err := s.client.Get(ctx, s.key(run)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrTimelineNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var tl domain.Timeline
	if err := json.Unmarshal(val, &tl); err != nil {
		return nil, fmt.Errorf("failed to unmarshal timeline: %w", err)
	}
	if err := tl.Validate(); err != nil {
		return nil, fmt.Errorf("timeline %s: %w", run, err)
	}
	return &tl, nil
}

// Delete removes the timeline and its index entry.
func (s *Store) Delete(ctx context.Context, run domain.RunID) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(run))
	pipe.ZRem(ctx, s.indexKey(), string(run))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// List returns the runs in the index, pruning entries whose TTL has passed.
func (s *Store) List(ctx context.Context) ([]domain.RunID, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired runs: %w", err)
	}

	members, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := make([]domain.RunID, 0, len(members))
	for _, m := range members {
		runs = append(runs, domain.RunID(m))
	}
	return runs, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
