package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/internal/config"
	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/pkg/adapters/file"
	"github.com/aretw0/waypoint/pkg/adapters/memory"
	"github.com/aretw0/waypoint/pkg/adapters/redis"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/persistence/middleware"
	"github.com/aretw0/waypoint/pkg/ports"
	"github.com/aretw0/waypoint/pkg/render"
	"github.com/aretw0/waypoint/pkg/session"
)

// Backend bundles the timeline store with the optional distributed locker of the
// configured store backend.
type Backend struct {
	Store  ports.TimelineStore
	Locker ports.DistributedLocker
	close  func() error
}

// Close releases the backend connections.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// Use wraps the store with middlewares, the first one outermost.
func (b *Backend) Use(mws ...middleware.Middleware) {
	b.Store = middleware.Chain(b.Store, mws...)
}

// Sessions builds a session manager over the backend.
func (b *Backend) Sessions(logger *slog.Logger) *session.Manager {
	opts := []session.Option{session.WithLogger(logger)}
	if b.Locker != nil {
		opts = append(opts, session.WithLocker(b.Locker))
	}
	return session.NewManager(b.Store, opts...)
}

// OpenBackend creates the store selected by cfg.Backend. A redis backend is pinged
// so a bad address fails at startup rather than on the first commit.
func OpenBackend(ctx context.Context, cfg config.StoreConfig) (*Backend, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return &Backend{Store: memory.NewStore()}, nil
	case config.BackendFile:
		return &Backend{Store: file.New(cfg.Path)}, nil
	case config.BackendRedis:
		opts := []redis.Option{redis.WithTTL(cfg.TTL)}
		if cfg.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Prefix))
		}
		store := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...)
		if err := store.Client().Ping(ctx).Err(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return &Backend{
			Store:  store,
			Locker: redis.NewLocker(store.Client(), store.Prefix()),
			close:  store.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// NewBoard builds a board from cfg, restores its timelines from store and loads
// the configured background.
func NewBoard(ctx context.Context, cfg config.Config, store ports.TimelineStore, logger *slog.Logger, hooks ...domain.LifecycleHooks) (*waypoint.Board, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	opts := []waypoint.Option{
		waypoint.WithRunIDs(cfg.RunIDs()...),
		waypoint.WithReferenceWidth(cfg.ReferenceWidthCm),
		waypoint.WithTurnThreshold(cfg.TurnThresholdDeg),
		waypoint.WithDragThreshold(cfg.DragThresholdPx),
		waypoint.WithStore(store),
		waypoint.WithLogger(logger),
		waypoint.WithRenderOptions(
			render.WithScale(cfg.Render.Scale),
			render.WithAnnotations(cfg.Render.Annotate),
		),
	}
	if len(hooks) > 0 {
		opts = append(opts, waypoint.WithLifecycleHooks(ChainHooks(hooks...)))
	}

	board, err := waypoint.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing board: %w", err)
	}
	if store != nil {
		if err := board.Restore(ctx); err != nil {
			// A broken timeline leaves its run empty; the others are usable.
			logger.Warn("some timelines could not be restored", "err", err)
		}
	}
	if cfg.Background != nil {
		bg := *cfg.Background
		board.SetBackground(ctx, &bg)
	}
	return board, nil
}
