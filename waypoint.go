package waypoint

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/pkg/compiler"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/draw"
	"github.com/aretw0/waypoint/pkg/geometry"
	"github.com/aretw0/waypoint/pkg/history"
	"github.com/aretw0/waypoint/pkg/ports"
	"github.com/aretw0/waypoint/pkg/render"
)

const (
	// DefaultRuns is the number of surfaces when neither WithRuns nor WithRunIDs is given.
	DefaultRuns = 6
	// DefaultRunPrefix names the default surfaces run-1..run-N.
	DefaultRunPrefix = "run"
	// DefaultReferenceWidthCm is the physical width assumed for the background image.
	DefaultReferenceWidthCm = 240.0
)

// ErrNoBackground is returned by operations that need a laid-out surface.
var ErrNoBackground = errors.New("no background image")

// Board is the high-level entry point: a set of runs drawn over one shared
// background, with the history, controller and compiler wired together.
//
// A Board is not safe for concurrent use. Adapters serving concurrent callers
// serialise access through session.Manager.
type Board struct {
	Name string

	runs             []domain.RunID
	referenceWidthCm float64
	turnThresholdDeg float64
	dragThresholdPx  float64
	renderOpts       []render.PainterOption

	history *history.Store
	ctrl    *draw.Controller
	store   ports.TimelineStore
	hooks   domain.LifecycleHooks
	logger  *slog.Logger

	// truncated is the run whose redo tail PointerDown dropped and that has not
	// been saved since.
	truncated domain.RunID
}

// Option defines a functional option for configuring the Board.
type Option func(*Board)

// WithRuns configures n surfaces named run-1..run-n.
func WithRuns(n int) Option {
	return func(b *Board) {
		b.runs = domain.RunIDs(DefaultRunPrefix, n)
	}
}

// WithRunIDs configures the surfaces explicitly, in display order.
func WithRunIDs(ids ...domain.RunID) Option {
	return func(b *Board) {
		b.runs = append([]domain.RunID(nil), ids...)
	}
}

// WithReferenceWidth sets the physical width (cm) the background image spans.
func WithReferenceWidth(cm float64) Option {
	return func(b *Board) {
		b.referenceWidthCm = cm
	}
}

// WithTurnThreshold sets the turn magnitude (degrees) at or below which no turn is emitted.
func WithTurnThreshold(deg float64) Option {
	return func(b *Board) {
		b.turnThresholdDeg = deg
	}
}

// WithDragThreshold sets the drag distance (px) at or below which a gesture commits nothing.
func WithDragThreshold(px float64) Option {
	return func(b *Board) {
		b.dragThresholdPx = px
	}
}

// WithStore persists every run's timeline after each change.
func WithStore(store ports.TimelineStore) Option {
	return func(b *Board) {
		b.store = store
	}
}

// WithLogger sets a custom structured logger for the board.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Board) {
		b.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(b *Board) {
		b.hooks = hooks
	}
}

// WithName labels the board in logs and lock keys.
func WithName(name string) Option {
	return func(b *Board) {
		b.Name = name
	}
}

// WithRenderOptions configures the painter used by Render.
func WithRenderOptions(opts ...render.PainterOption) Option {
	return func(b *Board) {
		b.renderOpts = append(b.renderOpts, opts...)
	}
}

// New initializes a Board. All runs start empty; call Restore to load persisted timelines.
func New(opts ...Option) (*Board, error) {
	b := &Board{
		Name:             "waypoint",
		referenceWidthCm: DefaultReferenceWidthCm,
		turnThresholdDeg: geometry.DefaultTurnThresholdDeg,
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.runs == nil {
		b.runs = domain.RunIDs(DefaultRunPrefix, DefaultRuns)
	}
	if len(b.runs) == 0 {
		return nil, errors.New("at least one run is required")
	}
	seen := make(map[domain.RunID]bool, len(b.runs))
	for _, id := range b.runs {
		if id == "" {
			return nil, errors.New("run id cannot be empty")
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate run id %q", id)
		}
		seen[id] = true
	}
	if !(b.referenceWidthCm > 0) {
		return nil, fmt.Errorf("reference width must be positive, got %v", b.referenceWidthCm)
	}
	if b.turnThresholdDeg < 0 || b.dragThresholdPx < 0 {
		return nil, errors.New("thresholds cannot be negative")
	}

	if b.logger == nil {
		b.logger = logging.NewNop()
	}
	b.logger = b.logger.With("board", b.Name)

	b.history = history.New(b.runs...)
	b.ctrl = draw.NewController(b.history, b.referenceWidthCm,
		draw.WithDragThreshold(b.dragThresholdPx),
		draw.WithLogger(b.logger),
	)
	return b, nil
}

// Runs returns the configured run IDs in order.
func (b *Board) Runs() []domain.RunID {
	return b.history.Runs()
}

// HasRun reports whether run is configured. Adapters check it before calling
// operations that would panic on unknown runs.
func (b *Board) HasRun(run domain.RunID) bool {
	return b.history.Has(run)
}

// ActiveRun returns the surface pointer events are applied to.
func (b *Board) ActiveRun() domain.RunID {
	return b.ctrl.Run()
}

// ReferenceWidthCm returns the configured physical width of the background.
func (b *Board) ReferenceWidthCm() float64 {
	return b.referenceWidthCm
}

// Background returns the current reference image, or nil.
func (b *Board) Background() *domain.Background {
	return b.ctrl.Background()
}

// SetBackground replaces the reference image shared by every run. Replacing or
// removing an existing image resets every timeline. Loading the first image, or
// the same image again, keeps them, so restored timelines survive startup.
func (b *Board) SetBackground(ctx context.Context, bg *domain.Background) {
	prev := b.ctrl.Background()
	b.ctrl.SetBackground(bg)

	if prev == nil || sameBackground(prev, bg) {
		return
	}
	b.history.Reset()
	b.logger.Info("Background changed, timelines reset", "source", sourceOf(bg))
	for _, run := range b.runs {
		b.persist(ctx, run)
		b.emitHistory(ctx, domain.EventReset, run)
	}
}

func sameBackground(a, c *domain.Background) bool {
	if a == nil || c == nil {
		return a == nil && c == nil
	}
	return *a == *c
}

func sourceOf(bg *domain.Background) string {
	if bg == nil {
		return ""
	}
	return bg.Source
}

// SelectRun makes run the surface pointer events apply to. A drag in progress is
// discarded. It panics if run is not configured.
func (b *Board) SelectRun(run domain.RunID) {
	b.ctrl.SelectRun(run)
}

// State reports whether a drag is in progress.
func (b *Board) State() draw.State {
	return b.ctrl.State()
}

// PointerDown starts a drag on the active run. Without a background it does nothing.
func (b *Board) PointerDown(p geometry.Point, opts draw.Options) {
	run := b.ctrl.Run()
	hadTail := b.history.CanRedo(run)
	b.ctrl.PointerDown(p, opts)
	if hadTail && !b.history.CanRedo(run) {
		b.truncated = run
	}
}

// PointerMove updates the drag and returns the live preview.
func (b *Board) PointerMove(p geometry.Point) (domain.Shape, bool) {
	return b.ctrl.PointerMove(p)
}

// PointerUp finishes the drag. When a shape is committed the run is persisted
// and OnCommit fires.
func (b *Board) PointerUp(ctx context.Context, p geometry.Point, opts draw.Options) (domain.Shape, bool) {
	run := b.ctrl.Run()
	shape, ok := b.ctrl.PointerUp(p, opts)
	if pending := b.truncated; pending != "" && (!ok || pending != run) {
		// The dropped redo tail must not come back on restore.
		b.persist(ctx, pending)
	}
	b.truncated = ""
	if !ok {
		return nil, false
	}

	b.logger.Debug("Shape committed", "run", run, "kind", shape.Kind())
	b.persist(ctx, run)
	if b.hooks.OnCommit != nil {
		b.hooks.OnCommit(ctx, &domain.ShapeEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventCommit, Run: run},
			Shape:     shape,
		})
	}
	return shape, true
}

// Cancel abandons the drag in progress.
func (b *Board) Cancel() {
	b.ctrl.Cancel()
}

// Preview returns the in-progress shape of the active run, if any.
func (b *Board) Preview() (domain.Shape, bool) {
	return b.ctrl.Preview()
}

// Undo steps run back one batch. It returns false at the start of the timeline.
func (b *Board) Undo(ctx context.Context, run domain.RunID) bool {
	b.cancelOn(run)
	if !b.history.Undo(run) {
		return false
	}
	b.persist(ctx, run)
	b.emitHistory(ctx, domain.EventUndo, run)
	return true
}

// Redo steps run forward one batch. It returns false at the end of the timeline.
func (b *Board) Redo(ctx context.Context, run domain.RunID) bool {
	b.cancelOn(run)
	if !b.history.Redo(run) {
		return false
	}
	b.persist(ctx, run)
	b.emitHistory(ctx, domain.EventRedo, run)
	return true
}

// Clear empties the timeline of run.
func (b *Board) Clear(ctx context.Context, run domain.RunID) {
	b.cancelOn(run)
	b.history.Clear(run)
	b.persist(ctx, run)
	b.emitHistory(ctx, domain.EventClear, run)
}

// cancelOn drops a drag in progress on run, so a gesture never commits onto a
// timeline whose cursor moved underneath it.
func (b *Board) cancelOn(run domain.RunID) {
	if b.ctrl.Run() == run {
		b.ctrl.Cancel()
	}
}

// CanUndo reports whether Undo would change run.
func (b *Board) CanUndo(run domain.RunID) bool {
	return b.history.CanUndo(run)
}

// CanRedo reports whether Redo would change run.
func (b *Board) CanRedo(run domain.RunID) bool {
	return b.history.CanRedo(run)
}

// VisibleShapes returns the shapes of run up to its cursor, in creation order.
func (b *Board) VisibleShapes(run domain.RunID) []domain.Shape {
	return b.history.VisibleShapes(run)
}

// Instructions compiles the visible path of run.
func (b *Board) Instructions(run domain.RunID) []domain.Instruction {
	return compiler.Compile(b.history.VisibleShapes(run), compiler.WithTurnThreshold(b.turnThresholdDeg))
}

// Summary totals the visible path of run.
func (b *Board) Summary(run domain.RunID) compiler.Summary {
	return compiler.Summarize(b.history.VisibleShapes(run), compiler.WithTurnThreshold(b.turnThresholdDeg))
}

// Timeline returns a copy of the timeline of run.
func (b *Board) Timeline(run domain.RunID) domain.Timeline {
	return b.history.Timeline(run)
}

// Stats returns the cursor position and number of stored batches of run.
func (b *Board) Stats(run domain.RunID) (step, total int) {
	return b.history.Stats(run)
}

// Restore loads every run's timeline from the store. Runs with nothing stored
// stay empty. Failures for individual runs are joined into the returned error;
// the other runs are still restored.
func (b *Board) Restore(ctx context.Context) error {
	if b.store == nil {
		return nil
	}
	var errs []error
	for _, run := range b.runs {
		tl, err := b.store.Load(ctx, run)
		if errors.Is(err, domain.ErrTimelineNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("load %s: %w", run, err))
			continue
		}
		if err := b.history.Restore(run, *tl); err != nil {
			errs = append(errs, err)
			continue
		}
		step, total := b.history.Stats(run)
		b.logger.Debug("Timeline restored", "run", run, "step", step, "total", total)
	}
	return errors.Join(errs...)
}

// Render paints the visible shapes of run, plus the live preview when run is the
// active run, over the current background.
func (b *Board) Render(run domain.RunID) (*image.RGBA, error) {
	shapes := b.history.VisibleShapes(run)
	bg := b.ctrl.Background()
	if bg == nil || !(bg.WidthPx > 0) {
		return nil, ErrNoBackground
	}

	var preview domain.Shape
	if b.ctrl.Run() == run {
		preview, _ = b.ctrl.Preview()
	}
	opts := append([]render.PainterOption{render.WithTurnThreshold(b.turnThresholdDeg)}, b.renderOpts...)
	painter := render.NewPainter(b.referenceWidthCm, opts...)
	if _, err := painter.Frame(*bg); err != nil {
		return nil, err
	}
	return painter.Paint(*bg, shapes, preview), nil
}

// persist saves run's timeline. Failures are logged and reported through
// OnPersistError; the in-memory timeline stays authoritative.
func (b *Board) persist(ctx context.Context, run domain.RunID) {
	if b.store == nil {
		return
	}
	tl := b.history.Timeline(run)
	if err := b.store.Save(ctx, run, &tl); err != nil {
		b.logger.Warn("Failed to persist timeline", "run", run, "err", err)
		if b.hooks.OnPersistError != nil {
			b.hooks.OnPersistError(ctx, &domain.PersistEvent{
				EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventPersistError, Run: run},
				Err:       err,
			})
		}
	}
}

func (b *Board) emitHistory(ctx context.Context, typ domain.EventType, run domain.RunID) {
	if b.hooks.OnHistory == nil {
		return
	}
	step, total := b.history.Stats(run)
	b.hooks.OnHistory(ctx, &domain.HistoryEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: typ, Run: run},
		Step:      step,
		Total:     total,
	})
}
