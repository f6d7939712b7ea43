// Package draw interprets pointer gestures against the active run and turns
// completed drags into committed shapes.
package draw

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/geometry"
	"github.com/aretw0/waypoint/pkg/history"
)

// State is the gesture state of the controller.
type State int

const (
	Idle State = iota
	Drawing
)

func (s State) String() string {
	if s == Drawing {
		return "drawing"
	}
	return "idle"
}

// Options is the ambient tool configuration for a gesture.
type Options struct {
	Tool  domain.Tool
	Style domain.Style
}

// Controller is the Idle -> Drawing -> Idle state machine for one board.
// It is not safe for concurrent use.
type Controller struct {
	history          *history.Store
	referenceWidthCm float64
	dragThresholdPx  float64
	logger           *slog.Logger

	background *domain.Background
	run        domain.RunID

	state  State
	anchor geometry.Point
	cursor geometry.Point
	opts   Options
}

// Option configures the Controller.
type Option func(*Controller)

// WithDragThreshold sets the distance (px) a drag must exceed to commit. Default 0.
func WithDragThreshold(px float64) Option {
	return func(c *Controller) {
		c.dragThresholdPx = px
	}
}

// WithLogger configures a logger for gesture tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController creates a controller drawing into h. The first configured run is
// active initially.
func NewController(h *history.Store, referenceWidthCm float64, opts ...Option) *Controller {
	c := &Controller{
		history:          h,
		referenceWidthCm: referenceWidthCm,
		logger:           logging.NewNop(),
	}
	if runs := h.Runs(); len(runs) > 0 {
		c.run = runs[0]
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current gesture state.
func (c *Controller) State() State {
	return c.state
}

// Run returns the active run.
func (c *Controller) Run() domain.RunID {
	return c.run
}

// Background returns the current reference image, or nil.
func (c *Controller) Background() *domain.Background {
	return c.background
}

// SetBackground replaces (or with nil, removes) the reference image. Any drag in
// progress is dropped.
func (c *Controller) SetBackground(bg *domain.Background) {
	c.Cancel()
	if bg == nil {
		c.background = nil
		return
	}
	b := *bg
	c.background = &b
}

// SelectRun makes run the active surface, dropping any drag in progress.
// It panics if run is not configured.
func (c *Controller) SelectRun(run domain.RunID) {
	if !c.history.Has(run) {
		panic(fmt.Errorf("%w: %q", domain.ErrUnknownRun, run))
	}
	c.Cancel()
	c.run = run
}

// Cancel abandons the drag in progress without committing.
func (c *Controller) Cancel() {
	if c.state == Drawing {
		c.logger.Debug("Gesture discarded", "run", c.run)
	}
	c.state = Idle
}

// PointerDown starts a drag at p. Without a background image it does nothing.
func (c *Controller) PointerDown(p geometry.Point, opts Options) {
	if c.background == nil {
		return
	}
	c.history.BeginEdit(c.run)
	c.state = Drawing
	c.anchor = p
	c.cursor = p
	c.opts = opts
}

// PointerMove tracks the cursor and returns the live preview shape. It never commits.
// ok is false when no drag is in progress or the drag has zero length.
func (c *Controller) PointerMove(p geometry.Point) (preview domain.Shape, ok bool) {
	if c.state != Drawing {
		return nil, false
	}
	c.cursor = p
	return c.Preview()
}

// Preview returns the in-progress shape from the anchor to the cursor.
func (c *Controller) Preview() (domain.Shape, bool) {
	if c.state != Drawing || c.degenerate(c.cursor) {
		return nil, false
	}
	return c.build(c.anchor, c.cursor), true
}

// PointerUp finishes the drag at p. A drag that does not leave the anchor, or one
// whose tool changed since PointerDown, commits nothing.
func (c *Controller) PointerUp(p geometry.Point, opts Options) (domain.Shape, bool) {
	if c.state != Drawing {
		return nil, false
	}
	c.state = Idle

	if opts.Tool != c.opts.Tool {
		c.logger.Debug("Gesture discarded: tool changed", "run", c.run, "from", c.opts.Tool, "to", opts.Tool)
		return nil, false
	}
	if c.degenerate(p) {
		c.logger.Debug("Gesture discarded: zero-length drag", "run", c.run)
		return nil, false
	}

	shape := c.build(c.anchor, p)
	c.history.Commit(c.run, shape)
	return shape, true
}

func (c *Controller) degenerate(p geometry.Point) bool {
	if p.Equal(c.anchor) {
		return true
	}
	return geometry.Distance(c.anchor, p) <= c.dragThresholdPx
}

func (c *Controller) build(from, to geometry.Point) domain.Shape {
	style := c.opts.Style
	if style == (domain.Style{}) {
		style = domain.DefaultStyle
	}
	if c.opts.Tool == domain.ToolCircle {
		return domain.NewCircle(from, to, style)
	}
	return domain.NewSegment(from, to, style, c.background.WidthPx, c.referenceWidthCm)
}
