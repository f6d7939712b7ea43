package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/internal/presentation/graph"
	"github.com/aretw0/waypoint/pkg/compiler"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/draw"
	"github.com/aretw0/waypoint/pkg/geometry"
	"github.com/aretw0/waypoint/pkg/render"
	"github.com/aretw0/waypoint/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Board is the part of *waypoint.Board the HTTP surface drives.
type Board interface {
	Runs() []domain.RunID
	HasRun(run domain.RunID) bool
	ActiveRun() domain.RunID
	Background() *domain.Background
	SetBackground(ctx context.Context, bg *domain.Background)
	SelectRun(run domain.RunID)
	State() draw.State
	PointerDown(p geometry.Point, opts draw.Options)
	PointerMove(p geometry.Point) (domain.Shape, bool)
	PointerUp(ctx context.Context, p geometry.Point, opts draw.Options) (domain.Shape, bool)
	Undo(ctx context.Context, run domain.RunID) bool
	Redo(ctx context.Context, run domain.RunID) bool
	Clear(ctx context.Context, run domain.RunID)
	CanUndo(run domain.RunID) bool
	CanRedo(run domain.RunID) bool
	VisibleShapes(run domain.RunID) []domain.Shape
	Instructions(run domain.RunID) []domain.Instruction
	Summary(run domain.RunID) compiler.Summary
	Timeline(run domain.RunID) domain.Timeline
	Stats(run domain.RunID) (step, total int)
	Render(run domain.RunID) (*image.RGBA, error)
}

var _ Board = (*waypoint.Board)(nil)

// Server serves one board over HTTP. Every handler runs under the session
// manager's lock for the board, so concurrent requests never interleave inside
// the single-threaded core.
type Server struct {
	Board    Board
	Sessions *session.Manager
	Streams  *StreamManager

	lockKey  string
	gatherer prometheus.Gatherer
	metrics  *Metrics
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLockKey sets the session-manager key guarding the board (default "board").
func WithLockKey(key string) Option {
	return func(s *Server) {
		s.lockKey = key
	}
}

// WithMetrics exposes gatherer on /metrics and counts requests in m.
func WithMetrics(m *Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

// WithLogger sets the logger for request failures and stream events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a Server. Sessions may be nil, in which case a manager
// without a store-backed lock is created.
func NewServer(board Board, sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		Board:    board,
		Sessions: sessions,
		lockKey:  "board",
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Sessions == nil {
		s.Sessions = session.NewManager(nil, session.WithLogger(s.logger))
	}
	s.Streams = NewStreamManager(s.logger)
	return s
}

// NewHandler creates the HTTP handler for board.
func NewHandler(board Board, sessions *session.Manager, opts ...Option) http.Handler {
	return NewServer(board, sessions, opts...).Routes()
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	if s.metrics != nil {
		r.Use(s.countRequests)
	}

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/events", s.SubscribeEvents)

	r.Put("/background", s.PutBackground)
	r.Delete("/background", s.DeleteBackground)

	r.Get("/runs", s.ListRuns)
	r.Route("/runs/{run}", func(r chi.Router) {
		r.Use(s.requireRun)
		r.Post("/pointer/down", s.PointerDown)
		r.Post("/pointer/move", s.PointerMove)
		r.Post("/pointer/up", s.PointerUp)
		r.Post("/undo", s.Undo)
		r.Post("/redo", s.Redo)
		r.Post("/clear", s.Clear)
		r.Get("/shapes", s.GetShapes)
		r.Get("/timeline", s.GetTimeline)
		r.Get("/instructions", s.GetInstructions)
		r.Get("/flowchart", s.GetFlowchart)
		r.Get("/render.png", s.GetRender)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		s.metrics.requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.code)).Inc()
	})
}

type runKey struct{}

// requireRun rejects unknown runs with 404 before they reach the core, which
// panics on them.
func (s *Server) requireRun(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		run := domain.RunID(chi.URLParam(r, "run"))
		if !s.Board.HasRun(run) {
			http.Error(w, fmt.Sprintf("unknown run %q", run), http.StatusNotFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), runKey{}, run)))
	})
}

func runFrom(r *http.Request) domain.RunID {
	run, _ := r.Context().Value(runKey{}).(domain.RunID)
	return run
}

// locked runs fn under the board lock. A lock failure is answered with 503.
func (s *Server) locked(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context)) bool {
	err := s.Sessions.WithLock(r.Context(), s.lockKey, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
	if err != nil {
		http.Error(w, "board is busy", http.StatusServiceUnavailable)
		s.logger.Error("Failed to lock board", "err", err)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

// -- Payloads --

// PointerRequest is the body of the pointer endpoints.
type PointerRequest struct {
	X           float64     `json:"x"`
	Y           float64     `json:"y"`
	Tool        domain.Tool `json:"tool,omitempty"`
	Color       string      `json:"color,omitempty"`
	StrokeWidth float64     `json:"stroke_width,omitempty"`
}

func (p PointerRequest) point() geometry.Point {
	return geometry.Point{X: p.X, Y: p.Y}
}

func (p PointerRequest) options() (draw.Options, error) {
	tool, err := domain.ParseTool(string(p.Tool))
	if err != nil {
		return draw.Options{}, err
	}
	return draw.Options{Tool: tool, Style: domain.Style{Color: p.Color, StrokeWidth: p.StrokeWidth}}, nil
}

// PointerResponse reports the gesture state after a pointer event.
type PointerResponse struct {
	State     string       `json:"state"`
	Preview   domain.Shape `json:"preview,omitempty"`
	Committed bool         `json:"committed"`
	Shape     domain.Shape `json:"shape,omitempty"`
}

// RunInfo summarises one run for GET /runs.
type RunInfo struct {
	ID      domain.RunID `json:"id"`
	Active  bool         `json:"active"`
	Step    int          `json:"step"`
	Total   int          `json:"total"`
	CanUndo bool         `json:"can_undo"`
	CanRedo bool         `json:"can_redo"`
}

// HistoryResponse answers undo, redo and clear.
type HistoryResponse struct {
	Changed bool `json:"changed"`
	Step    int  `json:"step"`
	Total   int  `json:"total"`
}

// InstructionsResponse carries the compiled program of a run.
type InstructionsResponse struct {
	Run          domain.RunID         `json:"run"`
	Instructions []domain.Instruction `json:"instructions"`
	Summary      compiler.Summary     `json:"summary"`
}

func (s *Server) instructions(run domain.RunID) InstructionsResponse {
	ins := s.Board.Instructions(run)
	if ins == nil {
		ins = []domain.Instruction{}
	}
	return InstructionsResponse{Run: run, Instructions: ins, Summary: s.Board.Summary(run)}
}

// broadcast pushes the current program of run to its SSE subscribers.
func (s *Server) broadcast(run domain.RunID) {
	if s.Streams.Subscribers(run) == 0 {
		return
	}
	data, err := json.Marshal(s.instructions(run))
	if err != nil {
		s.logger.Error("Failed to marshal instructions", "run", run, "err", err)
		return
	}
	s.Streams.Broadcast(run, string(data))
}

// -- Handlers --

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{
		"app":     "waypoint-http",
		"version": strings.TrimSpace(waypoint.Version),
	})
}

// ListRuns handles GET /runs.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	var out []RunInfo
	if !s.locked(w, r, func(ctx context.Context) {
		active := s.Board.ActiveRun()
		for _, run := range s.Board.Runs() {
			step, total := s.Board.Stats(run)
			out = append(out, RunInfo{
				ID:      run,
				Active:  run == active,
				Step:    step,
				Total:   total,
				CanUndo: s.Board.CanUndo(run),
				CanRedo: s.Board.CanRedo(run),
			})
		}
	}) {
		return
	}
	s.writeJSON(w, out)
}

// PutBackground handles PUT /background.
func (s *Server) PutBackground(w http.ResponseWriter, r *http.Request) {
	var bg domain.Background
	if err := json.NewDecoder(r.Body).Decode(&bg); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("PutBackground: Invalid request body", "err", err)
		return
	}
	if err := bg.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !s.locked(w, r, func(ctx context.Context) {
		s.Board.SetBackground(ctx, &bg)
		for _, run := range s.Board.Runs() {
			s.broadcast(run)
		}
	}) {
		return
	}
	s.writeJSON(w, bg)
}

// DeleteBackground handles DELETE /background.
func (s *Server) DeleteBackground(w http.ResponseWriter, r *http.Request) {
	if !s.locked(w, r, func(ctx context.Context) {
		s.Board.SetBackground(ctx, nil)
		for _, run := range s.Board.Runs() {
			s.broadcast(run)
		}
	}) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decodePointer(w http.ResponseWriter, r *http.Request) (PointerRequest, draw.Options, bool) {
	var req PointerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Pointer: Invalid request body", "err", err)
		return req, draw.Options{}, false
	}
	opts, err := req.options()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return req, draw.Options{}, false
	}
	return req, opts, true
}

// PointerDown handles POST /runs/{run}/pointer/down. It makes the run active.
func (s *Server) PointerDown(w http.ResponseWriter, r *http.Request) {
	req, opts, ok := s.decodePointer(w, r)
	if !ok {
		return
	}
	run := runFrom(r)

	var resp PointerResponse
	if !s.locked(w, r, func(ctx context.Context) {
		if s.Board.ActiveRun() != run {
			s.Board.SelectRun(run)
		}
		s.Board.PointerDown(req.point(), opts)
		resp.State = s.Board.State().String()
	}) {
		return
	}
	s.writeJSON(w, resp)
}

// errNotActive is answered with 409 when move/up target a run without the drag.
var errNotActive = errors.New("run is not the active run")

// PointerMove handles POST /runs/{run}/pointer/move.
func (s *Server) PointerMove(w http.ResponseWriter, r *http.Request) {
	req, _, ok := s.decodePointer(w, r)
	if !ok {
		return
	}
	run := runFrom(r)

	var (
		resp PointerResponse
		err  error
	)
	if !s.locked(w, r, func(ctx context.Context) {
		if s.Board.ActiveRun() != run {
			err = errNotActive
			return
		}
		if preview, ok := s.Board.PointerMove(req.point()); ok {
			resp.Preview = preview
		}
		resp.State = s.Board.State().String()
	}) {
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	s.writeJSON(w, resp)
}

// PointerUp handles POST /runs/{run}/pointer/up.
func (s *Server) PointerUp(w http.ResponseWriter, r *http.Request) {
	req, opts, ok := s.decodePointer(w, r)
	if !ok {
		return
	}
	run := runFrom(r)

	var (
		resp PointerResponse
		err  error
	)
	if !s.locked(w, r, func(ctx context.Context) {
		if s.Board.ActiveRun() != run {
			err = errNotActive
			return
		}
		shape, committed := s.Board.PointerUp(ctx, req.point(), opts)
		resp.Committed = committed
		resp.Shape = shape
		resp.State = s.Board.State().String()
		if committed {
			s.broadcast(run)
		}
	}) {
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	s.writeJSON(w, resp)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, run domain.RunID) bool) {
	run := runFrom(r)
	var resp HistoryResponse
	if !s.locked(w, r, func(ctx context.Context) {
		resp.Changed = op(ctx, run)
		resp.Step, resp.Total = s.Board.Stats(run)
		if resp.Changed {
			s.broadcast(run)
		}
	}) {
		return
	}
	s.writeJSON(w, resp)
}

// Undo handles POST /runs/{run}/undo.
func (s *Server) Undo(w http.ResponseWriter, r *http.Request) {
	s.history(w, r, s.Board.Undo)
}

// Redo handles POST /runs/{run}/redo.
func (s *Server) Redo(w http.ResponseWriter, r *http.Request) {
	s.history(w, r, s.Board.Redo)
}

// Clear handles POST /runs/{run}/clear.
func (s *Server) Clear(w http.ResponseWriter, r *http.Request) {
	s.history(w, r, func(ctx context.Context, run domain.RunID) bool {
		s.Board.Clear(ctx, run)
		return true
	})
}

// GetShapes handles GET /runs/{run}/shapes.
func (s *Server) GetShapes(w http.ResponseWriter, r *http.Request) {
	shapes := []domain.Shape{}
	if !s.locked(w, r, func(ctx context.Context) {
		shapes = append(shapes, s.Board.VisibleShapes(runFrom(r))...)
	}) {
		return
	}
	s.writeJSON(w, shapes)
}

// GetTimeline handles GET /runs/{run}/timeline.
func (s *Server) GetTimeline(w http.ResponseWriter, r *http.Request) {
	var tl domain.Timeline
	if !s.locked(w, r, func(ctx context.Context) {
		tl = s.Board.Timeline(runFrom(r))
	}) {
		return
	}
	s.writeJSON(w, tl)
}

// GetInstructions handles GET /runs/{run}/instructions.
func (s *Server) GetInstructions(w http.ResponseWriter, r *http.Request) {
	var resp InstructionsResponse
	if !s.locked(w, r, func(ctx context.Context) {
		resp = s.instructions(runFrom(r))
	}) {
		return
	}
	s.writeJSON(w, resp)
}

// GetFlowchart handles GET /runs/{run}/flowchart, returning Mermaid source.
func (s *Server) GetFlowchart(w http.ResponseWriter, r *http.Request) {
	run := runFrom(r)
	var ins []domain.Instruction
	if !s.locked(w, r, func(ctx context.Context) {
		ins = s.Board.Instructions(run)
	}) {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(graph.GenerateMermaid(run, ins, nil)))
}

// GetRender handles GET /runs/{run}/render.png. An optional ?width= scales the
// image down.
func (s *Server) GetRender(w http.ResponseWriter, r *http.Request) {
	maxWidth := 0
	if v := r.URL.Query().Get("width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "width must be a non-negative integer", http.StatusBadRequest)
			return
		}
		maxWidth = n
	}

	var (
		img *image.RGBA
		err error
	)
	if !s.locked(w, r, func(ctx context.Context) {
		img, err = s.Board.Render(runFrom(r))
	}) {
		return
	}
	if errors.Is(err, waypoint.ErrNoBackground) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if errors.Is(err, render.ErrFrameTooLarge) {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
		s.logger.Error("Render failed", "err", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if err := render.EncodePNG(w, render.Thumbnail(img, maxWidth)); err != nil {
		s.logger.Error("PNG encode failed", "err", err)
	}
}

// SubscribeEvents handles GET /events?run=... (SSE). Each message is the
// InstructionsResponse of the run after a change.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	run := domain.RunID(r.URL.Query().Get("run"))
	if run == "" {
		http.Error(w, "run query parameter is required", http.StatusBadRequest)
		return
	}
	if !s.Board.HasRun(run) {
		http.Error(w, fmt.Sprintf("unknown run %q", run), http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: Subscribing to run updates", "run", run)
	ch, cancel := s.Streams.Subscribe(run)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "run", run)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: instructions\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
