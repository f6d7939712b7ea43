package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/internal/presentation/graph"
	"github.com/aretw0/waypoint/pkg/compiler"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/draw"
	"github.com/aretw0/waypoint/pkg/geometry"
	"github.com/aretw0/waypoint/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const runsURI = "waypoint://runs"

// Board is the part of *waypoint.Board the MCP tools drive.
type Board interface {
	Runs() []domain.RunID
	HasRun(run domain.RunID) bool
	ActiveRun() domain.RunID
	Background() *domain.Background
	SetBackground(ctx context.Context, bg *domain.Background)
	SelectRun(run domain.RunID)
	PointerDown(p geometry.Point, opts draw.Options)
	PointerMove(p geometry.Point) (domain.Shape, bool)
	PointerUp(ctx context.Context, p geometry.Point, opts draw.Options) (domain.Shape, bool)
	Undo(ctx context.Context, run domain.RunID) bool
	Redo(ctx context.Context, run domain.RunID) bool
	Clear(ctx context.Context, run domain.RunID)
	Instructions(run domain.RunID) []domain.Instruction
	Summary(run domain.RunID) compiler.Summary
	Stats(run domain.RunID) (step, total int)
}

var _ Board = (*waypoint.Board)(nil)

// RunStatus describes one run after a tool call.
type RunStatus struct {
	Run          domain.RunID         `json:"run" jsonschema_description:"Run identifier"`
	Step         int                  `json:"step" jsonschema_description:"Undo/redo cursor"`
	Total        int                  `json:"total" jsonschema_description:"Number of stored drawing actions"`
	Changed      bool                 `json:"changed" jsonschema_description:"Whether the call changed the run"`
	Instructions []domain.Instruction `json:"instructions" jsonschema_description:"Compiled motion program of the run"`
	Summary      compiler.Summary     `json:"summary" jsonschema_description:"Totals of the motion program"`
}

// RunArgs selects a run.
type RunArgs struct {
	Run string `json:"run"`
}

// SegmentArgs draws a straight move.
type SegmentArgs struct {
	Run         string  `json:"run"`
	X1          float64 `json:"x1"`
	Y1          float64 `json:"y1"`
	X2          float64 `json:"x2"`
	Y2          float64 `json:"y2"`
	Color       string  `json:"color,omitempty"`
	StrokeWidth float64 `json:"stroke_width,omitempty"`
}

// CircleArgs marks an area of interest.
type CircleArgs struct {
	Run         string  `json:"run"`
	CX          float64 `json:"cx"`
	CY          float64 `json:"cy"`
	Radius      float64 `json:"radius"`
	Color       string  `json:"color,omitempty"`
	StrokeWidth float64 `json:"stroke_width,omitempty"`
}

// BackgroundArgs sets the reference image.
type BackgroundArgs struct {
	Source   string  `json:"source"`
	WidthPx  float64 `json:"width_px"`
	HeightPx float64 `json:"height_px,omitempty"`
}

// Server exposes a Board as an MCP server.
type Server struct {
	board     Board
	sessions  *session.Manager
	lockKey   string
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithLockKey sets the session-manager key guarding the board (default "board").
func WithLockKey(key string) Option {
	return func(s *Server) {
		s.lockKey = key
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(board Board, sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		board:     board,
		sessions:  sessions,
		lockKey:   "board",
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("waypoint-mcp", strings.TrimSpace(waypoint.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sessions == nil {
		s.sessions = session.NewManager(nil, session.WithLogger(s.logger))
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// MCPServer exposes the underlying server, e.g. for other transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List the drawing runs with their undo/redo position."),
	), s.handleListRuns)

	s.mcpServer.AddTool(mcp.NewTool("set_background",
		mcp.WithDescription("Load the reference map. Its pixel width spans the configured physical width. Replacing a map clears every run."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Image path or URL")),
		mcp.WithNumber("width_px", mcp.Required(), mcp.Description("Width the map is laid out at, in pixels")),
		mcp.WithNumber("height_px", mcp.Description("Height in pixels (optional)")),
	), mcp.NewStructuredToolHandler(s.handleSetBackground))

	s.mcpServer.AddTool(mcp.NewTool("draw_segment",
		mcp.WithDescription("Trace a straight move from (x1,y1) to (x2,y2), in map pixels, on a run."),
		mcp.WithString("run", mcp.Required(), mcp.Description("Run identifier, e.g. run-1")),
		mcp.WithNumber("x1", mcp.Required()),
		mcp.WithNumber("y1", mcp.Required()),
		mcp.WithNumber("x2", mcp.Required()),
		mcp.WithNumber("y2", mcp.Required()),
		mcp.WithString("color", mcp.Description("Stroke colour, #rgb or #rrggbb")),
		mcp.WithNumber("stroke_width", mcp.Description("Stroke width in pixels")),
		mcp.WithOutputSchema[RunStatus](),
	), mcp.NewStructuredToolHandler(s.handleDrawSegment))

	s.mcpServer.AddTool(mcp.NewTool("draw_circle",
		mcp.WithDescription("Mark a circular area of interest on a run. Circles do not produce instructions."),
		mcp.WithString("run", mcp.Required(), mcp.Description("Run identifier")),
		mcp.WithNumber("cx", mcp.Required()),
		mcp.WithNumber("cy", mcp.Required()),
		mcp.WithNumber("radius", mcp.Required(), mcp.Description("Radius in map pixels")),
		mcp.WithString("color", mcp.Description("Stroke colour")),
		mcp.WithNumber("stroke_width", mcp.Description("Stroke width in pixels")),
		mcp.WithOutputSchema[RunStatus](),
	), mcp.NewStructuredToolHandler(s.handleDrawCircle))

	for _, t := range []struct {
		name, desc string
		op         func(ctx context.Context, run domain.RunID) bool
	}{
		{"undo", "Undo the last drawing action of a run.", s.board.Undo},
		{"redo", "Redo the next undone drawing action of a run.", s.board.Redo},
		{"clear_run", "Erase every drawing action of a run.", func(ctx context.Context, run domain.RunID) bool {
			s.board.Clear(ctx, run)
			return true
		}},
	} {
		op := t.op
		s.mcpServer.AddTool(mcp.NewTool(t.name,
			mcp.WithDescription(t.desc),
			mcp.WithString("run", mcp.Required(), mcp.Description("Run identifier")),
			mcp.WithOutputSchema[RunStatus](),
		), mcp.NewStructuredToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args RunArgs) (RunStatus, error) {
			return s.history(ctx, args.Run, op)
		}))
	}

	s.mcpServer.AddTool(mcp.NewTool("get_instructions",
		mcp.WithDescription("Compile the visible path of a run into move/turn instructions."),
		mcp.WithString("run", mcp.Required(), mcp.Description("Run identifier")),
		mcp.WithOutputSchema[RunStatus](),
	), mcp.NewStructuredToolHandler(s.handleGetInstructions))

	s.mcpServer.AddTool(mcp.NewTool("get_flowchart",
		mcp.WithDescription("Render the instructions of a run as a Mermaid flowchart."),
		mcp.WithString("run", mcp.Required(), mcp.Description("Run identifier")),
	), s.handleGetFlowchart)
}

func (s *Server) lookup(run string) (domain.RunID, error) {
	id := domain.RunID(run)
	if !s.board.HasRun(id) {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownRun, run)
	}
	return id, nil
}

func (s *Server) status(run domain.RunID, changed bool) RunStatus {
	step, total := s.board.Stats(run)
	ins := s.board.Instructions(run)
	if ins == nil {
		ins = []domain.Instruction{}
	}
	return RunStatus{
		Run:          run,
		Step:         step,
		Total:        total,
		Changed:      changed,
		Instructions: ins,
		Summary:      s.board.Summary(run),
	}
}

func (s *Server) handleListRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := s.runsJSON(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) runsJSON(ctx context.Context) ([]byte, error) {
	var out []RunStatus
	err := s.sessions.WithLock(ctx, s.lockKey, func(ctx context.Context) error {
		for _, run := range s.board.Runs() {
			out = append(out, s.status(run, false))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

func (s *Server) handleSetBackground(ctx context.Context, _ mcp.CallToolRequest, args BackgroundArgs) (domain.Background, error) {
	bg := domain.Background{Source: args.Source, WidthPx: args.WidthPx, HeightPx: args.HeightPx}
	if err := bg.Validate(); err != nil {
		return domain.Background{}, err
	}
	err := s.sessions.WithLock(ctx, s.lockKey, func(ctx context.Context) error {
		s.board.SetBackground(ctx, &bg)
		return nil
	})
	return bg, err
}

// drag replays one gesture on run: down, move, up.
func (s *Server) drag(ctx context.Context, runArg string, from, to geometry.Point, opts draw.Options) (RunStatus, error) {
	run, err := s.lookup(runArg)
	if err != nil {
		return RunStatus{}, err
	}

	var status RunStatus
	err = s.sessions.WithLock(ctx, s.lockKey, func(ctx context.Context) error {
		if s.board.Background() == nil {
			return errors.New("no background image: call set_background first")
		}
		if s.board.ActiveRun() != run {
			s.board.SelectRun(run)
		}
		s.board.PointerDown(from, opts)
		s.board.PointerMove(to)
		_, committed := s.board.PointerUp(ctx, to, opts)
		status = s.status(run, committed)
		return nil
	})
	return status, err
}

func (s *Server) handleDrawSegment(ctx context.Context, _ mcp.CallToolRequest, args SegmentArgs) (RunStatus, error) {
	opts := draw.Options{
		Tool:  domain.ToolSegment,
		Style: domain.Style{Color: args.Color, StrokeWidth: args.StrokeWidth},
	}
	return s.drag(ctx, args.Run, geometry.Point{X: args.X1, Y: args.Y1}, geometry.Point{X: args.X2, Y: args.Y2}, opts)
}

func (s *Server) handleDrawCircle(ctx context.Context, _ mcp.CallToolRequest, args CircleArgs) (RunStatus, error) {
	if args.Radius < 0 {
		return RunStatus{}, errors.New("radius cannot be negative")
	}
	opts := draw.Options{
		Tool:  domain.ToolCircle,
		Style: domain.Style{Color: args.Color, StrokeWidth: args.StrokeWidth},
	}
	center := geometry.Point{X: args.CX, Y: args.CY}
	return s.drag(ctx, args.Run, center, geometry.Point{X: args.CX + args.Radius, Y: args.CY}, opts)
}

func (s *Server) history(ctx context.Context, runArg string, op func(context.Context, domain.RunID) bool) (RunStatus, error) {
	run, err := s.lookup(runArg)
	if err != nil {
		return RunStatus{}, err
	}
	var status RunStatus
	err = s.sessions.WithLock(ctx, s.lockKey, func(ctx context.Context) error {
		status = s.status(run, op(ctx, run))
		return nil
	})
	return status, err
}

func (s *Server) handleGetInstructions(ctx context.Context, _ mcp.CallToolRequest, args RunArgs) (RunStatus, error) {
	run, err := s.lookup(args.Run)
	if err != nil {
		return RunStatus{}, err
	}
	var status RunStatus
	err = s.sessions.WithLock(ctx, s.lockKey, func(ctx context.Context) error {
		status = s.status(run, false)
		return nil
	})
	return status, err
}

func (s *Server) handleGetFlowchart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runArg, err := request.RequireString("run")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	run, err := s.lookup(runArg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var ins []domain.Instruction
	err = s.sessions.WithLock(ctx, s.lockKey, func(ctx context.Context) error {
		ins = s.board.Instructions(run)
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(run, ins, nil)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(runsURI, "Drawing runs and their compiled instructions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := s.runsJSON(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list runs: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      runsURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
