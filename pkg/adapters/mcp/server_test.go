package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/pkg/adapters/memory"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *waypoint.Board) {
	t.Helper()
	store := memory.NewStore()
	board, err := waypoint.New(waypoint.WithRuns(2), waypoint.WithStore(store))
	require.NoError(t, err)
	return NewServer(board, session.NewManager(store)), board
}

func withBackground(t *testing.T, s *Server) {
	t.Helper()
	_, err := s.handleSetBackground(context.Background(), mcp.CallToolRequest{}, BackgroundArgs{Source: "field.png", WidthPx: 1000, HeightPx: 500})
	require.NoError(t, err)
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func TestDrawSegment_CompilesScenario(t *testing.T) {
	s, board := newTestServer(t)
	withBackground(t, s)
	ctx := context.Background()

	_, err := s.handleDrawSegment(ctx, mcp.CallToolRequest{}, SegmentArgs{Run: "run-2", X1: 0, Y1: 0, X2: 500, Y2: 0})
	require.NoError(t, err)
	status, err := s.handleDrawSegment(ctx, mcp.CallToolRequest{}, SegmentArgs{Run: "run-2", X1: 500, Y1: 0, X2: 500, Y2: 300, Color: "#00ff00"})
	require.NoError(t, err)

	assert.True(t, status.Changed)
	assert.Equal(t, 2, status.Step)
	assert.Equal(t, 2, status.Total)
	assert.Equal(t, []domain.Instruction{
		{Step: 1, Action: domain.ActionMoveForward, Value: "120.0cm"},
		{Step: 2, Action: domain.ActionTurnRight, Value: "90°"},
		{Step: 3, Action: domain.ActionMoveForward, Value: "72.0cm"},
	}, status.Instructions)
	assert.Equal(t, domain.RunID("run-2"), board.ActiveRun(), "drawing selects the run")
	assert.Empty(t, board.Instructions("run-1"))
}

func TestDrawSegment_Errors(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleDrawSegment(ctx, mcp.CallToolRequest{}, SegmentArgs{Run: "run-1", X2: 100})
	assert.ErrorContains(t, err, "no background")

	withBackground(t, s)
	_, err = s.handleDrawSegment(ctx, mcp.CallToolRequest{}, SegmentArgs{Run: "run-9", X2: 100})
	assert.ErrorIs(t, err, domain.ErrUnknownRun)

	status, err := s.handleDrawSegment(ctx, mcp.CallToolRequest{}, SegmentArgs{Run: "run-1", X1: 10, Y1: 10, X2: 10, Y2: 10})
	require.NoError(t, err)
	assert.False(t, status.Changed, "a zero-length drag is discarded")
	assert.Equal(t, 0, status.Total)
}

func TestDrawCircle(t *testing.T) {
	s, board := newTestServer(t)
	withBackground(t, s)
	ctx := context.Background()

	status, err := s.handleDrawCircle(ctx, mcp.CallToolRequest{}, CircleArgs{Run: "run-1", CX: 300, CY: 200, Radius: 50})
	require.NoError(t, err)
	assert.True(t, status.Changed)
	assert.Equal(t, 1, status.Total)
	assert.Empty(t, status.Instructions, "circles compile to nothing")

	shapes := board.VisibleShapes("run-1")
	require.Len(t, shapes, 1)
	c, ok := shapes[0].(domain.Circle)
	require.True(t, ok)
	assert.InDelta(t, 50.0, c.Radius, 1e-9)

	_, err = s.handleDrawCircle(ctx, mcp.CallToolRequest{}, CircleArgs{Run: "run-1", Radius: -1})
	assert.Error(t, err)
}

func TestHistoryTools(t *testing.T) {
	s, _ := newTestServer(t)
	withBackground(t, s)
	ctx := context.Background()

	for _, seg := range []SegmentArgs{
		{Run: "run-1", X2: 500},
		{Run: "run-1", X1: 500, X2: 500, Y2: 300},
	} {
		_, err := s.handleDrawSegment(ctx, mcp.CallToolRequest{}, seg)
		require.NoError(t, err)
	}

	status, err := s.history(ctx, "run-1", s.board.Undo)
	require.NoError(t, err)
	assert.True(t, status.Changed)
	assert.Equal(t, 1, status.Step)
	assert.Len(t, status.Instructions, 1)

	status, err = s.history(ctx, "run-1", s.board.Redo)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Step)

	status, err = s.history(ctx, "run-1", s.board.Redo)
	require.NoError(t, err)
	assert.False(t, status.Changed, "nothing left to redo")

	_, err = s.history(ctx, "nope", s.board.Undo)
	assert.ErrorIs(t, err, domain.ErrUnknownRun)
}

func TestGetInstructionsAndFlowchart(t *testing.T) {
	s, _ := newTestServer(t)
	withBackground(t, s)
	ctx := context.Background()
	_, err := s.handleDrawSegment(ctx, mcp.CallToolRequest{}, SegmentArgs{Run: "run-1", X2: 500})
	require.NoError(t, err)

	status, err := s.handleGetInstructions(ctx, mcp.CallToolRequest{}, RunArgs{Run: "run-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, status.Summary.Moves)
	assert.InDelta(t, 120.0, status.Summary.DistanceCm, 1e-9)

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"run": "run-1"}
	res, err := s.handleGetFlowchart(ctx, req)
	require.NoError(t, err)
	assert.False(t, res.IsError)
	text := textOf(t, res)
	assert.Contains(t, text, "graph TD")
	assert.Contains(t, text, `s1["1. move forward 120.0cm"]`)

	req.Params.Arguments = map[string]any{"run": "run-7"}
	res, err = s.handleGetFlowchart(ctx, req)
	require.NoError(t, err)
	assert.True(t, res.IsError)

	req.Params.Arguments = map[string]any{}
	res, err = s.handleGetFlowchart(ctx, req)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestListRuns(t *testing.T) {
	s, _ := newTestServer(t)

	res, err := s.handleListRuns(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)

	var runs []RunStatus
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, domain.RunID("run-1"), runs[0].Run)
	assert.Equal(t, domain.RunID("run-2"), runs[1].Run)
	assert.NotNil(t, runs[0].Instructions)
}

func TestSetBackground_RejectsBadSize(t *testing.T) {
	tests := []struct {
		name string
		args BackgroundArgs
	}{
		{"missing width", BackgroundArgs{Source: "x.png"}},
		{"huge width", BackgroundArgs{Source: "x.png", WidthPx: 1e300, HeightPx: 10}},
		{"huge height", BackgroundArgs{Source: "x.png", WidthPx: 1000, HeightPx: domain.MaxBackgroundPx + 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, board := newTestServer(t)
			_, err := s.handleSetBackground(context.Background(), mcp.CallToolRequest{}, tt.args)
			assert.ErrorIs(t, err, domain.ErrInvalidBackground)
			assert.Nil(t, board.Background())
		})
	}
}
