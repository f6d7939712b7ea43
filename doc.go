/*
Package waypoint turns a path traced over a reference map into a robot motion program.

A user drags segments (planned moves) and circles (areas of interest) over a
background image whose physical width is known. Every segment freezes its length
in centimetres and its heading when it is committed. Each named run keeps its own
undo/redo timeline, and the visible segments of a run compile into an ordered list
of "move forward" and "turn left/right" instructions.

# Architecture

The Board is the entry point. It wires the pure core packages together:

  - pkg/geometry: unit conversion, headings and turns.
  - pkg/domain: shapes, timelines, instructions and sentinel errors.
  - pkg/history: per-run (history, step) timelines.
  - pkg/draw: the Idle/Drawing pointer state machine.
  - pkg/compiler: visible segments to instructions.
  - pkg/render: raster preview with length and turn labels.

Persistence goes through ports.TimelineStore (memory, file and Redis adapters).
It is best-effort: a failed save is logged and reported through
LifecycleHooks.OnPersistError, and the in-memory timeline stays authoritative.

# Usage

	board, err := waypoint.New(waypoint.WithRuns(2), waypoint.WithReferenceWidth(240))
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()
	board.SetBackground(ctx, &domain.Background{Source: "field.png", WidthPx: 1000, HeightPx: 500})

	seg := draw.Options{Tool: domain.ToolSegment}
	board.PointerDown(geometry.Point{X: 0, Y: 0}, seg)
	board.PointerUp(ctx, geometry.Point{X: 500, Y: 0}, seg)

	for _, ins := range board.Instructions("run-1") {
		fmt.Println(ins.Step, ins.Action, ins.Value)
	}

Board is single-threaded. Servers that share one Board between requests
serialise access with session.Manager.
*/
package waypoint
