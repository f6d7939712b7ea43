/*
Package domain contains the core data model of the Waypoint strategy-drawing engine.

It defines the drawable shapes, the per-run history timelines and the compiled motion
instructions. This package is kept pure and free of I/O or persistence concerns; the
only dependency is the geometry package used to freeze derived measurements at
construction time.

# Key Entities

  - Shape: a closed sum type with two variants, Segment and Circle. Shapes are values and
    never change after they are committed.
  - Batch: one completed drawing action (currently always a single Shape). The unit of undo/redo.
  - Timeline: the ordered batches of one run plus the undo/redo cursor.
  - Instruction: one step of the compiled motion program ("move forward", "turn left/right").
*/
package domain
