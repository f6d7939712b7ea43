package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventCommit       EventType = "commit"
	EventUndo         EventType = "undo"
	EventRedo         EventType = "redo"
	EventClear        EventType = "clear"
	EventReset        EventType = "reset"
	EventPersistError EventType = "persist_error"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Run       RunID     `json:"run"`
}

// ShapeEvent is emitted after a shape is committed to a run.
type ShapeEvent struct {
	EventBase
	Shape Shape `json:"shape"`
}

// HistoryEvent is emitted after the cursor of a run moves or the run is cleared.
type HistoryEvent struct {
	EventBase
	Step  int `json:"step"`
	Total int `json:"total"`
}

// PersistEvent reports a store failure. The in-memory timeline stays authoritative.
type PersistEvent struct {
	EventBase
	Err error `json:"-"`
}

// LifecycleHooks defines callbacks for board observability.
type LifecycleHooks struct {
	OnCommit       func(context.Context, *ShapeEvent)
	OnHistory      func(context.Context, *HistoryEvent)
	OnPersistError func(context.Context, *PersistEvent)
}
