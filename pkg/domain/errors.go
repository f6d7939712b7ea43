package domain

import "errors"

// ErrUnknownRun is the panic value (wrapped) when an operation names a run that was
// not configured. Valid run IDs are fixed at startup, so this is a caller bug.
var ErrUnknownRun = errors.New("unknown run")

// ErrTimelineNotFound is returned when a run has no persisted timeline in the store.
var ErrTimelineNotFound = errors.New("timeline not found")

// ErrInvalidTimeline is returned when a timeline cursor lies outside its history.
var ErrInvalidTimeline = errors.New("invalid timeline")

// ErrUnknownShape is returned when decoding a shape with an unrecognised kind.
var ErrUnknownShape = errors.New("unknown shape kind")

// ErrInvalidBackground is returned when a background has no usable size.
var ErrInvalidBackground = errors.New("invalid background")
