package sched

import "errors"

var (
	// ErrOverrun is returned when a task is scheduled while an earlier
	// instance is still pending.
	ErrOverrun = errors.New("sched: overrun")

	// ErrHorizon is returned for periods or offsets that cannot be ordered
	// on the wrapping clock.
	ErrHorizon = errors.New("sched: beyond half clock range")

	// ErrCeiling is returned when a resource ceiling is below one of its accessors.
	ErrCeiling = errors.New("sched: ceiling too low")

	// ErrUndeclared is returned when a task locks a resource its table entry
	// does not list.
	ErrUndeclared = errors.New("sched: undeclared resource access")

	ErrUnknownTask     = errors.New("sched: unknown task")
	ErrUnknownResource = errors.New("sched: unknown resource")
	ErrInvalidTable    = errors.New("sched: invalid task table")
	ErrNoHandler       = errors.New("sched: task has no handler")
)
