package sched

import (
	"fmt"

	"github.com/sweeney/flowmouse/internal/clock"
)

// Context is handed to a task body for the duration of one dispatch.
type Context struct {
	e         *Executor
	id        TaskID
	scheduled clock.Tick
}

// Scheduled returns the deadline this instance was released for. Re-arming
// relative to it, not to Now, keeps periodic tasks free of drift.
func (cx *Context) Scheduled() clock.Tick { return cx.scheduled }

// Now reads the monotonic clock.
func (cx *Context) Now() clock.Tick { return cx.e.clock.Now() }

// Task returns the running task's declaration.
func (cx *Context) Task() TaskSpec { return cx.e.tasks[cx.id].spec }

// ID returns the running task's ID.
func (cx *Context) ID() TaskID { return cx.id }

// Priority returns the current effective priority, which is raised while a
// resource is locked.
func (cx *Context) Priority() Priority { return cx.e.level }

// ScheduleAt arms any task; see Executor.ScheduleAt.
func (cx *Context) ScheduleAt(id TaskID, at clock.Tick) error {
	return cx.e.ScheduleAt(id, at)
}

// Rearm schedules the running task again at Scheduled + period.
func (cx *Context) Rearm(period clock.Tick) error {
	if period >= clock.HalfRange {
		return fmt.Errorf("%w: period %d", ErrHorizon, period)
	}
	return cx.e.ScheduleAt(cx.id, cx.scheduled.Add(period))
}

// RearmPeriod schedules the running task again after its declared period.
func (cx *Context) RearmPeriod() error {
	return cx.Rearm(cx.Task().Period)
}
