package sched

import (
	"context"
	"fmt"
	"log"

	"github.com/sweeney/flowmouse/internal/clock"
)

// Handler is a task body. It runs to completion; a returned error is counted
// and logged but never stops the schedule.
type Handler func(cx *Context) error

// State is a task's position in its release cycle.
type State uint8

const (
	Idle State = iota
	Armed
	Due
	Running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Due:
		return "due"
	case Running:
		return "running"
	}
	return "unknown"
}

// TaskStats are per-task counters kept by the executor.
type TaskStats struct {
	Name       string
	Priority   Priority
	State      State
	Dispatches uint64
	Overruns   uint64
	// Late counts re-arms whose deadline had already passed when armed.
	Late   uint64
	Errors uint64
	// MaxLatency is the largest observed delay between deadline and dispatch, in ticks.
	MaxLatency int32
	// NextAt is the pending deadline while State is Armed or Due.
	NextAt clock.Tick
}

type task struct {
	spec    TaskSpec
	handler Handler
	state   State
	at      clock.Tick
}

// Executor owns the timer queue, the ready queues and the current effective
// priority. All methods must be called from the goroutine running Run, or
// before Run starts.
//
// Preemption is taken at defined points: after each task completes, on every
// ScheduleAt, and on resource lock entry and exit. At each point the executor
// releases due timer entries and runs any ready task whose priority is above
// the current effective priority, nested on the same stack.
type Executor struct {
	clock clock.Monotonic
	alarm clock.Alarm
	table Table

	tasks []task
	stats []TaskStats
	queue timerQueue
	ready readyQueues

	level   Priority
	seq     uint64
	started bool

	armed   bool
	armedAt clock.Tick

	// done is Run's context channel; dispatch stops early once it closes.
	done <-chan struct{}

	// OnOverrun is called when ScheduleAt finds a pending instance.
	OnOverrun func(name string, at clock.Tick)
	// OnError is called when a handler returns an error.
	OnError func(name string, err error)
}

// New creates an executor for table. Every task must be given a handler with
// Bind before Start.
func New(table Table, mono clock.Monotonic, alarm clock.Alarm) (*Executor, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	e := &Executor{
		clock: mono,
		alarm: alarm,
		table: table,
		tasks: make([]task, len(table.Tasks)),
		stats: make([]TaskStats, len(table.Tasks)),
		queue: newTimerQueue(len(table.Tasks)),
		ready: newReadyQueues(len(table.Tasks)),
	}
	for i, spec := range table.Tasks {
		e.tasks[i].spec = spec
		e.stats[i] = TaskStats{Name: spec.Name, Priority: spec.Priority}
	}
	e.OnOverrun = func(name string, at clock.Tick) {
		log.Printf("sched: overrun: task %s still pending, rejected deadline %d", name, at)
	}
	e.OnError = func(name string, err error) {
		log.Printf("sched: task %s: %v", name, err)
	}
	return e, nil
}

// Table returns the executor's task table.
func (e *Executor) Table() Table { return e.table }

// Bind attaches a handler to the named task.
func (e *Executor) Bind(name string, h Handler) error {
	id, ok := e.table.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTask, name)
	}
	e.tasks[id].handler = h
	return nil
}

// ScheduleAt arms task id to fire at tick at. It fails with ErrOverrun if the
// task already has a pending entry that has not started running.
func (e *Executor) ScheduleAt(id TaskID, at clock.Tick) error {
	if id < 0 || int(id) >= len(e.tasks) {
		return fmt.Errorf("%w: id %d", ErrUnknownTask, id)
	}
	t := &e.tasks[id]
	if t.state == Armed || t.state == Due {
		e.stats[id].Overruns++
		if e.OnOverrun != nil {
			e.OnOverrun(t.spec.Name, at)
		}
		return fmt.Errorf("%w: task %q pending at %d", ErrOverrun, t.spec.Name, t.at)
	}

	if e.started && clock.Before(at, e.clock.Now()) {
		e.stats[id].Late++
	}

	e.seq++
	t.state = Armed
	t.at = at
	e.queue.insert(entry{id: id, at: at, prio: t.spec.Priority, seq: e.seq})

	e.preempt()
	return nil
}

// ScheduleAll arms every task at start + its offset. Used during init.
func (e *Executor) ScheduleAll(start clock.Tick) error {
	for i, spec := range e.table.Tasks {
		if err := e.ScheduleAt(TaskID(i), start.Add(spec.Offset)); err != nil {
			return err
		}
	}
	return nil
}

// Start ends the init phase: preemption points become active and due tasks run.
func (e *Executor) Start() error {
	for _, t := range e.tasks {
		if t.handler == nil {
			return fmt.Errorf("%w: %q", ErrNoHandler, t.spec.Name)
		}
	}
	e.started = true
	e.Poll()
	return nil
}

// Poll handles a compare match: due entries are released, ready tasks above
// the current effective priority run, and the alarm is re-armed. Only entries
// due when the pass starts are released, so a task that keeps re-arming into
// the past yields back to the caller between passes.
func (e *Executor) Poll() {
	if !e.started {
		return
	}
	e.dispatchAbove(e.level)
	e.rearm()
}

// Run starts the executor and services alarm fires until ctx is done.
func (e *Executor) Run(ctx context.Context) error {
	e.done = ctx.Done()
	defer func() { e.done = nil }()
	if err := e.Start(); err != nil {
		return err
	}
	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
		case <-e.alarm.C():
			e.Poll()
		}
	}
	e.alarm.Disarm()
	e.armed = false
	return nil
}

// Stats returns a copy of the per-task counters.
func (e *Executor) Stats() []TaskStats {
	out := make([]TaskStats, len(e.stats))
	copy(out, e.stats)
	for i, t := range e.tasks {
		out[i].State = t.state
		out[i].NextAt = t.at
	}
	return out
}

// Level returns the current effective priority.
func (e *Executor) Level() Priority { return e.level }

// Pending returns the number of armed entries in the timer queue.
func (e *Executor) Pending() int { return e.queue.len() }

// State returns the release state of task id.
func (e *Executor) State(id TaskID) State { return e.tasks[id].state }

func (e *Executor) release(now clock.Tick) {
	for {
		head, ok := e.queue.popDue(now)
		if !ok {
			return
		}
		e.tasks[head.id].state = Due
		e.ready.push(head.prio, head.id)
	}
}

func (e *Executor) dispatchAbove(floor Priority) {
	now := e.clock.Now()
	for !e.stopping() {
		e.release(now)
		id, ok := e.ready.popAbove(floor)
		if !ok {
			return
		}
		e.run(id)
	}
}

func (e *Executor) stopping() bool {
	if e.done == nil {
		return false
	}
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

func (e *Executor) run(id TaskID) {
	t := &e.tasks[id]
	st := &e.stats[id]

	now := e.clock.Now()
	if lat := clock.Delta(now, t.at); lat > st.MaxLatency {
		st.MaxLatency = lat
	}
	st.Dispatches++
	t.state = Running

	cx := Context{e: e, id: id, scheduled: t.at}
	prev := e.level
	e.level = t.spec.Priority
	err := e.invoke(t.handler, &cx, prev)

	if t.state == Running {
		t.state = Idle
	}
	if err != nil {
		st.Errors++
		if e.OnError != nil {
			e.OnError(t.spec.Name, err)
		}
	}
}

func (e *Executor) invoke(h Handler, cx *Context, prev Priority) error {
	defer e.restore(prev)
	return h(cx)
}

// raise lifts the effective priority to at least p and returns the old level.
func (e *Executor) raise(p Priority) Priority {
	prev := e.level
	if p > e.level {
		e.level = p
	}
	return prev
}

func (e *Executor) restore(p Priority) { e.level = p }

// preempt is a preemption point.
func (e *Executor) preempt() {
	if !e.started {
		return
	}
	e.dispatchAbove(e.level)
	e.rearm()
}

func (e *Executor) rearm() {
	head, ok := e.queue.peek()
	if !ok {
		if e.armed {
			e.alarm.Disarm()
			e.armed = false
		}
		return
	}
	if e.armed && e.armedAt == head.at {
		return
	}
	e.alarm.Arm(head.at)
	e.armed = true
	e.armedAt = head.at
}
