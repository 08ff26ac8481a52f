// Package sched implements a fixed-priority, timer-driven task executor with
// priority-ceiling resource arbitration.
//
// The task set is declared once as a Table. Each task has a static priority and
// a period in clock ticks. Tasks are released by the timer queue and run to
// completion; a task that wants to run again re-arms itself from its own body.
// Shared state is wrapped in a Resource whose ceiling is the highest priority of
// any task that accesses it, derived from the table's declared access sets.
package sched

import (
	"fmt"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/sweeney/flowmouse/internal/clock"
)

// TaskID is a task's index in its Table.
type TaskID int

// Priority is a static task priority. Higher is more urgent. Zero is the idle
// level and is never assigned to a task.
type Priority uint8

// MaxPriority is the highest assignable priority (4 bits of interrupt priority).
const MaxPriority Priority = 15

// TaskSpec declares one task.
type TaskSpec struct {
	Name     string
	Priority Priority
	// Period is the re-arm interval in ticks.
	Period clock.Tick
	// Offset is the first release relative to the start tick.
	Offset clock.Tick
	// Resources lists the shared resources the task body locks.
	Resources []string
}

// Table is the static task configuration. A task's TaskID is its index.
type Table struct {
	Tasks []TaskSpec
}

// Validate checks names, priorities and periods.
func (t Table) Validate() error {
	if len(t.Tasks) == 0 {
		return fmt.Errorf("%w: empty task table", ErrInvalidTable)
	}
	seen := make(map[string]bool, len(t.Tasks))
	for i, spec := range t.Tasks {
		if spec.Name == "" {
			return fmt.Errorf("%w: task %d has no name", ErrInvalidTable, i)
		}
		if seen[spec.Name] {
			return fmt.Errorf("%w: duplicate task %q", ErrInvalidTable, spec.Name)
		}
		seen[spec.Name] = true

		if spec.Priority == 0 || spec.Priority > MaxPriority {
			return fmt.Errorf("%w: task %q priority %d outside 1..%d", ErrInvalidTable, spec.Name, spec.Priority, MaxPriority)
		}
		if spec.Period == 0 {
			return fmt.Errorf("%w: task %q has zero period", ErrInvalidTable, spec.Name)
		}
		if spec.Period >= clock.HalfRange {
			return fmt.Errorf("%w: task %q period %d", ErrHorizon, spec.Name, spec.Period)
		}
		if spec.Offset >= clock.HalfRange {
			return fmt.Errorf("%w: task %q offset %d", ErrHorizon, spec.Name, spec.Offset)
		}
	}
	return nil
}

// Lookup returns the ID of the named task.
func (t Table) Lookup(name string) (TaskID, bool) {
	for i, spec := range t.Tasks {
		if spec.Name == name {
			return TaskID(i), true
		}
	}
	return 0, false
}

// Ceilings returns the priority ceiling of every resource named in the table.
// The ceiling is the highest priority among the tasks that access it.
func (t Table) Ceilings() map[string]Priority {
	g := simple.NewDirectedGraph()
	resources := make(map[string]int64)
	names := make(map[int64]string)

	for i := range t.Tasks {
		g.AddNode(simple.Node(int64(i)))
	}
	next := int64(len(t.Tasks))
	for i, spec := range t.Tasks {
		for _, name := range spec.Resources {
			id, ok := resources[name]
			if !ok {
				id = next
				next++
				resources[name] = id
				names[id] = name
				g.AddNode(simple.Node(id))
			}
			if !g.HasEdgeFromTo(int64(i), id) {
				g.SetEdge(g.NewEdge(simple.Node(int64(i)), simple.Node(id)))
			}
		}
	}

	ceilings := make(map[string]Priority, len(resources))
	for id, name := range names {
		var ceiling Priority
		accessors := g.To(id)
		for accessors.Next() {
			p := t.Tasks[accessors.Node().ID()].Priority
			if p > ceiling {
				ceiling = p
			}
		}
		ceilings[name] = ceiling
	}
	return ceilings
}

// Accessors returns the names of the tasks that declare access to resource.
func (t Table) Accessors(resource string) []string {
	var out []string
	for _, spec := range t.Tasks {
		for _, r := range spec.Resources {
			if r == resource {
				out = append(out, spec.Name)
				break
			}
		}
	}
	return out
}

// CheckCeiling rejects a ceiling below the highest accessor priority.
func (t Table) CheckCeiling(resource string, ceiling Priority) error {
	want, ok := t.Ceilings()[resource]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownResource, resource)
	}
	if ceiling < want {
		return fmt.Errorf("%w: resource %q ceiling %d below accessor priority %d", ErrCeiling, resource, ceiling, want)
	}
	return nil
}

// Access maps task names to the resources their bodies lock. It is what the
// code does; the table's Resources are what the configuration declares.
type Access map[string][]string

// CheckAccess rejects a table in which a task leaves out a resource its body
// locks. Such a table would derive a ceiling below the task's priority.
func (t Table) CheckAccess(req Access) error {
	for _, spec := range t.Tasks {
		for _, r := range req[spec.Name] {
			if !slices.Contains(spec.Resources, r) {
				return fmt.Errorf("%w: task %q locks %q without declaring it", ErrUndeclared, spec.Name, r)
			}
		}
	}
	return nil
}

// Ceiling returns the highest priority in t among the tasks that lock resource.
func (a Access) Ceiling(t Table, resource string) Priority {
	var ceiling Priority
	for _, spec := range t.Tasks {
		if spec.Priority > ceiling && slices.Contains(a[spec.Name], resource) {
			ceiling = spec.Priority
		}
	}
	return ceiling
}

// CheckCeiling rejects ceiling if a task in t locks resource at a higher priority.
func (a Access) CheckCeiling(t Table, resource string, ceiling Priority) error {
	if want := a.Ceiling(t, resource); ceiling < want {
		return fmt.Errorf("%w: resource %q ceiling %d below locking priority %d", ErrCeiling, resource, ceiling, want)
	}
	return nil
}
