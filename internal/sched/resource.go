package sched

// Resource is state shared between tasks of different priorities. The value is
// only reachable through Lock, which raises the caller to the resource ceiling
// for the duration of the body. Correctness depends on the ceiling being at
// least the priority of every accessor; Table.CheckCeiling verifies that at
// build time and Lock does not re-check it.
type Resource[T any] struct {
	name    string
	ceiling Priority
	value   T
}

// NewResource creates a resource with an initial value.
func NewResource[T any](name string, ceiling Priority, init T) *Resource[T] {
	return &Resource[T]{name: name, ceiling: ceiling, value: init}
}

// NewTableResource creates a resource whose ceiling is derived from table.
func NewTableResource[T any](table Table, name string, init T) (*Resource[T], error) {
	ceiling, ok := table.Ceilings()[name]
	if !ok {
		return nil, ErrUnknownResource
	}
	return NewResource(name, ceiling, init), nil
}

// Name returns the resource name.
func (r *Resource[T]) Name() string { return r.name }

// Ceiling returns the resource's priority ceiling.
func (r *Resource[T]) Ceiling() Priority { return r.ceiling }

// Lock runs body with exclusive access to the value. The previous effective
// priority is restored on every exit path, including a panic in body.
func (r *Resource[T]) Lock(cx *Context, body func(v *T) error) error {
	e := cx.e
	e.preempt()
	prev := e.raise(r.ceiling)
	err := r.locked(e, prev, body)
	e.preempt()
	return err
}

func (r *Resource[T]) locked(e *Executor, prev Priority, body func(v *T) error) error {
	defer e.restore(prev)
	return body(&r.value)
}

// Value returns the value without arbitration. Only valid during init or
// after the executor has stopped.
func (r *Resource[T]) Value() T { return r.value }
