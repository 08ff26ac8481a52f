package tasks

import (
	"errors"
	"fmt"

	"github.com/sweeney/flowmouse/internal/clock"
	"github.com/sweeney/flowmouse/internal/gpio"
	"github.com/sweeney/flowmouse/internal/logic"
	"github.com/sweeney/flowmouse/internal/sched"
)

// Toggle flips an output and re-arms itself after Base ticks stretched by the
// current scale factor.
type Toggle struct {
	Enable gpio.Input
	Output gpio.Output
	Scale  *sched.Resource[float64]
	// Base is the unscaled period. Zero uses the task table period.
	Base clock.Tick

	// LastPeriod is the period computed on the most recent dispatch.
	LastPeriod clock.Tick
}

// Run is the task body. The period is computed and the task re-armed even if
// the pins fail.
func (t *Toggle) Run(cx *sched.Context) error {
	err := t.toggle()

	var scale float64
	if lerr := t.Scale.Lock(cx, func(v *float64) error {
		scale = *v
		return nil
	}); lerr != nil {
		err = errors.Join(err, fmt.Errorf("read scale: %w", lerr))
	}
	base := t.Base
	if base == 0 {
		base = cx.Task().Period
	}
	t.LastPeriod = clock.Tick(logic.ScaledPeriod(uint32(base), scale))
	return rearm(cx, t.LastPeriod, err)
}

func (t *Toggle) toggle() error {
	in, err := t.Enable.Read()
	if err != nil {
		return fmt.Errorf("read enable: %w", err)
	}
	out, err := t.Output.Get()
	if err != nil {
		return fmt.Errorf("read output: %w", err)
	}
	if !logic.ShouldToggle(in, out) {
		return nil
	}
	if err := t.Output.Toggle(); err != nil {
		return fmt.Errorf("toggle output: %w", err)
	}
	return nil
}
