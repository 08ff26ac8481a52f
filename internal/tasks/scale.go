package tasks

import (
	"fmt"
	"log"

	"github.com/sweeney/flowmouse/internal/gpio"
	"github.com/sweeney/flowmouse/internal/logic"
	"github.com/sweeney/flowmouse/internal/sched"
)

// ScaleAdjust reads the increase/decrease buttons and steps the scale factor.
type ScaleAdjust struct {
	Up    gpio.Input
	Down  gpio.Input
	Scale *sched.Resource[float64]
	Step  float64

	latch logic.Latch
}

// Run is the task body.
func (s *ScaleAdjust) Run(cx *sched.Context) error {
	return rearm(cx, cx.Task().Period, s.sample(cx))
}

func (s *ScaleAdjust) sample(cx *sched.Context) error {
	up, err := s.Up.Read()
	if err != nil {
		return fmt.Errorf("read up: %w", err)
	}
	down, err := s.Down.Read()
	if err != nil {
		return fmt.Errorf("read down: %w", err)
	}

	d := s.latch.Sample(up, down)
	if d == logic.Hold {
		return nil
	}
	var scale float64
	if err := s.Scale.Lock(cx, func(v *float64) error {
		*v = logic.AdjustScale(*v, s.Step, d)
		scale = *v
		return nil
	}); err != nil {
		return fmt.Errorf("adjust scale: %w", err)
	}
	log.Printf("scale: %s -> %.1f", d, scale)
	return nil
}
