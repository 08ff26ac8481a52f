package logic

import "math"

// Sample feeds one reading of the increase/decrease inputs through the latch
// and returns the change to apply. Increase wins when both are pressed.
func (l *Latch) Sample(up, down bool) Direction {
	if l.Modifying {
		if !up && !down {
			l.Modifying = false
		}
		return Hold
	}
	switch {
	case up:
		l.Modifying = true
		return Up
	case down:
		l.Modifying = true
		return Down
	}
	return Hold
}

// AdjustScale applies d to scale in steps of step. The result never drops
// below MinScale: decreasing from any value within one step of MinScale
// resets to exactly MinScale.
func AdjustScale(scale, step float64, d Direction) float64 {
	if step <= 0 {
		step = DefaultStep
	}
	if scale < MinScale || math.IsNaN(scale) {
		scale = MinScale
	}
	switch d {
	case Up:
		scale = round(scale + step)
	case Down:
		if scale <= MinScale+step+scaleEpsilon {
			return MinScale
		}
		scale = round(scale - step)
	}
	return math.Max(scale, MinScale)
}

// round trims accumulated binary error so repeated steps land on k*step.
func round(v float64) float64 {
	return math.Round(v/scaleEpsilon) * scaleEpsilon
}
