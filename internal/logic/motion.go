package logic

import "golang.org/x/exp/constraints"

// DefaultAmplitude is the synthetic displacement per report.
const DefaultAmplitude = 10

// NextCounter advances a counter that wraps at period.
func NextCounter(counter, period uint32) uint32 {
	if period == 0 {
		return 0
	}
	return (counter + 1) % period
}

// SyntheticDelta returns +amplitude in the first half of the period and
// -amplitude in the second. For period 2: counter 0 -> +A, 1 -> -A.
func SyntheticDelta(counter, period uint32, amplitude int8) int8 {
	if period == 0 || counter%period < period/2 {
		return amplitude
	}
	return -amplitude
}

// Accumulate adds d to sum, saturating at the int8 report range.
func Accumulate(sum int16, d int8) int16 {
	return Clamp(sum+int16(d), -128, 127)
}

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
