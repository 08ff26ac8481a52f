package logic

import "math"

// MaxPeriod is the longest period the 32-bit tick counter can order.
const MaxPeriod = 1<<31 - 1

// ShouldToggle reports whether the toggle task flips its output: when the
// enable input is high, or when input and output are both low.
func ShouldToggle(input, output bool) bool {
	return input || !output
}

// ScaledPeriod returns base*scale in ticks, truncated toward zero.
// The result is at least 1 and at most MaxPeriod.
func ScaledPeriod(base uint32, scale float64) uint32 {
	if math.IsNaN(scale) || scale <= 0 {
		return Clamp(base, 1, MaxPeriod)
	}
	p := math.Trunc(float64(base) * scale)
	if p >= MaxPeriod {
		return MaxPeriod
	}
	if p < 1 {
		return 1
	}
	return uint32(p)
}
