// Package clock provides the monotonic tick counter that drives the scheduler.
//
// Ticks are 32-bit and wrap. Two ticks can only be ordered when they are less
// than HalfRange apart; every comparison in this package goes through Delta,
// which interprets the wrapping difference as a signed value.
package clock

// Tick is one unit of the free-running counter.
type Tick uint32

// HalfRange is the largest distance over which two ticks can be ordered.
// Periods must stay strictly below it.
const HalfRange = 1 << 31

// Add returns t advanced by d ticks, wrapping.
func (t Tick) Add(d Tick) Tick { return t + d }

// Delta returns a - b as a signed difference. The result is only meaningful
// when the two ticks are less than HalfRange apart.
func Delta(a, b Tick) int32 { return int32(a - b) }

// Before reports whether a comes strictly before b.
func Before(a, b Tick) bool { return Delta(a, b) < 0 }

// Due reports whether a deadline at has been reached at now.
func Due(now, at Tick) bool { return Delta(now, at) >= 0 }

// Monotonic is a read-only view of the counter.
type Monotonic interface {
	Now() Tick
}

// Delayer performs a bounded busy wait.
type Delayer interface {
	DelayMicros(us uint32)
}
