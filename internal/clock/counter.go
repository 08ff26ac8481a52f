package clock

import (
	"runtime"
	"sync/atomic"
	"time"
)

// DefaultFrequency is the cycle counter rate after reset (16 MHz internal oscillator).
const DefaultFrequency = 16_000_000

// CycleCounter emulates a free-running cycle counter on a hosted system.
// Now returns 0 until Enable has been called.
//
// Elapsed time is measured with time.Since, which reads Go's monotonic clock,
// so stepping the wall clock (NTP at boot) does not move the counter.
type CycleCounter struct {
	freq  uint32
	start atomic.Pointer[time.Time] // nil while disabled
	since func(time.Time) time.Duration
}

// NewCycleCounter returns a disabled counter running at freqHz.
// A zero frequency selects DefaultFrequency.
func NewCycleCounter(freqHz uint32) *CycleCounter {
	if freqHz == 0 {
		freqHz = DefaultFrequency
	}
	return &CycleCounter{freq: freqHz, since: time.Since}
}

// Enable starts the counter. Further calls are no-ops.
func (c *CycleCounter) Enable() {
	now := time.Now()
	c.start.CompareAndSwap(nil, &now)
}

// Enabled reports whether Enable has been called.
func (c *CycleCounter) Enabled() bool { return c.start.Load() != nil }

// Now returns the current counter value.
func (c *CycleCounter) Now() Tick {
	start := c.start.Load()
	if start == nil {
		return 0
	}
	d := c.since(*start)
	if d < 0 {
		d = 0
	}
	elapsed := uint64(d)
	sec, rem := elapsed/uint64(time.Second), elapsed%uint64(time.Second)
	return Tick(sec*uint64(c.freq) + rem*uint64(c.freq)/uint64(time.Second))
}

// Frequency returns the tick rate in Hz.
func (c *CycleCounter) Frequency() uint32 { return c.freq }

// Ticks converts a duration to ticks, truncating.
func (c *CycleCounter) Ticks(d time.Duration) Tick {
	return Tick(uint64(d) * uint64(c.freq) / uint64(time.Second))
}

// Duration converts a tick count to wall time.
func (c *CycleCounter) Duration(t Tick) time.Duration {
	return time.Duration(uint64(t) * uint64(time.Second) / uint64(c.freq))
}

// Spinner busy-waits on a Monotonic clock.
type Spinner struct {
	Clock     Monotonic
	Frequency uint32
}

// DelayMicros spins until at least us microseconds worth of ticks have elapsed.
// The wait is bounded by the requested delay; it never blocks on anything else.
func (s Spinner) DelayMicros(us uint32) {
	want := int32(uint64(us) * uint64(s.Frequency) / 1_000_000)
	if want <= 0 {
		return
	}
	start := s.Clock.Now()
	for Delta(s.Clock.Now(), start) < want {
		runtime.Gosched()
	}
}
