package clock

import "sync"

// FakeClock is a manually driven Monotonic for tests.
type FakeClock struct {
	mu  sync.Mutex
	now Tick

	// Frequency is used by DelayMicros to convert microseconds to ticks.
	// Zero means one tick per microsecond.
	Frequency uint32

	// Delays records every DelayMicros request.
	Delays []uint32
}

// NewFakeClock returns a clock reading start.
func NewFakeClock(start Tick) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the current fake time.
func (f *FakeClock) Now() Tick {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set moves the clock to t.
func (f *FakeClock) Set(t Tick) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d ticks.
func (f *FakeClock) Advance(d Tick) {
	f.mu.Lock()
	f.now += d
	f.mu.Unlock()
}

// DelayMicros advances the clock instead of spinning.
func (f *FakeClock) DelayMicros(us uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Delays = append(f.Delays, us)
	if f.Frequency == 0 {
		f.now += Tick(us)
		return
	}
	f.now += Tick(uint64(us) * uint64(f.Frequency) / 1_000_000)
}

// FakeAlarm records the deadlines it is armed with. Fire must be called by the test.
type FakeAlarm struct {
	// Armed is true while a deadline is set.
	Armed bool
	// Deadline is the last armed deadline.
	Deadline Tick
	// History contains every armed deadline in order.
	History []Tick
	// Disarms counts Disarm calls.
	Disarms int

	c chan struct{}
}

// NewFakeAlarm creates an unarmed alarm.
func NewFakeAlarm() *FakeAlarm {
	return &FakeAlarm{c: make(chan struct{}, 1)}
}

// Arm records at as the pending deadline.
func (a *FakeAlarm) Arm(at Tick) {
	a.Armed = true
	a.Deadline = at
	a.History = append(a.History, at)
}

// Disarm clears the pending deadline.
func (a *FakeAlarm) Disarm() {
	a.Armed = false
	a.Disarms++
}

// C returns the fire channel.
func (a *FakeAlarm) C() <-chan struct{} { return a.c }

// Fire pends a compare interrupt.
func (a *FakeAlarm) Fire() {
	select {
	case a.c <- struct{}{}:
	default:
	}
}
