package clock

import (
	"sync"
	"time"
)

// Alarm models the hardware compare register. Arm replaces any previous
// deadline; the channel returned by C receives a value when it fires.
type Alarm interface {
	Arm(at Tick)
	Disarm()
	C() <-chan struct{}
}

// HostAlarm fires through time.AfterFunc against a CycleCounter.
type HostAlarm struct {
	counter *CycleCounter

	mu    sync.Mutex
	timer *time.Timer
	c     chan struct{}
}

// NewHostAlarm creates an alarm bound to counter.
func NewHostAlarm(counter *CycleCounter) *HostAlarm {
	return &HostAlarm{
		counter: counter,
		c:       make(chan struct{}, 1),
	}
}

// Arm schedules a fire at tick at. Deadlines already reached fire at once.
func (a *HostAlarm) Arm(at Tick) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}

	d := Delta(at, a.counter.Now())
	if d <= 0 {
		a.signal()
		return
	}
	a.timer = time.AfterFunc(a.counter.Duration(Tick(d)), a.signal)
}

// Disarm cancels a pending fire.
func (a *HostAlarm) Disarm() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// C returns the fire channel.
func (a *HostAlarm) C() <-chan struct{} { return a.c }

// signal pends the compare interrupt; a fire that is already pending absorbs it.
func (a *HostAlarm) signal() {
	select {
	case a.c <- struct{}{}:
	default:
	}
}
