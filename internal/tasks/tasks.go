// Package tasks implements the periodic task set: scale adjust, toggle, HID
// report and heartbeat. Each task is a struct holding its exclusively owned
// peripherals and the shared resources it locks; its Run method is the
// sched.Handler bound to the task table entry of the same name.
package tasks

import (
	"errors"

	"github.com/sweeney/flowmouse/internal/clock"
	"github.com/sweeney/flowmouse/internal/sched"
)

// Task names in the task table.
const (
	NameScaleAdjust = "scale_adjust"
	NameToggle      = "toggle"
	NameReport      = "hid_report"
	NameHeartbeat   = "heartbeat"
)

// Shared resource names.
const (
	ResScaler = "scaler"
	ResStats  = "report_stats"
)

// Requires lists the resources each task body locks. A task table must
// declare at least these for the ceilings to be sound.
var Requires = sched.Access{
	NameScaleAdjust: {ResScaler},
	NameToggle:      {ResScaler},
	NameReport:      {ResStats},
	NameHeartbeat:   {ResScaler, ResStats},
}

// rearm re-arms the running task after its body. The body's error is kept;
// a failed re-arm is joined to it.
func rearm(cx *sched.Context, period clock.Tick, err error) error {
	if rerr := cx.Rearm(period); rerr != nil {
		return errors.Join(err, rerr)
	}
	return err
}
