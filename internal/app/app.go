// Package app assembles the flowmouse daemon. It derives resource ceilings
// from the task table, binds the task bodies to the peripherals in a Hardware
// set and runs the executor.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/flowmouse/internal/clock"
	"github.com/sweeney/flowmouse/internal/config"
	"github.com/sweeney/flowmouse/internal/mqtt"
	"github.com/sweeney/flowmouse/internal/sched"
	"github.com/sweeney/flowmouse/internal/status"
	"github.com/sweeney/flowmouse/internal/tasks"
)

// System is a bound, not yet started, task set.
type System struct {
	Config  config.Config
	Exec    *sched.Executor
	Tracker *status.Tracker
	Scale   *sched.Resource[float64]
	Stats   *sched.Resource[tasks.ReportStats]

	ScaleTask     *tasks.ScaleAdjust
	ToggleTask    *tasks.Toggle
	ReportTask    *tasks.Report
	HeartbeatTask *tasks.Heartbeat

	hw       *Hardware
	clock    clock.Monotonic
	now      func() time.Time
	overruns map[string]uint64
}

type ceilinged interface {
	Name() string
	Ceiling() sched.Priority
}

// overrunPublishEvery limits OVERRUN events to the first and every Nth per task.
const overrunPublishEvery = 100

// Build creates the executor and resources for cfg and binds every task.
func Build(cfg config.Config, hw *Hardware, tracker *status.Tracker, mono clock.Monotonic, alarm clock.Alarm) (*System, error) {
	table := cfg.Table()
	exec, err := sched.New(table, mono, alarm)
	if err != nil {
		return nil, fmt.Errorf("create executor: %w", err)
	}

	scale, err := sched.NewTableResource(table, tasks.ResScaler, cfg.Scale.Initial)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", tasks.ResScaler, err)
	}
	stats, err := sched.NewTableResource(table, tasks.ResStats, tasks.ReportStats{})
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", tasks.ResStats, err)
	}
	if err := table.CheckAccess(tasks.Requires); err != nil {
		return nil, err
	}
	for _, r := range []ceilinged{scale, stats} {
		if err := tasks.Requires.CheckCeiling(table, r.Name(), r.Ceiling()); err != nil {
			return nil, err
		}
	}

	s := &System{
		Config:   cfg,
		Exec:     exec,
		Tracker:  tracker,
		Scale:    scale,
		Stats:    stats,
		hw:       hw,
		clock:    mono,
		now:      time.Now,
		overruns: make(map[string]uint64),
	}
	s.ScaleTask = &tasks.ScaleAdjust{Up: hw.Up, Down: hw.Down, Scale: scale, Step: cfg.Scale.Step}
	s.ToggleTask = &tasks.Toggle{Enable: hw.Enable, Output: hw.Output, Scale: scale}
	s.ReportTask = &tasks.Report{
		Source:  hw.Source,
		Sink:    hw.Sink,
		Stats:   stats,
		Period:  cfg.Report.CounterPeriod,
		Retries: cfg.Report.Retries,
	}
	s.HeartbeatTask = &tasks.Heartbeat{
		Scale:        scale,
		Stats:        stats,
		Output:       hw.Output,
		Exec:         exec,
		Tracker:      tracker,
		Publisher:    hw.Publisher,
		Connection:   hw.Connection,
		PublishEvery: cfg.MQTT.HeartbeatEvery,
	}

	bindings := []struct {
		name string
		run  sched.Handler
	}{
		{tasks.NameScaleAdjust, s.ScaleTask.Run},
		{tasks.NameToggle, s.ToggleTask.Run},
		{tasks.NameReport, s.ReportTask.Run},
		{tasks.NameHeartbeat, s.HeartbeatTask.Run},
	}
	for _, b := range bindings {
		if err := exec.Bind(b.name, b.run); err != nil {
			return nil, fmt.Errorf("bind %s: %w", b.name, err)
		}
	}
	exec.OnOverrun = s.overrun

	tracker.SetSensor(hw.Sensor)
	return s, nil
}

// Start arms every task relative to the current tick and dispatches the ones
// already due. The caller then services the alarm with Exec.Poll.
func (s *System) Start() error {
	if err := s.Exec.ScheduleAll(s.clock.Now()); err != nil {
		return fmt.Errorf("schedule tasks: %w", err)
	}
	return s.Exec.Start()
}

// Run arms every task and services the alarm until ctx is done.
func (s *System) Run(ctx context.Context) error {
	if err := s.Exec.ScheduleAll(s.clock.Now()); err != nil {
		return fmt.Errorf("schedule tasks: %w", err)
	}
	return s.Exec.Run(ctx)
}

func (s *System) overrun(name string, at clock.Tick) {
	s.overruns[name]++
	n := s.overruns[name]
	log.Printf("sched: overrun: task %s still pending, rejected deadline %d (%d total)", name, at, n)
	if s.hw.Publisher == nil || (n != 1 && n%overrunPublishEvery != 0) {
		return
	}
	event := mqtt.SystemEvent{
		Timestamp:  s.now(),
		Event:      mqtt.EventOverrun,
		RawPayload: status.FormatOverrunEvent(s.Tracker.Snapshot(), name),
	}
	if err := s.hw.Publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish overrun event: %v", err)
	}
}
