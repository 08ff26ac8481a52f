package tasks

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/flowmouse/internal/gpio"
	"github.com/sweeney/flowmouse/internal/mqtt"
	"github.com/sweeney/flowmouse/internal/sched"
	"github.com/sweeney/flowmouse/internal/status"
)

// StatsSource exposes the executor's per-task counters.
type StatsSource interface {
	Stats() []sched.TaskStats
}

// Heartbeat samples the shared state into the status tracker on every
// dispatch and publishes a HEARTBEAT event every PublishEvery dispatches.
type Heartbeat struct {
	Scale   *sched.Resource[float64]
	Stats   *sched.Resource[ReportStats]
	Output  gpio.Output
	Exec    StatsSource
	Tracker *status.Tracker

	// Publisher may be nil.
	Publisher    mqtt.Publisher
	Connection   mqtt.ConnectionStatus
	PublishEvery uint64
	Now          func() time.Time

	runs uint64
}

// Run is the task body. A failed output read is returned after the sample is
// recorded, so the executor counts it against the task.
func (h *Heartbeat) Run(cx *sched.Context) error {
	var sample status.Sample
	serr := h.Scale.Lock(cx, func(v *float64) error {
		sample.Scale = *v
		return nil
	})
	rerr := h.Stats.Lock(cx, func(s *ReportStats) error {
		sample.Reports = status.Reports{
			Counter:    s.Counter,
			Emitted:    s.Emitted,
			Skipped:    s.Skipped,
			Retries:    s.Retries,
			SinkErrors: s.SinkErrors,
			Buttons:    s.Last.Buttons,
			DX:         s.Last.DX,
			DY:         s.Last.DY,
		}
		return nil
	})
	err := errors.Join(serr, rerr)
	if h.Output != nil {
		var oerr error
		if sample.Output, oerr = h.Output.Get(); oerr != nil {
			err = errors.Join(err, fmt.Errorf("read output: %w", oerr))
		}
	}
	sample.Tasks = h.Exec.Stats()

	h.Tracker.Update(sample)
	if h.Connection != nil {
		h.Tracker.SetMQTTConnected(h.Connection.IsConnected())
	}

	h.runs++
	if h.Publisher != nil && h.PublishEvery > 0 && h.runs%h.PublishEvery == 0 {
		h.publish(sample)
	}
	return rearm(cx, cx.Task().Period, err)
}

func (h *Heartbeat) publish(sample status.Sample) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	snap := h.Tracker.Snapshot()
	log.Printf("heartbeat: uptime=%v scale=%.1f emitted=%d skipped=%d overruns=%d",
		snap.Uptime().Truncate(time.Second), sample.Scale, sample.Reports.Emitted, sample.Reports.Skipped, snap.Overruns())
	event := mqtt.SystemEvent{
		Timestamp:  now(),
		Event:      mqtt.EventHeartbeat,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventHeartbeat, ""),
	}
	if err := h.Publisher.PublishSystem(event); err != nil {
		log.Printf("heartbeat publish error: %v", err)
	}
}
