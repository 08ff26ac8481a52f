package tasks

import (
	"errors"
	"fmt"
	"log"

	"github.com/sweeney/flowmouse/internal/hid"
	"github.com/sweeney/flowmouse/internal/logic"
	"github.com/sweeney/flowmouse/internal/pmw3389"
	"github.com/sweeney/flowmouse/internal/sched"
)

// ReportStats is shared between the report task and the heartbeat.
type ReportStats struct {
	// Counter is the bounded report counter, in [0, Period).
	Counter    uint32
	Emitted    uint64
	Skipped    uint64
	Retries    uint64
	SinkErrors uint64
	Last       hid.Report
}

// Report produces one HID report per dispatch and hands it to the sink.
// A source failure is retried up to Retries times within the dispatch; after
// that the report is skipped and the next period tries again.
type Report struct {
	Source hid.Source
	Sink   hid.Sink
	Stats  *sched.Resource[ReportStats]
	// Period bounds the counter.
	Period  uint32
	Retries int

	// logEvery limits error logging to one line per this many failures.
	logEvery uint64
}

// Run is the task body. Bus and sink failures are counted in ReportStats and
// never returned; only a failure to reach the shared stats is.
func (t *Report) Run(cx *sched.Context) error {
	var counter uint32
	lerr := t.Stats.Lock(cx, func(s *ReportStats) error {
		counter = s.Counter
		s.Counter = logic.NextCounter(s.Counter, t.Period)
		return nil
	})

	var (
		r       hid.Report
		err     error
		retries uint64
	)
	for attempt := 0; attempt <= t.Retries; attempt++ {
		if r, err = t.Source.Report(counter); err == nil {
			break
		}
		if attempt < t.Retries {
			retries++
		}
	}

	var sinkErr error
	if err == nil {
		sinkErr = t.Sink.Emit(r)
	}

	var skipped, sinkErrors uint64
	uerr := t.Stats.Lock(cx, func(s *ReportStats) error {
		s.Retries += retries
		switch {
		case err != nil:
			s.Skipped++
		case sinkErr != nil:
			s.SinkErrors++
		default:
			s.Emitted++
			s.Last = r
		}
		skipped, sinkErrors = s.Skipped, s.SinkErrors
		return nil
	})

	if err != nil && t.shouldLog(skipped) {
		log.Printf("report: skipped sample (%s, %d total): %v", pmw3389.CodeOf(err), skipped, err)
	}
	if sinkErr != nil && t.shouldLog(sinkErrors) {
		log.Printf("report: sink error (%d total): %v", sinkErrors, sinkErr)
	}
	var statsErr error
	if lerr != nil || uerr != nil {
		statsErr = fmt.Errorf("report stats: %w", errors.Join(lerr, uerr))
	}
	return rearm(cx, cx.Task().Period, statsErr)
}

func (t *Report) shouldLog(n uint64) bool {
	every := t.logEvery
	if every == 0 {
		every = 100
	}
	return n == 1 || n%every == 0
}
