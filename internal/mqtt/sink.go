package mqtt

import (
	"time"

	"github.com/sweeney/flowmouse/internal/hid"
)

// ReportSink mirrors HID reports to the broker. Every selects every Nth
// report; 0 or 1 publishes all of them.
type ReportSink struct {
	Pub   Publisher
	Every uint64
	Now   func() time.Time

	seq uint64
}

// Emit publishes r if it is selected.
func (s *ReportSink) Emit(r hid.Report) error {
	s.seq++
	if s.Every > 1 && s.seq%s.Every != 0 {
		return nil
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return s.Pub.PublishReport(ReportEvent{Timestamp: now(), Seq: s.seq, Report: r})
}
