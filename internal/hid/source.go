package hid

import (
	"github.com/sweeney/flowmouse/internal/logic"
	"github.com/sweeney/flowmouse/internal/pmw3389"
)

// Source produces the report for one dispatch of the report task.
// counter is the task's bounded counter for this dispatch.
type Source interface {
	Report(counter uint32) (Report, error)
}

// Synthetic moves back and forth along X: +Amplitude in the first half of
// Period, -Amplitude in the second.
type Synthetic struct {
	Period    uint32
	Amplitude int8
}

// Report returns the pattern value for counter.
func (s Synthetic) Report(counter uint32) (Report, error) {
	return Report{DX: logic.SyntheticDelta(counter, s.Period, s.Amplitude)}, nil
}

// Burster is the burst-mode half of the sensor driver.
type Burster interface {
	ReadBurst(samples []pmw3389.Motion) (int, error)
}

// SensorSource sums a burst of sensor samples into one report.
type SensorSource struct {
	dev  Burster
	buf  []pmw3389.Motion
	last uint8
}

// NewSensorSource reads n samples per report. The buffer is allocated here
// and reused on every call.
func NewSensorSource(dev Burster, n int) *SensorSource {
	if n < 1 {
		n = 1
	}
	return &SensorSource{dev: dev, buf: make([]pmw3389.Motion, n)}
}

// Report reads one burst. Deltas saturate at the report range; buttons come
// from the newest sample.
func (s *SensorSource) Report(uint32) (Report, error) {
	n, err := s.dev.ReadBurst(s.buf)
	if err != nil {
		return Report{}, err
	}
	var dx, dy int16
	buttons := s.last
	for _, m := range s.buf[:n] {
		dx = logic.Accumulate(dx, m.DX)
		dy = logic.Accumulate(dy, m.DY)
		buttons = m.Buttons
	}
	s.last = buttons
	return Report{Buttons: buttons, DX: int8(logic.Clamp(dx, -127, 127)), DY: int8(logic.Clamp(dy, -127, 127))}, nil
}

// MotionReader is the register-path half of the sensor driver.
type MotionReader interface {
	ReadMotion() (pmw3389.MotionDelta, error)
}

// RegisterSource reads motion through the delta registers instead of burst
// mode. It is slower but works before burst mode is enabled.
type RegisterSource struct {
	Dev MotionReader
}

// Report reads the delta registers once.
func (s RegisterSource) Report(uint32) (Report, error) {
	m, err := s.Dev.ReadMotion()
	if err != nil {
		return Report{}, err
	}
	if !m.Moved {
		return Report{}, nil
	}
	return Report{
		DX: int8(logic.Clamp(m.DX, -127, 127)),
		DY: int8(logic.Clamp(m.DY, -127, 127)),
	}, nil
}
