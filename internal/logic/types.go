// Package logic contains the pure decision logic of the periodic tasks.
// This package has NO external dependencies (no GPIO, SPI, MQTT, OS, or clocks).
// Every function takes its inputs as values and returns its result.
package logic

// Scale factor defaults.
const (
	MinScale     = 1.0
	DefaultStep  = 0.1
	scaleEpsilon = 1e-6
)

// Direction is the outcome of one scale-adjust sample.
type Direction int

const (
	Hold Direction = iota
	Up
	Down
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	}
	return "HOLD"
}

// Latch debounces a pair of momentary inputs. Once a change is accepted the
// latch stays set until both inputs read low.
type Latch struct {
	Modifying bool
}
