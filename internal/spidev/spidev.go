// Package spidev exposes a Linux spidev node as a drivers.SPI bus.
//
// The kernel chip-select is disabled (SPI_NO_CS); the sensor driver frames
// transactions itself on a GPIO line so it can hold chip-select across the
// address/data gap.
package spidev

import "errors"

// Config selects and configures a spidev node.
type Config struct {
	Device  string // e.g. /dev/spidev0.0
	Mode    uint8  // SPI mode 0..3
	SpeedHz uint32
	Bits    uint8 // bits per word, 0 means 8
}

// DefaultConfig matches the sensor: mode 3 at 2 MHz.
var DefaultConfig = Config{
	Device:  "/dev/spidev0.0",
	Mode:    3,
	SpeedHz: 2_000_000,
	Bits:    8,
}

// ErrLength is returned when both buffers are given with different lengths.
var ErrLength = errors.New("spidev: write and read buffers differ in length")

func (c Config) validate() error {
	if c.Device == "" {
		return errors.New("spidev: no device")
	}
	if c.Mode > 3 {
		return errors.New("spidev: mode must be 0..3")
	}
	if c.SpeedHz == 0 {
		return errors.New("spidev: speed must be > 0")
	}
	return nil
}

// txLen returns the transfer length for a Tx call with the tinygo semantics:
// either buffer may be nil, otherwise both must have the same length.
func txLen(w, r []byte) (int, error) {
	switch {
	case w == nil:
		return len(r), nil
	case r == nil:
		return len(w), nil
	case len(w) != len(r):
		return 0, ErrLength
	}
	return len(w), nil
}
