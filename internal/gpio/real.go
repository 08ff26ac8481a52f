//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Chip owns the lines requested from one GPIO character device.
type Chip struct {
	chip  *gpiocdev.Chip
	lines []*gpiocdev.Line
}

// OpenChip opens a GPIO chip such as "gpiochip0".
func OpenChip(name string) (*Chip, error) {
	chip, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &Chip{chip: chip}, nil
}

// Input requests pin as a button input with pull-up.
// Buttons short to ground, so raw low = logical pressed.
func (c *Chip) Input(pin int) (*RealInput, error) {
	line, err := c.chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		return nil, fmt.Errorf("request input pin %d: %w", pin, err)
	}
	c.lines = append(c.lines, line)
	return &RealInput{pin: pin, line: line}, nil
}

// Output requests pin as a push-pull output at the given initial level.
func (c *Chip) Output(pin int, initial bool) (*RealOutput, error) {
	line, err := c.chip.RequestLine(pin, gpiocdev.AsOutput(level(initial)))
	if err != nil {
		return nil, fmt.Errorf("request output pin %d: %w", pin, err)
	}
	c.lines = append(c.lines, line)
	return &RealOutput{pin: pin, line: line, on: initial}, nil
}

// Close releases every requested line and the chip.
// Lines are reconfigured to input with pull-down (matching Pi boot defaults)
// before closing so nothing is left driven across a reboot.
func (c *Chip) Close() error {
	var errs []error
	for _, l := range c.lines {
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", l.Offset(), err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", l.Offset(), err))
		}
	}
	c.lines = nil
	if c.chip != nil {
		if err := c.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		c.chip = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealInput is a button on a GPIO line.
type RealInput struct {
	pin  int
	line *gpiocdev.Line
}

// Read returns true while the button is held.
func (in *RealInput) Read() (bool, error) {
	raw, err := in.line.Value()
	if err != nil {
		return false, fmt.Errorf("read pin %d: %w", in.pin, err)
	}
	return raw == 0, nil
}

// RealOutput is a GPIO line driven by this process. Set(true) drives it high.
type RealOutput struct {
	pin  int
	line *gpiocdev.Line
	on   bool
}

// Set drives the line.
func (o *RealOutput) Set(on bool) error {
	if err := o.line.SetValue(level(on)); err != nil {
		return fmt.Errorf("set pin %d: %w", o.pin, err)
	}
	o.on = on
	return nil
}

// Get returns the last driven level.
func (o *RealOutput) Get() (bool, error) {
	return o.on, nil
}

// Toggle inverts the line.
func (o *RealOutput) Toggle() error {
	return o.Set(!o.on)
}

func level(on bool) int {
	if on {
		return 1
	}
	return 0
}
