//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported")

// Chip is not available on non-Linux platforms.
type Chip struct{}

// OpenChip returns an error on non-Linux platforms.
func OpenChip(name string) (*Chip, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Input is not implemented on non-Linux platforms.
func (c *Chip) Input(pin int) (*RealInput, error) { return nil, errUnsupported }

// Output is not implemented on non-Linux platforms.
func (c *Chip) Output(pin int, initial bool) (*RealOutput, error) { return nil, errUnsupported }

// Close is not implemented on non-Linux platforms.
func (c *Chip) Close() error { return nil }

// RealInput is not available on non-Linux platforms.
type RealInput struct{}

// Read is not implemented on non-Linux platforms.
func (in *RealInput) Read() (bool, error) { return false, errUnsupported }

// RealOutput is not available on non-Linux platforms.
type RealOutput struct{}

// Set is not implemented on non-Linux platforms.
func (o *RealOutput) Set(on bool) error { return errUnsupported }

// Get is not implemented on non-Linux platforms.
func (o *RealOutput) Get() (bool, error) { return false, errUnsupported }

// Toggle is not implemented on non-Linux platforms.
func (o *RealOutput) Toggle() error { return errUnsupported }
