// Package gpio provides digital inputs and outputs with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The keyboard implementation stands in for push buttons on a dev host.
// The fake implementation allows testing without hardware.
// Pin numbers (BCM) come from the gpio section of the configuration.
package gpio

// Input reads one logical digital input.
type Input interface {
	// Read returns true when the input is active (button pressed).
	Read() (bool, error)
}

// Output drives one logical digital output.
type Output interface {
	Set(on bool) error
	Get() (bool, error)
	Toggle() error
}
