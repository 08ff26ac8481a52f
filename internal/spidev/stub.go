//go:build !linux

package spidev

import "errors"

// Bus is not available on non-Linux platforms.
type Bus struct{}

// Open returns an error on non-Linux platforms.
func Open(cfg Config) (*Bus, error) {
	return nil, errors.New("spidev: not supported on this platform (requires Linux)")
}

// Tx is not implemented on non-Linux platforms.
func (b *Bus) Tx(w, r []byte) error {
	return errors.New("spidev: not supported")
}

// Transfer is not implemented on non-Linux platforms.
func (b *Bus) Transfer(w byte) (byte, error) {
	return 0, errors.New("spidev: not supported")
}

// Close is not implemented on non-Linux platforms.
func (b *Bus) Close() error {
	return nil
}
