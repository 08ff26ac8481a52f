//go:build linux

package spidev

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl requests from linux/spi/spidev.h.
const (
	spiIOCWrMode        = 0x40016b01
	spiIOCWrBitsPerWord = 0x40016b03
	spiIOCWrMaxSpeedHz  = 0x40046b04
	spiIOCMessage1      = 0x40206b00

	spiNoCS = 0x40
)

// spiIOCTransfer mirrors struct spi_ioc_transfer (32 bytes).
type spiIOCTransfer struct {
	txBuf       uint64
	rxBuf       uint64
	length      uint32
	speedHz     uint32
	delayUsecs  uint16
	bitsPerWord uint8
	csChange    uint8
	txNbits     uint8
	rxNbits     uint8
	wordDelay   uint8
	pad         uint8
}

// Bus is an open spidev node.
type Bus struct {
	f   *os.File
	cfg Config
	tx  []byte
}

// Open opens and configures the device.
func Open(cfg Config) (*Bus, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Bits == 0 {
		cfg.Bits = 8
	}
	f, err := os.OpenFile(cfg.Device, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}
	b := &Bus{f: f, cfg: cfg}

	mode := cfg.Mode | spiNoCS
	if err := b.ioctl(spiIOCWrMode, unsafe.Pointer(&mode)); err != nil {
		f.Close()
		return nil, fmt.Errorf("set mode %d: %w", cfg.Mode, err)
	}
	bits := cfg.Bits
	if err := b.ioctl(spiIOCWrBitsPerWord, unsafe.Pointer(&bits)); err != nil {
		f.Close()
		return nil, fmt.Errorf("set bits per word: %w", err)
	}
	speed := cfg.SpeedHz
	if err := b.ioctl(spiIOCWrMaxSpeedHz, unsafe.Pointer(&speed)); err != nil {
		f.Close()
		return nil, fmt.Errorf("set speed %d: %w", cfg.SpeedHz, err)
	}
	return b, nil
}

// Tx performs one full-duplex transfer. A nil w clocks out zeros.
func (b *Bus) Tx(w, r []byte) error {
	n, err := txLen(w, r)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	if w == nil {
		if cap(b.tx) < n {
			b.tx = make([]byte, n)
		}
		w = b.tx[:n]
		clear(w)
	}
	tr := spiIOCTransfer{
		txBuf:       uint64(uintptr(unsafe.Pointer(&w[0]))),
		length:      uint32(n),
		speedHz:     b.cfg.SpeedHz,
		bitsPerWord: b.cfg.Bits,
	}
	if r != nil {
		tr.rxBuf = uint64(uintptr(unsafe.Pointer(&r[0])))
	}
	if err := b.ioctl(spiIOCMessage1, unsafe.Pointer(&tr)); err != nil {
		return fmt.Errorf("spi transfer: %w", err)
	}
	return nil
}

// Transfer sends one byte and returns the byte clocked in.
func (b *Bus) Transfer(w byte) (byte, error) {
	var in, out [1]byte
	out[0] = w
	err := b.Tx(out[:], in[:])
	return in[0], err
}

// Close releases the device.
func (b *Bus) Close() error {
	return b.f.Close()
}

func (b *Bus) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, b.f.Fd(), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
