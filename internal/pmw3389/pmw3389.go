// Package pmw3389 drives a PMW3389-class optical motion sensor over SPI.
//
// Transactions are framed by a GPIO chip-select and separated by the settle
// delays from the device timing table. Delays are bounded spins on a
// clock.Delayer; nothing in the driver waits on an external event.
//
//	d := pmw3389.New(bus, cs, delay) // does not touch the device
//	err := d.Init()                  // reset + identification handshake
//	err = d.EnableBurstMode()
//	n, err := d.ReadBurst(samples)   // 3 bytes per sample
package pmw3389

import (
	"fmt"

	"tinygo.org/x/drivers"

	"github.com/sweeney/flowmouse/internal/clock"
)

// ChipSelect drives the active-low chip-select line.
type ChipSelect interface {
	Set(high bool) error
}

// State is the driver state.
type State uint8

const (
	Uninit State = iota
	Ready
	BurstMode
)

func (s State) String() string {
	switch s {
	case Uninit:
		return "uninit"
	case Ready:
		return "ready"
	case BurstMode:
		return "burst"
	}
	return "unknown"
}

// MaxInitAttempts bounds the identification handshake.
const MaxInitAttempts = 5

// Motion is one burst sample.
type Motion struct {
	Buttons uint8
	DX      int8
	DY      int8
}

// MotionDelta is a register-path motion read with full 16-bit deltas.
type MotionDelta struct {
	Moved bool
	DX    int16
	DY    int16
}

// Device is an exclusively owned sensor session.
type Device struct {
	bus   drivers.SPI
	cs    ChipSelect
	delay clock.Delayer

	state State
	w     [1]byte
	r     [1]byte
	burst [SampleSize * 16]byte
}

// New creates a driver. The bus must already be configured (mode 3).
func New(bus drivers.SPI, cs ChipSelect, delay clock.Delayer) *Device {
	return &Device{bus: bus, cs: cs, delay: delay}
}

// State returns the current driver state.
func (d *Device) State() State { return d.state }

// Init resets the device and waits for it to identify itself.
func (d *Device) Init() error {
	d.state = Uninit
	if err := d.cs.Set(true); err != nil {
		return &BusError{Code: CodeChipSel, Op: "init", Err: err}
	}
	d.delay.DelayMicros(tNCSSCLK)

	if err := d.write(RegPowerUpReset, resetCommand); err != nil {
		return err
	}
	d.delay.DelayMicros(tPowerUp)

	var pid, inv byte
	for attempt := 1; attempt <= MaxInitAttempts; attempt++ {
		var err error
		if pid, err = d.read(RegProductID); err != nil {
			return err
		}
		if inv, err = d.read(RegInverseProductID); err != nil {
			return err
		}
		if pid == ProductID && inv == InverseProductID {
			break
		}
		if attempt == MaxInitAttempts {
			return fmt.Errorf("%w: product id 0x%02x/0x%02x after %d attempts", ErrProtocol, pid, inv, attempt)
		}
		d.delay.DelayMicros(tInitBackoff)
	}

	// Reading the motion registers once clears stale deltas.
	for addr := byte(RegMotion); addr <= RegDeltaYH; addr++ {
		if _, err := d.read(addr); err != nil {
			return err
		}
	}
	d.state = Ready
	return nil
}

// WriteRegister writes one register.
func (d *Device) WriteRegister(addr, value byte) error {
	if d.state == Uninit {
		return ErrNotReady
	}
	return d.write(addr, value)
}

// ReadRegister reads one register.
func (d *Device) ReadRegister(addr byte) (byte, error) {
	if d.state == Uninit {
		return 0, ErrNotReady
	}
	return d.read(addr)
}

// ProductID reads the product identifier.
func (d *Device) ProductID() (byte, error) { return d.ReadRegister(RegProductID) }

// Revision reads the silicon revision.
func (d *Device) Revision() (byte, error) { return d.ReadRegister(RegRevisionID) }

// EnableBurstMode arms the motion burst register so reads stream samples.
func (d *Device) EnableBurstMode() error {
	if err := d.WriteRegister(RegMotionBurst, 0x00); err != nil {
		return err
	}
	d.state = BurstMode
	return nil
}

// ReadBurst fills samples from one chip-select frame and returns how many
// were decoded. A malformed sample stops decoding; samples before it are valid.
func (d *Device) ReadBurst(samples []Motion) (int, error) {
	if d.state != BurstMode {
		return 0, ErrNotBurst
	}
	n := len(samples)
	if limit := len(d.burst) / SampleSize; n > limit {
		n = limit
	}
	if n == 0 {
		return 0, nil
	}
	buf := d.burst[:n*SampleSize]

	if err := d.cs.Set(false); err != nil {
		return 0, &BusError{Code: CodeChipSel, Op: "burst", Addr: RegMotionBurst, Err: err}
	}
	d.delay.DelayMicros(tNCSSCLK)
	err := d.bus.Tx(nil, buf)
	if cerr := d.cs.Set(true); err == nil && cerr != nil {
		err = cerr
	}
	d.delay.DelayMicros(tBEXIT)
	if err != nil {
		return 0, &BusError{Code: CodeBus, Op: "burst", Addr: RegMotionBurst, Err: err}
	}

	for i := 0; i < n; i++ {
		m, err := DecodeSample(buf[i*SampleSize : (i+1)*SampleSize])
		if err != nil {
			return i, err
		}
		samples[i] = m
	}
	return n, nil
}

// ReadMotion reads motion through the register path. Reading Motion latches
// the delta registers, which must then be read low byte first.
func (d *Device) ReadMotion() (MotionDelta, error) {
	if d.state == Uninit {
		return MotionDelta{}, ErrNotReady
	}
	var regs [5]byte
	for i := range regs {
		v, err := d.read(byte(RegMotion + i))
		if err != nil {
			return MotionDelta{}, err
		}
		regs[i] = v
	}
	return MotionDelta{
		Moved: regs[0]&motionMOT != 0,
		DX:    int16(uint16(regs[1]) | uint16(regs[2])<<8),
		DY:    int16(uint16(regs[3]) | uint16(regs[4])<<8),
	}, nil
}

// SetCPI programs the resolution. cpi must be a multiple of CPIStep in
// [MinCPI, MaxCPI].
func (d *Device) SetCPI(cpi uint16) error {
	if cpi < MinCPI || cpi > MaxCPI || cpi%CPIStep != 0 {
		return fmt.Errorf("%w: %d", ErrCPI, cpi)
	}
	v := cpi/CPIStep - 1
	if err := d.WriteRegister(RegResolutionL, byte(v)); err != nil {
		return err
	}
	return d.WriteRegister(RegResolutionH, byte(v>>8))
}

// CPI reads back the programmed resolution.
func (d *Device) CPI() (uint16, error) {
	lo, err := d.ReadRegister(RegResolutionL)
	if err != nil {
		return 0, err
	}
	hi, err := d.ReadRegister(RegResolutionH)
	if err != nil {
		return 0, err
	}
	return ((uint16(hi)<<8 | uint16(lo)) + 1) * CPIStep, nil
}

// DecodeSample decodes one [buttons][dx][dy] burst sample.
func DecodeSample(b []byte) (Motion, error) {
	if len(b) != SampleSize {
		return Motion{}, fmt.Errorf("%w: %d bytes", ErrMalformed, len(b))
	}
	if b[0]&^buttonMask != 0 {
		return Motion{}, fmt.Errorf("%w: reserved button bits 0x%02x", ErrMalformed, b[0])
	}
	return Motion{Buttons: b[0], DX: int8(b[1]), DY: int8(b[2])}, nil
}

func (d *Device) write(addr, value byte) error {
	if err := d.cs.Set(false); err != nil {
		return &BusError{Code: CodeChipSel, Op: "write", Addr: addr, Err: err}
	}
	d.delay.DelayMicros(tNCSSCLK)

	d.w[0] = addr | WriteBit
	err := d.bus.Tx(d.w[:], nil)
	if err == nil {
		d.delay.DelayMicros(tSWAD)
		d.w[0] = value
		err = d.bus.Tx(d.w[:], nil)
	}
	d.delay.DelayMicros(tSCLKNCSW)
	if cerr := d.cs.Set(true); err == nil && cerr != nil {
		return &BusError{Code: CodeChipSel, Op: "write", Addr: addr, Err: cerr}
	}
	d.delay.DelayMicros(tSWW - tSCLKNCSW)
	if err != nil {
		return &BusError{Code: CodeBus, Op: "write", Addr: addr, Err: err}
	}
	return nil
}

func (d *Device) read(addr byte) (byte, error) {
	if err := d.cs.Set(false); err != nil {
		return 0, &BusError{Code: CodeChipSel, Op: "read", Addr: addr, Err: err}
	}
	d.delay.DelayMicros(tNCSSCLK)

	d.w[0] = addr & ReadMask
	err := d.bus.Tx(d.w[:], nil)
	if err == nil {
		d.delay.DelayMicros(tSRAD)
		err = d.bus.Tx(nil, d.r[:])
	}
	d.delay.DelayMicros(tSCLKNCSR)
	if cerr := d.cs.Set(true); err == nil && cerr != nil {
		return 0, &BusError{Code: CodeChipSel, Op: "read", Addr: addr, Err: cerr}
	}
	d.delay.DelayMicros(tSRR)
	if err != nil {
		return 0, &BusError{Code: CodeBus, Op: "read", Addr: addr, Err: err}
	}
	return d.r[0], nil
}
