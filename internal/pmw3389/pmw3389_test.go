package pmw3389

import (
	"errors"
	"testing"

	"github.com/sweeney/flowmouse/internal/clock"
)

const testFreq = 16_000_000

func ticksFor(us uint32) int32 { return int32(uint64(us) * testFreq / 1_000_000) }

func newTestDevice(t *testing.T) (*Device, *FakeBus, *clock.FakeClock) {
	t.Helper()
	clk := clock.NewFakeClock(0)
	clk.Frequency = testFreq
	bus := NewFakeBus(clk)
	return New(bus, bus, clk), bus, clk
}

func initDevice(t *testing.T) (*Device, *FakeBus, *clock.FakeClock) {
	t.Helper()
	d, bus, clk := newTestDevice(t)
	if err := d.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	bus.Reset()
	return d, bus, clk
}

func TestInit(t *testing.T) {
	d, bus, _ := newTestDevice(t)

	if d.State() != Uninit {
		t.Fatalf("initial state: %v", d.State())
	}
	if err := d.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if d.State() != Ready {
		t.Errorf("state after Init: %v, want ready", d.State())
	}
	if bus.Regs[RegPowerUpReset] != resetCommand {
		t.Errorf("power-up reset register: got 0x%02x, want 0x%02x", bus.Regs[RegPowerUpReset], resetCommand)
	}
	if bus.Ops[0].Kind != OpDeselect {
		t.Errorf("first op: got %v, want chip-select idle high", bus.Ops[0].Kind)
	}
	if bus.Selected() {
		t.Error("chip-select left asserted")
	}
}

func TestInitRetriesIdentification(t *testing.T) {
	d, bus, clk := newTestDevice(t)
	bus.IDFailures = 2

	if err := d.Init(); err != nil {
		t.Fatalf("Init with 2 bad reads: %v", err)
	}
	backoffs := 0
	for _, us := range clk.Delays {
		if us == tInitBackoff {
			backoffs++
		}
	}
	if backoffs != 2 {
		t.Errorf("backoffs: got %d, want 2", backoffs)
	}
}

func TestInitFailsWithoutAcknowledge(t *testing.T) {
	d, bus, _ := newTestDevice(t)
	bus.IDFailures = MaxInitAttempts

	err := d.Init()
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("got %v, want ErrProtocol", err)
	}
	if d.State() != Uninit {
		t.Errorf("state: %v, want uninit", d.State())
	}
}

func TestReadRegisterFraming(t *testing.T) {
	d, bus, _ := initDevice(t)
	bus.Regs[RegSQUAL] = 0x3C

	v, err := d.ReadRegister(RegSQUAL)
	if err != nil {
		t.Fatalf("ReadRegister: %v", err)
	}
	if v != 0x3C {
		t.Errorf("value: got 0x%02x, want 0x3c", v)
	}

	want := []OpKind{OpSelect, OpWrite, OpRead, OpDeselect}
	got := bus.Kinds()
	if len(got) != len(want) {
		t.Fatalf("ops: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("op %d: got %v, want %v", i, got[i], want[i])
		}
	}
	if bus.Ops[1].Byte != RegSQUAL {
		t.Errorf("address byte: got 0x%02x, want read flag clear 0x%02x", bus.Ops[1].Byte, RegSQUAL)
	}
	if gap := clock.Delta(bus.Ops[2].At, bus.Ops[1].At); gap < ticksFor(tSRAD) {
		t.Errorf("address-to-data gap: got %d ticks, want >= %d", gap, ticksFor(tSRAD))
	}
}

func TestWriteRegisterFraming(t *testing.T) {
	d, bus, _ := initDevice(t)

	if err := d.WriteRegister(RegConfig2, 0x20); err != nil {
		t.Fatalf("WriteRegister: %v", err)
	}
	if err := d.WriteRegister(RegConfig2, 0x00); err != nil {
		t.Fatalf("WriteRegister: %v", err)
	}

	ops := bus.Ops
	if len(ops) != 8 {
		t.Fatalf("ops: got %d, want 8", len(ops))
	}
	if ops[1].Kind != OpWrite || ops[1].Byte != RegConfig2|WriteBit {
		t.Errorf("address op: %+v", ops[1])
	}
	if ops[2].Kind != OpWrite || ops[2].Byte != 0x20 {
		t.Errorf("value op: %+v", ops[2])
	}
	if gap := clock.Delta(ops[2].At, ops[1].At); gap < ticksFor(tSWAD) {
		t.Errorf("address-to-data gap: got %d ticks, want >= %d", gap, ticksFor(tSWAD))
	}
	if gap := clock.Delta(ops[3].At, ops[2].At); gap < ticksFor(tSCLKNCSW) {
		t.Errorf("hold before deselect: %d ticks, want >= %d", gap, ticksFor(tSCLKNCSW))
	}
	if gap := clock.Delta(ops[5].At, ops[2].At); gap < ticksFor(tSWW) {
		t.Errorf("write-to-write: %d ticks, want >= %d", gap, ticksFor(tSWW))
	}
	if bus.Regs[RegConfig2] != 0x00 {
		t.Errorf("register: got 0x%02x, want 0", bus.Regs[RegConfig2])
	}
}

func TestNotReady(t *testing.T) {
	d, _, _ := newTestDevice(t)

	if _, err := d.ReadRegister(RegMotion); !errors.Is(err, ErrNotReady) {
		t.Errorf("ReadRegister: got %v, want ErrNotReady", err)
	}
	if err := d.WriteRegister(RegConfig2, 0); !errors.Is(err, ErrNotReady) {
		t.Errorf("WriteRegister: got %v, want ErrNotReady", err)
	}
	if _, err := d.ReadMotion(); !errors.Is(err, ErrNotReady) {
		t.Errorf("ReadMotion: got %v, want ErrNotReady", err)
	}
}

func TestBurst(t *testing.T) {
	d, bus, _ := initDevice(t)

	var samples [3]Motion
	if _, err := d.ReadBurst(samples[:]); !errors.Is(err, ErrNotBurst) {
		t.Fatalf("burst before enable: got %v, want ErrNotBurst", err)
	}

	if err := d.EnableBurstMode(); err != nil {
		t.Fatalf("EnableBurstMode: %v", err)
	}
	if d.State() != BurstMode {
		t.Fatalf("state: %v, want burst", d.State())
	}
	if _, ok := bus.Regs[RegMotionBurst]; !ok {
		t.Fatal("motion burst register not written")
	}

	bus.Reset()
	bus.Burst = []byte{
		ButtonLeft, 5, 0xFB, // +5, -5
		0, 0x80, 0x7F, // -128, +127
		ButtonLeft | ButtonMiddle, 0, 1,
	}
	n, err := d.ReadBurst(samples[:])
	if err != nil {
		t.Fatalf("ReadBurst: %v", err)
	}
	if n != 3 {
		t.Fatalf("samples: got %d, want 3", n)
	}
	want := [3]Motion{
		{Buttons: ButtonLeft, DX: 5, DY: -5},
		{DX: -128, DY: 127},
		{Buttons: ButtonLeft | ButtonMiddle, DY: 1},
	}
	if samples != want {
		t.Errorf("samples: got %+v, want %+v", samples, want)
	}

	// One chip-select frame, no address bytes.
	kinds := bus.Kinds()
	if kinds[0] != OpSelect || kinds[len(kinds)-1] != OpDeselect {
		t.Errorf("frame: %v", kinds)
	}
	for _, k := range kinds[1 : len(kinds)-1] {
		if k != OpRead {
			t.Fatalf("burst frame contains %v, want reads only", k)
		}
	}
	if len(kinds) != 2+3*SampleSize {
		t.Errorf("ops: got %d, want %d", len(kinds), 2+3*SampleSize)
	}
}

func TestBurstMalformed(t *testing.T) {
	d, bus, _ := initDevice(t)
	d.EnableBurstMode()

	bus.Burst = []byte{0, 1, 1, 0xF0, 2, 2}
	var samples [2]Motion
	n, err := d.ReadBurst(samples[:])
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("got %v, want ErrMalformed", err)
	}
	if n != 1 || samples[0].DX != 1 {
		t.Errorf("valid prefix: n=%d first=%+v", n, samples[0])
	}
	if CodeOf(err) != CodeMalformed {
		t.Errorf("code: got %s, want %s", CodeOf(err), CodeMalformed)
	}
}

func TestBusErrorIsTyped(t *testing.T) {
	d, bus, _ := initDevice(t)
	cause := errors.New("spi: timeout")
	bus.TxError = cause

	_, err := d.ReadRegister(RegMotion)
	if !errors.Is(err, ErrBus) {
		t.Errorf("errors.Is(err, ErrBus) false for %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("cause not wrapped: %v", err)
	}
	var be *BusError
	if !errors.As(err, &be) || be.Op != "read" || be.Addr != RegMotion {
		t.Errorf("BusError: %+v", be)
	}
	if CodeOf(err) != CodeBus {
		t.Errorf("code: got %s, want %s", CodeOf(err), CodeBus)
	}
	if bus.Selected() {
		t.Error("chip-select left asserted after failure")
	}
}

func TestChipSelectError(t *testing.T) {
	d, bus, _ := newTestDevice(t)
	bus.CSError = errors.New("line busy")

	err := d.Init()
	if CodeOf(err) != CodeChipSel {
		t.Errorf("code: got %s (%v), want %s", CodeOf(err), err, CodeChipSel)
	}
}

func TestReadMotionRegisters(t *testing.T) {
	d, bus, _ := initDevice(t)
	bus.Regs[RegMotion] = motionMOT
	bus.Regs[RegDeltaXL] = 0x2C
	bus.Regs[RegDeltaXH] = 0x01 // +300
	bus.Regs[RegDeltaYL] = 0xD4
	bus.Regs[RegDeltaYH] = 0xFE // -300

	m, err := d.ReadMotion()
	if err != nil {
		t.Fatalf("ReadMotion: %v", err)
	}
	if !m.Moved || m.DX != 300 || m.DY != -300 {
		t.Errorf("got %+v, want moved dx=300 dy=-300", m)
	}
}

func TestCPI(t *testing.T) {
	d, bus, _ := initDevice(t)

	if err := d.SetCPI(1600); err != nil {
		t.Fatalf("SetCPI: %v", err)
	}
	if bus.Regs[RegResolutionL] != 31 || bus.Regs[RegResolutionH] != 0 {
		t.Errorf("registers: L=%d H=%d, want 31 0", bus.Regs[RegResolutionL], bus.Regs[RegResolutionH])
	}
	got, err := d.CPI()
	if err != nil || got != 1600 {
		t.Errorf("CPI: got %d, %v", got, err)
	}

	if err := d.SetCPI(MaxCPI); err != nil {
		t.Fatalf("SetCPI(max): %v", err)
	}
	if got, _ := d.CPI(); got != MaxCPI {
		t.Errorf("CPI(max): got %d", got)
	}

	for _, bad := range []uint16{0, 25, 75, MaxCPI + CPIStep} {
		if err := d.SetCPI(bad); !errors.Is(err, ErrCPI) {
			t.Errorf("SetCPI(%d): got %v, want ErrCPI", bad, err)
		}
	}
}

func TestDecodeSampleLength(t *testing.T) {
	if _, err := DecodeSample([]byte{0, 1}); !errors.Is(err, ErrMalformed) {
		t.Errorf("short sample: got %v", err)
	}
}
