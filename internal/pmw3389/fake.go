package pmw3389

import "github.com/sweeney/flowmouse/internal/clock"

// OpKind classifies a recorded bus event.
type OpKind uint8

const (
	OpSelect OpKind = iota
	OpDeselect
	OpWrite
	OpRead
)

// Op is one recorded bus event. Byte is the value sent or returned.
type Op struct {
	Kind OpKind
	Byte byte
	At   clock.Tick
}

// FakeBus emulates the sensor on the other end of the bus. It implements both
// drivers.SPI and ChipSelect so a test can pass it for both.
type FakeBus struct {
	// Clock timestamps recorded ops. Nil records zero.
	Clock clock.Monotonic

	// Regs holds the register file. Writes land here, reads answer from here.
	Regs map[byte]byte

	// IDFailures makes the first n product-id reads return 0x00.
	IDFailures int

	// Burst is the byte stream returned by address-less reads.
	Burst []byte

	// TxError, if set, is returned by every Tx.
	TxError error
	// CSError, if set, is returned by Set.
	CSError error

	// Ops records every event in order.
	Ops []Op

	selected bool
	pending  int // -1 idle, else address awaiting data
	writing  bool
	idReads  int
}

// NewFakeBus returns a bus wired to a healthy device.
func NewFakeBus(c clock.Monotonic) *FakeBus {
	return &FakeBus{
		Clock: c,
		Regs: map[byte]byte{
			RegProductID:        ProductID,
			RegRevisionID:       0x00,
			RegInverseProductID: InverseProductID,
		},
		pending: -1,
	}
}

func (f *FakeBus) now() clock.Tick {
	if f.Clock == nil {
		return 0
	}
	return f.Clock.Now()
}

// Set drives chip-select. Raising it ends the current transaction.
func (f *FakeBus) Set(high bool) error {
	if f.CSError != nil {
		return f.CSError
	}
	if high {
		f.Ops = append(f.Ops, Op{Kind: OpDeselect, At: f.now()})
		f.selected = false
		f.pending = -1
		f.writing = false
		return nil
	}
	f.Ops = append(f.Ops, Op{Kind: OpSelect, At: f.now()})
	f.selected = true
	return nil
}

// Tx transfers bytes. A nil w clocks out zeros and fills r.
func (f *FakeBus) Tx(w, r []byte) error {
	if f.TxError != nil {
		return f.TxError
	}
	for _, b := range w {
		f.Ops = append(f.Ops, Op{Kind: OpWrite, Byte: b, At: f.now()})
		f.receive(b)
	}
	for i := range r {
		v := f.respond()
		r[i] = v
		f.Ops = append(f.Ops, Op{Kind: OpRead, Byte: v, At: f.now()})
	}
	return nil
}

// Transfer sends and receives one byte.
func (f *FakeBus) Transfer(b byte) (byte, error) {
	var r [1]byte
	err := f.Tx([]byte{b}, r[:])
	return r[0], err
}

func (f *FakeBus) receive(b byte) {
	switch {
	case f.writing && f.pending >= 0:
		f.Regs[byte(f.pending)] = b
		f.pending = -1
		f.writing = false
	case b&WriteBit != 0:
		f.pending = int(b &^ WriteBit)
		f.writing = true
	default:
		f.pending = int(b)
		f.writing = false
	}
}

func (f *FakeBus) respond() byte {
	if f.pending >= 0 && !f.writing {
		addr := byte(f.pending)
		f.pending = -1
		if addr == RegProductID && f.idReads < f.IDFailures {
			f.idReads++
			return 0x00
		}
		return f.Regs[addr]
	}
	if len(f.Burst) == 0 {
		return 0
	}
	b := f.Burst[0]
	f.Burst = f.Burst[1:]
	return b
}

// Selected reports whether chip-select is currently asserted.
func (f *FakeBus) Selected() bool { return f.selected }

// Reset clears recorded ops.
func (f *FakeBus) Reset() { f.Ops = nil }

// Kinds returns the op kinds of Ops, for compact assertions.
func (f *FakeBus) Kinds() []OpKind {
	out := make([]OpKind, len(f.Ops))
	for i, op := range f.Ops {
		out[i] = op.Kind
	}
	return out
}
