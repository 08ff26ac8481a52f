package hid

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tarm/serial"
)

// Sink delivers a report to the host. Emit must not block.
type Sink interface {
	Emit(r Report) error
}

// ErrSinkFull is returned when a queued sink has no room for a report.
var ErrSinkFull = errors.New("hid: sink queue full")

// FrameStart marks the beginning of a report frame on the serial bridge.
const FrameStart = 0xA5

// FrameSize is the length of one framed report.
const FrameSize = 1 + ReportSize

// Frame encodes r for the serial bridge.
func Frame(r Report) [FrameSize]byte {
	b := r.Bytes()
	return [FrameSize]byte{FrameStart, b[0], b[1], b[2]}
}

// SerialConfig selects the port for the serial HID bridge.
type SerialConfig struct {
	Device string
	Baud   int
	Queue  int // queued frames, 0 means 64
}

// OpenSerial opens the bridge port and returns a queued sink writing to it.
func OpenSerial(cfg SerialConfig) (*WriterSink, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("serial sink: no device")
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: 100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Device, err)
	}
	return NewWriterSink(port, cfg.Queue), nil
}

// WriterSink frames reports onto an io.WriteCloser from its own goroutine so
// Emit never waits on the port. When the queue is full the report is dropped.
type WriterSink struct {
	w     io.WriteCloser
	queue chan [FrameSize]byte
	done  chan struct{}
	once  sync.Once

	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewWriterSink starts the writer goroutine.
func NewWriterSink(w io.WriteCloser, depth int) *WriterSink {
	if depth <= 0 {
		depth = 64
	}
	s := &WriterSink{
		w:     w,
		queue: make(chan [FrameSize]byte, depth),
		done:  make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *WriterSink) loop() {
	defer close(s.done)
	for f := range s.queue {
		if _, err := s.w.Write(f[:]); err != nil {
			if s.failed.Add(1) == 1 {
				log.Printf("serial sink: write error: %v", err)
			}
			continue
		}
		s.written.Add(1)
	}
}

// Emit queues r for writing.
func (s *WriterSink) Emit(r Report) error {
	select {
	case s.queue <- Frame(r):
		return nil
	default:
		s.dropped.Add(1)
		return ErrSinkFull
	}
}

// Written returns the number of frames written to the port.
func (s *WriterSink) Written() uint64 { return s.written.Load() }

// Dropped returns the number of reports dropped on a full queue.
func (s *WriterSink) Dropped() uint64 { return s.dropped.Load() }

// Close flushes queued frames and closes the port.
func (s *WriterSink) Close() error {
	var err error
	s.once.Do(func() {
		close(s.queue)
		<-s.done
		err = s.w.Close()
	})
	return err
}

// MultiSink emits to every sink. A failing sink does not stop the others.
type MultiSink []Sink

// Emit fans r out and joins the errors.
func (m MultiSink) Emit(r Report) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink logs every Nth report. It is the sink of last resort on a dev host.
type LogSink struct {
	Every uint32
	n     uint32
}

// Emit logs r when due.
func (l *LogSink) Emit(r Report) error {
	l.n++
	if l.Every == 0 || l.n%l.Every == 0 {
		log.Printf("hid: report %s", r)
	}
	return nil
}
