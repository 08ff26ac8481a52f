package pmw3389

import (
	"errors"
	"fmt"
)

// Errors returned by the driver.
var (
	ErrProtocol  = errors.New("pmw3389: protocol error")
	ErrMalformed = errors.New("pmw3389: malformed sample")
	ErrNotReady  = errors.New("pmw3389: not initialised")
	ErrNotBurst  = errors.New("pmw3389: burst mode not enabled")
	ErrBus       = errors.New("pmw3389: bus error")
	ErrCPI       = errors.New("pmw3389: cpi out of range")
)

// Code is a short, stable identifier for a failure class.
type Code string

const (
	CodeBus       Code = "bus"
	CodeChipSel   Code = "chip_select"
	CodeProtocol  Code = "protocol"
	CodeMalformed Code = "malformed"
)

// BusError wraps a failed transaction with the operation and register involved.
type BusError struct {
	Code Code
	Op   string
	Addr byte
	Err  error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("pmw3389: %s 0x%02x: %s: %v", e.Op, e.Addr, e.Code, e.Err)
}

func (e *BusError) Unwrap() error { return e.Err }

// Is makes every BusError match ErrBus.
func (e *BusError) Is(target error) bool { return target == ErrBus }

// CodeOf returns the failure class of err.
func CodeOf(err error) Code {
	var be *BusError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &be):
		return be.Code
	case errors.Is(err, ErrMalformed):
		return CodeMalformed
	}
	return CodeProtocol
}
