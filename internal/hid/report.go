// Package hid models the boot-mouse HID report and the places reports come
// from (sources) and go to (sinks).
package hid

import (
	"errors"
	"fmt"
)

// ReportSize is the length of an encoded report.
const ReportSize = 3

// Button bits in Report.Buttons.
const (
	ButtonLeft   = 0x01
	ButtonRight  = 0x02
	ButtonMiddle = 0x04
)

// ErrReportSize is returned when decoding a buffer of the wrong length.
var ErrReportSize = errors.New("hid: report must be 3 bytes")

// Report is one boot-mouse input report: [buttons][dx:i8][dy:i8].
type Report struct {
	Buttons uint8
	DX      int8
	DY      int8
}

// Bytes encodes r in wire order.
func (r Report) Bytes() [ReportSize]byte {
	return [ReportSize]byte{r.Buttons, byte(r.DX), byte(r.DY)}
}

func (r Report) String() string {
	return fmt.Sprintf("buttons=%03b dx=%d dy=%d", r.Buttons&0x07, r.DX, r.DY)
}

// ParseReport decodes a 3-byte report.
func ParseReport(b []byte) (Report, error) {
	if len(b) != ReportSize {
		return Report{}, fmt.Errorf("%w: got %d", ErrReportSize, len(b))
	}
	return Report{Buttons: b[0], DX: int8(b[1]), DY: int8(b[2])}, nil
}

// ReportDescriptor advertises a 3-button, 2-axis relative pointer.
var ReportDescriptor = []byte{
	0x05, 0x01, // Usage Page (Generic Desktop)
	0x09, 0x02, // Usage (Mouse)
	0xA1, 0x01, // Collection (Application)
	0x09, 0x01, //   Usage (Pointer)
	0xA1, 0x00, //   Collection (Physical)
	0x05, 0x09, //     Usage Page (Buttons)
	0x19, 0x01, //     Usage Minimum (1)
	0x29, 0x03, //     Usage Maximum (3)
	0x15, 0x00, //     Logical Minimum (0)
	0x25, 0x01, //     Logical Maximum (1)
	0x95, 0x03, //     Report Count (3)
	0x75, 0x01, //     Report Size (1)
	0x81, 0x02, //     Input (Data, Variable, Absolute)
	0x95, 0x01, //     Report Count (1)
	0x75, 0x05, //     Report Size (5)
	0x81, 0x01, //     Input (Constant) padding
	0x05, 0x01, //     Usage Page (Generic Desktop)
	0x09, 0x30, //     Usage (X)
	0x09, 0x31, //     Usage (Y)
	0x15, 0x81, //     Logical Minimum (-127)
	0x25, 0x7F, //     Logical Maximum (127)
	0x75, 0x08, //     Report Size (8)
	0x95, 0x02, //     Report Count (2)
	0x81, 0x06, //     Input (Data, Variable, Relative)
	0xC0, //   End Collection
	0xC0, // End Collection
}
