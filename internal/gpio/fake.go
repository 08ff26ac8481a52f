package gpio

import (
	"errors"
	"log"
)

// FakeInput is a test double that returns scripted input levels.
type FakeInput struct {
	// Samples contains scripted values to return.
	// Each call to Read() consumes the next sample.
	Samples []bool

	// index tracks current position in Samples
	index int

	// Reads counts calls to Read.
	Reads int

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeInput creates a FakeInput with the given samples.
func NewFakeInput(samples ...bool) *FakeInput {
	return &FakeInput{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeInput) Read() (bool, error) {
	f.Reads++
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}
	v := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return v, nil
}

// Reset resets the input to the beginning of samples.
func (f *FakeInput) Reset() {
	f.index = 0
	f.Reads = 0
}

// FakeOutput records every level it is driven to.
type FakeOutput struct {
	Value   bool
	History []bool

	// SetError, if set, will be returned by Set and Toggle.
	SetError error
	// GetError, if set, will be returned by Get.
	GetError error
}

// Set records on.
func (f *FakeOutput) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Value = on
	f.History = append(f.History, on)
	return nil
}

// Get returns the current value.
func (f *FakeOutput) Get() (bool, error) {
	if f.GetError != nil {
		return false, f.GetError
	}
	return f.Value, nil
}

// Toggle inverts the current value.
func (f *FakeOutput) Toggle() error {
	return f.Set(!f.Value)
}

// LogOutput is an output with no hardware behind it. It logs each change.
type LogOutput struct {
	Name  string
	value bool
}

// Set logs transitions.
func (o *LogOutput) Set(on bool) error {
	if on != o.value {
		log.Printf("gpio: %s -> %s", o.Name, levelString(on))
	}
	o.value = on
	return nil
}

// Get returns the current value.
func (o *LogOutput) Get() (bool, error) {
	return o.value, nil
}

// Toggle inverts the current value.
func (o *LogOutput) Toggle() error {
	return o.Set(!o.value)
}

// Constant is an input fixed at one level, for unwired buttons.
type Constant bool

// Read returns the fixed level.
func (c Constant) Read() (bool, error) { return bool(c), nil }

func levelString(on bool) string {
	if on {
		return "HIGH"
	}
	return "LOW"
}
