package hid

import "github.com/sweeney/flowmouse/internal/pmw3389"

// FakeSink records emitted reports.
type FakeSink struct {
	Reports []Report

	// Err, if set, is returned by every Emit and nothing is recorded.
	Err error
	// FailFirst makes the first n Emit calls fail with Err.
	FailFirst int

	calls int
}

// Emit records r.
func (f *FakeSink) Emit(r Report) error {
	f.calls++
	if f.Err != nil && (f.FailFirst == 0 || f.calls <= f.FailFirst) {
		return f.Err
	}
	f.Reports = append(f.Reports, r)
	return nil
}

// Calls returns the number of Emit calls.
func (f *FakeSink) Calls() int { return f.calls }

// FakeSource returns scripted results in order, repeating the last one.
type FakeSource struct {
	Results  []FakeResult
	Counters []uint32

	index int
}

// FakeResult is one scripted Report call.
type FakeResult struct {
	Report Report
	Err    error
}

// Report returns the next scripted result and records counter.
func (f *FakeSource) Report(counter uint32) (Report, error) {
	f.Counters = append(f.Counters, counter)
	if len(f.Results) == 0 {
		return Report{}, nil
	}
	r := f.Results[f.index]
	if f.index < len(f.Results)-1 {
		f.index++
	}
	return r.Report, r.Err
}

// FakeBurster returns scripted bursts.
type FakeBurster struct {
	Bursts [][]pmw3389.Motion
	Err    error
}

// ReadBurst copies the next scripted burst into samples.
func (f *FakeBurster) ReadBurst(samples []pmw3389.Motion) (int, error) {
	if f.Err != nil {
		return 0, f.Err
	}
	if len(f.Bursts) == 0 {
		return 0, nil
	}
	n := copy(samples, f.Bursts[0])
	f.Bursts = f.Bursts[1:]
	return n, nil
}
