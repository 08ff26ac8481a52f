package gpio

import (
	"errors"
	"testing"
	"time"
)

func TestFakeInputRead(t *testing.T) {
	f := NewFakeInput(true, false, true)

	want := []bool{true, false, true, true} // last repeats
	for i, w := range want {
		v, err := f.Read()
		if err != nil {
			t.Fatalf("read %d: unexpected error: %v", i, err)
		}
		if v != w {
			t.Errorf("read %d: expected %v, got %v", i, w, v)
		}
	}
	if f.Reads != 4 {
		t.Errorf("expected 4 reads, got %d", f.Reads)
	}
}

func TestFakeInputNoSamples(t *testing.T) {
	f := NewFakeInput()

	if _, err := f.Read(); err == nil {
		t.Error("expected error with no samples")
	}
}

func TestFakeInputError(t *testing.T) {
	f := NewFakeInput(true)
	f.ReadError = errors.New("simulated error")

	_, err := f.Read()
	if err == nil || err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeInputReset(t *testing.T) {
	f := NewFakeInput(true, false)
	f.Read()
	f.Reset()

	if v, _ := f.Read(); v != true {
		t.Errorf("after reset: expected true, got %v", v)
	}
}

func TestFakeOutput(t *testing.T) {
	var o FakeOutput

	if err := o.Toggle(); err != nil {
		t.Fatal(err)
	}
	if err := o.Toggle(); err != nil {
		t.Fatal(err)
	}
	if err := o.Set(true); err != nil {
		t.Fatal(err)
	}
	want := []bool{true, false, true}
	if len(o.History) != len(want) {
		t.Fatalf("history: got %v, want %v", o.History, want)
	}
	for i := range want {
		if o.History[i] != want[i] {
			t.Errorf("history[%d]: got %v, want %v", i, o.History[i], want[i])
		}
	}
	if v, _ := o.Get(); !v {
		t.Error("expected output high")
	}

	o.SetError = errors.New("line busy")
	if err := o.Toggle(); err == nil {
		t.Error("expected error from Toggle")
	}
	if !o.Value {
		t.Error("failed toggle should not change value")
	}
}

func TestLogOutput(t *testing.T) {
	o := &LogOutput{Name: "led"}
	o.Toggle()
	if v, _ := o.Get(); !v {
		t.Error("expected on after toggle")
	}
	o.Set(false)
	if v, _ := o.Get(); v {
		t.Error("expected off")
	}
}

func TestConstant(t *testing.T) {
	if v, _ := Constant(true).Read(); !v {
		t.Error("expected true")
	}
}

func TestKeyboardHold(t *testing.T) {
	now := time.Unix(1000, 0)
	k := newKeyboard(100*time.Millisecond, func() time.Time { return now })
	up := k.Key('+')
	down := k.Key('-')

	if v, _ := up.Read(); v {
		t.Error("up should not be held before a press")
	}

	k.press('+')
	if v, _ := up.Read(); !v {
		t.Error("up should be held right after press")
	}
	if v, _ := down.Read(); v {
		t.Error("down should not be affected")
	}

	now = now.Add(99 * time.Millisecond)
	if v, _ := up.Read(); !v {
		t.Error("up should still be held within hold window")
	}

	now = now.Add(time.Millisecond)
	if v, _ := up.Read(); v {
		t.Error("up should release after hold window")
	}

	if err := k.Close(); err != nil {
		t.Errorf("close without tty: %v", err)
	}
}
