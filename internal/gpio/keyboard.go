package gpio

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/mattn/go-tty"
)

// Keyboard turns key presses on the controlling terminal into momentary
// inputs. A press holds its input active for Hold.
type Keyboard struct {
	mu      sync.Mutex
	pressed map[rune]time.Time
	hold    time.Duration
	now     func() time.Time

	tty  *tty.TTY
	done chan struct{}
}

// DefaultHold is long enough for a 100ms polling task to see a press once.
const DefaultHold = 150 * time.Millisecond

// OpenKeyboard opens the controlling terminal and starts reading keys.
func OpenKeyboard(hold time.Duration) (*Keyboard, error) {
	t, err := tty.Open()
	if err != nil {
		return nil, fmt.Errorf("open tty: %w", err)
	}
	k := newKeyboard(hold, time.Now)
	k.tty = t
	go k.readLoop()
	return k, nil
}

func newKeyboard(hold time.Duration, now func() time.Time) *Keyboard {
	if hold <= 0 {
		hold = DefaultHold
	}
	return &Keyboard{
		pressed: make(map[rune]time.Time),
		hold:    hold,
		now:     now,
		done:    make(chan struct{}),
	}
}

func (k *Keyboard) readLoop() {
	defer close(k.done)
	for {
		r, err := k.tty.ReadRune()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("gpio: keyboard read: %v", err)
			}
			return
		}
		k.press(r)
	}
}

func (k *Keyboard) press(r rune) {
	k.mu.Lock()
	k.pressed[r] = k.now()
	k.mu.Unlock()
}

func (k *Keyboard) held(r rune) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	at, ok := k.pressed[r]
	return ok && k.now().Sub(at) < k.hold
}

// Key returns an input that is active while r was pressed within Hold.
func (k *Keyboard) Key(r rune) Input {
	return keyInput{k: k, r: r}
}

// Close restores the terminal.
func (k *Keyboard) Close() error {
	if k.tty == nil {
		return nil
	}
	return k.tty.Close()
}

type keyInput struct {
	k *Keyboard
	r rune
}

func (in keyInput) Read() (bool, error) {
	return in.k.held(in.r), nil
}
