// Package inputtest provides a recording driver for tests.
package inputtest

import (
	"fmt"
	"sync"
)

// Event is one recorded driver call.
type Event struct {
	Op     string
	KeyID  int
	Symbol string
	Button int
	DX, DY int
}

func (e Event) String() string {
	switch e.Op {
	case "KeyDown", "KeyUp":
		return fmt.Sprintf("%s(%d, %q)", e.Op, e.KeyID, e.Symbol)
	case "MouseMove":
		return fmt.Sprintf("%s(%d, %d)", e.Op, e.DX, e.DY)
	}
	return fmt.Sprintf("%s(%d)", e.Op, e.Button)
}

// Recorder implements input.Driver and records every call. Fail, when set,
// is consulted before recording; a non-nil result is returned and the call
// is not recorded.
type Recorder struct {
	mu     sync.Mutex
	events []Event

	Fail func(Event) error
}

func (r *Recorder) record(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		if err := r.Fail(e); err != nil {
			return err
		}
	}
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of the recorded calls.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Reset forgets the recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func (r *Recorder) KeyDown(keyID int, symbol string) error {
	return r.record(Event{Op: "KeyDown", KeyID: keyID, Symbol: symbol})
}

func (r *Recorder) KeyUp(keyID int, symbol string) error {
	return r.record(Event{Op: "KeyUp", KeyID: keyID, Symbol: symbol})
}

func (r *Recorder) MouseButtonDown(button int) error {
	return r.record(Event{Op: "MouseButtonDown", Button: button})
}

func (r *Recorder) MouseButtonUp(button int) error {
	return r.record(Event{Op: "MouseButtonUp", Button: button})
}

func (r *Recorder) MouseMove(dx, dy int) error {
	return r.record(Event{Op: "MouseMove", DX: dx, DY: dy})
}

func (r *Recorder) MouseWheel(button int) error {
	return r.record(Event{Op: "MouseWheel", Button: button})
}

// KeyDown is a convenience constructor for expected events.
func KeyDown(keyID int, symbol string) Event {
	return Event{Op: "KeyDown", KeyID: keyID, Symbol: symbol}
}

// KeyUp is a convenience constructor for expected events.
func KeyUp(keyID int, symbol string) Event {
	return Event{Op: "KeyUp", KeyID: keyID, Symbol: symbol}
}

// Wheel is a convenience constructor for expected events.
func Wheel(button int) Event {
	return Event{Op: "MouseWheel", Button: button}
}
