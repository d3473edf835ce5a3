// Package input provides the platform drivers that inject keyboard and mouse
// events into the host, and the resolver that binds one of them at startup.
package input

import (
	"errors"
	"fmt"
	"math"
)

// Button ids follow the X11 numbering on every platform.
const (
	ButtonLeft       = 1
	ButtonMiddle     = 2
	ButtonRight      = 3
	ButtonWheelUp    = 4
	ButtonWheelDown  = 5
	ButtonWheelLeft  = 6
	ButtonWheelRight = 7
)

// Driver is the contract every platform driver implements.
//
// keyID is an X11 keysym and symbol an X11 keysym name or a single
// character; drivers prefer symbol and fall back to keyID.
type Driver interface {
	KeyDown(keyID int, symbol string) error
	KeyUp(keyID int, symbol string) error
	MouseButtonDown(button int) error
	MouseButtonUp(button int) error
	MouseMove(dx, dy int) error
	MouseWheel(button int) error
}

// DeltaRanger is implemented by drivers whose pointer deltas are not bound
// to the signed 16 bit range.
type DeltaRanger interface {
	DeltaRange() (lo, hi int)
}

// DefaultDeltaRange is the pointer delta range of the X11 protocol.
func DefaultDeltaRange() (lo, hi int) {
	return math.MinInt16, math.MaxInt16
}

// ErrUnavailable is wrapped by Candidate.Open when the driver cannot run in
// this environment; the resolver then moves on to the next candidate.
var ErrUnavailable = errors.New("driver unavailable")

// SymbolError is returned when a key cannot be mapped to anything the
// platform can type.
type SymbolError struct {
	KeyID  int
	Symbol string
}

func (e *SymbolError) Error() string {
	return fmt.Sprintf("invalid symbol: %q (keysym 0x%X)", e.Symbol, e.KeyID)
}

// ButtonError is returned for button ids a driver cannot express.
type ButtonError struct {
	Button int
}

func (e *ButtonError) Error() string {
	return fmt.Sprintf("invalid button number: %d", e.Button)
}

// KeysymForRune returns the X11 keysym of a character.
func KeysymForRune(r rune) int {
	if (r >= 0x20 && r <= 0x7e) || (r >= 0xa0 && r <= 0xff) {
		return int(r)
	}
	return 0x01000000 | int(r)
}

// RuneForKeysym is the inverse of KeysymForRune for character keysyms.
func RuneForKeysym(keysym int) (rune, bool) {
	switch {
	case (keysym >= 0x20 && keysym <= 0x7e) || (keysym >= 0xa0 && keysym <= 0xff):
		return rune(keysym), true
	case keysym&0xff000000 == 0x01000000:
		return rune(keysym & 0x00ffffff), true
	}
	return 0, false
}

// SingleRune reports whether s holds exactly one character.
func SingleRune(s string) (rune, bool) {
	var r rune
	n := 0
	for _, c := range s {
		r = c
		n++
		if n > 1 {
			return 0, false
		}
	}
	return r, n == 1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
