//go:build cgo

// Package robotgo provides the generic fallback driver built on robotgo.
package robotgo

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-vgo/robotgo"

	"vtouchpad/internal/input"
)

// X11 keysym names to robotgo key names
var keyNames = map[string]string{
	"BackSpace": "backspace",
	"Tab":       "tab",
	"Return":    "enter",
	"Escape":    "esc",
	"space":     "space",
	"Delete":    "delete",
	"Insert":    "insert",
	"Print":     "printscreen",
	"Menu":      "menu",

	"Super_L":          "cmd",
	"Super_R":          "rcmd",
	"Alt_L":            "alt",
	"Alt_R":            "ralt",
	"ISO_Level3_Shift": "ralt",
	"Control_L":        "ctrl",
	"Control_R":        "rctrl",
	"Shift_L":          "shift",
	"Shift_R":          "rshift",
	"Caps_Lock":        "capslock",

	"Up":    "up",
	"Down":  "down",
	"Left":  "left",
	"Right": "right",
	"Home":  "home",
	"End":   "end",
	"Prior": "pageup",
	"Next":  "pagedown",
}

var buttonNames = map[int]string{
	input.ButtonLeft:   "left",
	input.ButtonMiddle: "center",
	input.ButtonRight:  "right",
}

// Driver injects events through robotgo. robotgo keeps global state, so
// calls are serialized.
type Driver struct {
	mu sync.Mutex
}

// Open returns the robotgo driver.
func Open() (interface{}, error) {
	return &Driver{}, nil
}

// Candidate returns the fallback candidate.
func Candidate() input.Candidate {
	return input.Candidate{Name: "robotgo", Open: Open}
}

func keyName(keyID int, symbol string) (string, error) {
	if name, ok := keyNames[symbol]; ok {
		return name, nil
	}
	if len(symbol) >= 2 && symbol[0] == 'F' {
		return strings.ToLower(symbol), nil
	}
	r, ok := input.SingleRune(symbol)
	if !ok && symbol == "" {
		r, ok = input.RuneForKeysym(keyID)
	}
	if ok {
		return string(r), nil
	}
	return "", &input.SymbolError{KeyID: keyID, Symbol: symbol}
}

func (d *Driver) key(keyID int, symbol, direction string) error {
	name, err := keyName(keyID, symbol)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// robotgo only toggles keys it knows; other characters are typed on
	// press and ignored on release.
	if r, ok := input.SingleRune(name); ok && r > 0x7e {
		if direction == "down" {
			robotgo.TypeStr(name)
		}
		return nil
	}
	return robotgo.KeyToggle(name, direction)
}

// KeyDown presses a key.
func (d *Driver) KeyDown(keyID int, symbol string) error {
	return d.key(keyID, symbol, "down")
}

// KeyUp releases a key.
func (d *Driver) KeyUp(keyID int, symbol string) error {
	return d.key(keyID, symbol, "up")
}

func (d *Driver) button(button int, direction string) error {
	name, ok := buttonNames[button]
	if !ok {
		return &input.ButtonError{Button: button}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := robotgo.Toggle(name, direction); err != nil {
		return fmt.Errorf("toggle %s button: %w", name, err)
	}
	return nil
}

// MouseButtonDown presses a pointer button.
func (d *Driver) MouseButtonDown(button int) error {
	return d.button(button, "down")
}

// MouseButtonUp releases a pointer button.
func (d *Driver) MouseButtonUp(button int) error {
	return d.button(button, "up")
}

// MouseMove moves the pointer relative to its current position.
func (d *Driver) MouseMove(dx, dy int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	robotgo.MoveRelative(dx, dy)
	return nil
}

// MouseWheel scrolls one step in the direction of button.
func (d *Driver) MouseWheel(button int) error {
	var x, y int
	switch button {
	case input.ButtonWheelUp:
		y = 1
	case input.ButtonWheelDown:
		y = -1
	case input.ButtonWheelLeft:
		x = -1
	case input.ButtonWheelRight:
		x = 1
	default:
		return &input.ButtonError{Button: button}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	robotgo.Scroll(x, y)
	return nil
}
