//go:build windows

package input

import (
	"fmt"
	"math"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Windows implementation of input injection using SendInput

const (
	inputMouse    = 0
	inputKeyboard = 1

	mouseeventfMove       = 0x0001
	mouseeventfLeftDown   = 0x0002
	mouseeventfLeftUp     = 0x0004
	mouseeventfRightDown  = 0x0008
	mouseeventfRightUp    = 0x0010
	mouseeventfMiddleDown = 0x0020
	mouseeventfMiddleUp   = 0x0040
	mouseeventfWheel      = 0x0800
	mouseeventfHWheel     = 0x1000

	keyeventfKeyUp   = 0x0002
	keyeventfUnicode = 0x0004

	wheelDelta = 120
)

// SendInput takes wheel deltas as a DWORD holding a signed value.
var negativeWheel = uint32(wheelDeltaNegative())

func wheelDeltaNegative() int32 { return -wheelDelta }

var (
	user32        = windows.NewLazySystemDLL("user32.dll")
	procSendInput = user32.NewProc("SendInput")
)

type mouseInput struct {
	Dx          int32
	Dy          int32
	MouseData   uint32
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

type keybdInput struct {
	WVk         uint16
	WScan       uint16
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

// The INPUT union is as large as its mouse member; the keyboard variant is
// padded to match.
type mouseINPUT struct {
	Type uint32
	Mi   mouseInput
}

type keybdINPUT struct {
	Type    uint32
	Ki      keybdInput
	padding [8]byte
}

// X11 keysym names to virtual key codes
var virtualKeys = map[string]uint16{
	"BackSpace": 0x08,
	"Tab":       0x09,
	"Return":    0x0D,
	"Pause":     0x13,
	"Escape":    0x1B,
	"space":     0x20,
	"Delete":    0x2E,
	"Insert":    0x2D,

	"Menu":    0x5D,
	"Super_L": 0x5B,
	"Super_R": 0x5C,

	"Alt_L":            0xA4,
	"Alt_R":            0xA5,
	"Caps_Lock":        0x14,
	"Num_Lock":         0x90,
	"Scroll_Lock":      0x91,
	"Control_L":        0xA2,
	"Control_R":        0xA3,
	"ISO_Level3_Shift": 0xA5,
	"Shift_L":          0xA0,
	"Shift_R":          0xA1,
	"Print":            0x2C,

	"F1":  0x70,
	"F2":  0x71,
	"F3":  0x72,
	"F4":  0x73,
	"F5":  0x74,
	"F6":  0x75,
	"F7":  0x76,
	"F8":  0x77,
	"F9":  0x78,
	"F10": 0x79,
	"F11": 0x7A,
	"F12": 0x7B,

	"Down":  0x28,
	"Left":  0x25,
	"Right": 0x27,
	"Up":    0x26,

	"End":   0x23,
	"Home":  0x24,
	"Next":  0x22,
	"Prior": 0x21,
}

var buttonFlags = map[int][2]uint32{
	ButtonLeft:   {mouseeventfLeftDown, mouseeventfLeftUp},
	ButtonMiddle: {mouseeventfMiddleDown, mouseeventfMiddleUp},
	ButtonRight:  {mouseeventfRightDown, mouseeventfRightUp},
}

// Win32 injects events with SendInput, which is safe to call from any
// goroutine.
type Win32 struct{}

// OpenWin32 checks that SendInput can be found.
func OpenWin32() (interface{}, error) {
	if err := procSendInput.Find(); err != nil {
		return nil, fmt.Errorf("win32: %v: %w", err, ErrUnavailable)
	}
	return &Win32{}, nil
}

func sendInput(input unsafe.Pointer, size uintptr) error {
	n, _, err := procSendInput.Call(1, uintptr(input), size)
	if n != 1 {
		return fmt.Errorf("SendInput failed: %v", err)
	}
	return nil
}

func sendMouse(mi mouseInput) error {
	in := mouseINPUT{Type: inputMouse, Mi: mi}
	return sendInput(unsafe.Pointer(&in), unsafe.Sizeof(in))
}

func sendKeyboard(ki keybdInput) error {
	in := keybdINPUT{Type: inputKeyboard, Ki: ki}
	return sendInput(unsafe.Pointer(&in), unsafe.Sizeof(in))
}

// key sends a character as a unicode event, and anything else as a virtual
// key.
func (w *Win32) key(keyID int, symbol string, flags uint32) error {
	r, ok := SingleRune(symbol)
	if !ok && symbol == "" {
		r, ok = RuneForKeysym(keyID)
	}
	if ok && r <= 0xffff {
		return sendKeyboard(keybdInput{WScan: uint16(r), DwFlags: keyeventfUnicode | flags})
	}

	vk, found := virtualKeys[symbol]
	if !found {
		return &SymbolError{KeyID: keyID, Symbol: symbol}
	}
	return sendKeyboard(keybdInput{WVk: vk, DwFlags: flags})
}

// KeyDown presses a key.
func (w *Win32) KeyDown(keyID int, symbol string) error {
	return w.key(keyID, symbol, 0)
}

// KeyUp releases a key.
func (w *Win32) KeyUp(keyID int, symbol string) error {
	return w.key(keyID, symbol, keyeventfKeyUp)
}

// MouseButtonDown presses a pointer button.
func (w *Win32) MouseButtonDown(button int) error {
	flags, ok := buttonFlags[button]
	if !ok {
		return &ButtonError{Button: button}
	}
	return sendMouse(mouseInput{DwFlags: flags[0]})
}

// MouseButtonUp releases a pointer button.
func (w *Win32) MouseButtonUp(button int) error {
	flags, ok := buttonFlags[button]
	if !ok {
		return &ButtonError{Button: button}
	}
	return sendMouse(mouseInput{DwFlags: flags[1]})
}

// MouseMove moves the pointer relative to its current position.
func (w *Win32) MouseMove(dx, dy int) error {
	return sendMouse(mouseInput{Dx: int32(dx), Dy: int32(dy), DwFlags: mouseeventfMove})
}

// MouseWheel clicks the wheel once in the direction of button.
func (w *Win32) MouseWheel(button int) error {
	var mi mouseInput
	switch button {
	case ButtonWheelUp:
		mi = mouseInput{DwFlags: mouseeventfWheel, MouseData: uint32(wheelDelta)}
	case ButtonWheelDown:
		mi = mouseInput{DwFlags: mouseeventfWheel, MouseData: negativeWheel}
	case ButtonWheelLeft:
		mi = mouseInput{DwFlags: mouseeventfHWheel, MouseData: negativeWheel}
	case ButtonWheelRight:
		mi = mouseInput{DwFlags: mouseeventfHWheel, MouseData: uint32(wheelDelta)}
	default:
		return &ButtonError{Button: button}
	}
	return sendMouse(mi)
}

// DeltaRange reports the range of a MOUSEINPUT delta.
func (w *Win32) DeltaRange() (lo, hi int) {
	return math.MinInt32, math.MaxInt32
}

func platformCandidates() []Candidate {
	return []Candidate{{Name: "win32", Open: OpenWin32}}
}
