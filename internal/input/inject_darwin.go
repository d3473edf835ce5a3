//go:build darwin && cgo

package input

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation -framework ApplicationServices

#include <CoreGraphics/CoreGraphics.h>
#include <CoreFoundation/CoreFoundation.h>
#include <ApplicationServices/ApplicationServices.h>

// Check if we have accessibility permissions
bool hasAccessibilityPermissions() {
    return AXIsProcessTrusted();
}

// Get current mouse position
CGPoint getCurrentMousePosition() {
    CGEventRef event = CGEventCreate(NULL);
    CGPoint cursor = CGEventGetLocation(event);
    CFRelease(event);
    return cursor;
}

// Helper functions - inject mouse move with relative delta
void injectMouseMove(CGFloat dx, CGFloat dy, int dragButton) {
    CGPoint currentPos = getCurrentMousePosition();
    CGPoint newPos = CGPointMake(currentPos.x + dx, currentPos.y + dy);

    CGEventType eventType = kCGEventMouseMoved;
    CGMouseButton cgButton = kCGMouseButtonLeft;
    switch (dragButton) {
        case 1: eventType = kCGEventLeftMouseDragged; break;
        case 2: eventType = kCGEventOtherMouseDragged; cgButton = kCGMouseButtonCenter; break;
        case 3: eventType = kCGEventRightMouseDragged; cgButton = kCGMouseButtonRight; break;
    }

    CGEventRef event = CGEventCreateMouseEvent(NULL, eventType, newPos, cgButton);
    CGEventSetIntegerValueField(event, kCGMouseEventDeltaX, (int64_t)dx);
    CGEventSetIntegerValueField(event, kCGMouseEventDeltaY, (int64_t)dy);
    CGEventPost(kCGSessionEventTap, event);
    CFRelease(event);
}

// Buttons use X11 numbering: 1 left, 2 middle, 3 right
int injectMouseButton(int button, bool pressed) {
    CGMouseButton cgButton;
    CGEventType eventType;

    switch (button) {
        case 1:
            cgButton = kCGMouseButtonLeft;
            eventType = pressed ? kCGEventLeftMouseDown : kCGEventLeftMouseUp;
            break;
        case 2:
            cgButton = kCGMouseButtonCenter;
            eventType = pressed ? kCGEventOtherMouseDown : kCGEventOtherMouseUp;
            break;
        case 3:
            cgButton = kCGMouseButtonRight;
            eventType = pressed ? kCGEventRightMouseDown : kCGEventRightMouseUp;
            break;
        default:
            return 0;
    }

    CGPoint currentPos = getCurrentMousePosition();
    CGEventRef event = CGEventCreateMouseEvent(NULL, eventType, currentPos, cgButton);
    CGEventPost(kCGSessionEventTap, event);
    CFRelease(event);
    return 1;
}

void injectScroll(int32_t vertical, int32_t horizontal) {
    CGEventRef event = CGEventCreateScrollWheelEvent(NULL, kCGScrollEventUnitLine, 2, vertical, horizontal);
    CGEventPost(kCGSessionEventTap, event);
    CFRelease(event);
}

void injectKey(CGKeyCode keyCode, bool pressed) {
    CGEventRef event = CGEventCreateKeyboardEvent(NULL, keyCode, pressed);
    CGEventPost(kCGSessionEventTap, event);
    CFRelease(event);
}

void injectUnicode(UniChar ch, bool pressed) {
    CGEventRef event = CGEventCreateKeyboardEvent(NULL, 0, pressed);
    CGEventKeyboardSetUnicodeString(event, 1, &ch);
    CGEventPost(kCGSessionEventTap, event);
    CFRelease(event);
}
*/
import "C"
import (
	"fmt"
	"sync"
)

// macOS implementation of input injection using CoreGraphics

// X11 keysym name to macOS CGKeyCode mapping
// Reference: https://developer.apple.com/documentation/coregraphics/cgkeycode
var macKeyCodes = map[string]uint16{
	// Function keys
	"F1":  0x7A,
	"F2":  0x78,
	"F3":  0x63,
	"F4":  0x76,
	"F5":  0x60,
	"F6":  0x61,
	"F7":  0x62,
	"F8":  0x64,
	"F9":  0x65,
	"F10": 0x6D,
	"F11": 0x67,
	"F12": 0x6F,

	// Special keys
	"BackSpace": 0x33,
	"Tab":       0x30,
	"Return":    0x24,
	"Escape":    0x35,
	"space":     0x31,
	"Caps_Lock": 0x39,

	// Arrow keys
	"Left":  0x7B,
	"Up":    0x7E,
	"Right": 0x7C,
	"Down":  0x7D,

	// Navigation keys
	"Prior":  0x74,
	"Next":   0x79,
	"End":    0x77,
	"Home":   0x73,
	"Insert": 0x72,
	"Delete": 0x75,

	// Modifier keys
	"Super_L":          0x37,
	"Super_R":          0x36,
	"Shift_L":          0x38,
	"Shift_R":          0x3C,
	"Control_L":        0x3B,
	"Control_R":        0x3E,
	"Alt_L":            0x3A,
	"Alt_R":            0x3D,
	"ISO_Level3_Shift": 0x3D,
	"Menu":             0x6E,
}

// Quartz posts CoreGraphics events to the session event tap.
type Quartz struct {
	// CoreGraphics needs the held button to turn moves into drags.
	mu   sync.Mutex
	held int
}

// OpenQuartz checks for the accessibility permission required to post
// events.
func OpenQuartz() (interface{}, error) {
	if !bool(C.hasAccessibilityPermissions()) {
		return nil, fmt.Errorf("quartz: accessibility permission not granted: %w", ErrUnavailable)
	}
	return &Quartz{}, nil
}

func (q *Quartz) key(keyID int, symbol string, pressed bool) error {
	r, ok := SingleRune(symbol)
	if !ok && symbol == "" {
		r, ok = RuneForKeysym(keyID)
	}
	if ok && r <= 0xffff {
		C.injectUnicode(C.UniChar(r), C.bool(pressed))
		return nil
	}

	code, found := macKeyCodes[symbol]
	if !found {
		return &SymbolError{KeyID: keyID, Symbol: symbol}
	}
	C.injectKey(C.CGKeyCode(code), C.bool(pressed))
	return nil
}

// KeyDown presses a key.
func (q *Quartz) KeyDown(keyID int, symbol string) error {
	return q.key(keyID, symbol, true)
}

// KeyUp releases a key.
func (q *Quartz) KeyUp(keyID int, symbol string) error {
	return q.key(keyID, symbol, false)
}

func (q *Quartz) button(button int, pressed bool) error {
	if C.injectMouseButton(C.int(button), C.bool(pressed)) == 0 {
		return &ButtonError{Button: button}
	}
	q.mu.Lock()
	if pressed {
		q.held = button
	} else if q.held == button {
		q.held = 0
	}
	q.mu.Unlock()
	return nil
}

// MouseButtonDown presses a pointer button.
func (q *Quartz) MouseButtonDown(button int) error {
	return q.button(button, true)
}

// MouseButtonUp releases a pointer button.
func (q *Quartz) MouseButtonUp(button int) error {
	return q.button(button, false)
}

// MouseMove moves the pointer, dragging if a button is held.
func (q *Quartz) MouseMove(dx, dy int) error {
	q.mu.Lock()
	held := q.held
	q.mu.Unlock()
	C.injectMouseMove(C.CGFloat(dx), C.CGFloat(dy), C.int(held))
	return nil
}

// MouseWheel scrolls one line in the direction of button.
func (q *Quartz) MouseWheel(button int) error {
	switch button {
	case ButtonWheelUp:
		C.injectScroll(1, 0)
	case ButtonWheelDown:
		C.injectScroll(-1, 0)
	case ButtonWheelLeft:
		C.injectScroll(0, 1)
	case ButtonWheelRight:
		C.injectScroll(0, -1)
	default:
		return &ButtonError{Button: button}
	}
	return nil
}

func platformCandidates() []Candidate {
	return []Candidate{{Name: "quartz", Open: OpenQuartz}}
}
