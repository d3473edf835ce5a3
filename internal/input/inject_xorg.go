//go:build linux || freebsd || netbsd || openbsd

package input

import (
	"fmt"
	"os"
	"sync"

	"github.com/robotn/xgb"
	"github.com/robotn/xgb/xproto"
	"github.com/robotn/xgb/xtest"
	"github.com/robotn/xgbutil"
	"github.com/robotn/xgbutil/keybind"
)

// X11 implementation of input injection using the XTEST extension

// Xorg injects events through a single X display connection. Calls are
// serialized because the keyboard mapping may be rewritten on the fly.
type Xorg struct {
	mu   sync.Mutex
	xu   *xgbutil.XUtil
	conn *xgb.Conn

	minKeycode xproto.Keycode
	perKeycode int
	keysyms    []xproto.Keysym

	// Keycodes without symbols, rebound to type characters that the
	// current layout lacks.
	spares *sparePool
}

// maxSpares bounds how many unmapped characters can be held at once.
const maxSpares = 8

// OpenXorg connects to the display named by $DISPLAY.
func OpenXorg() (interface{}, error) {
	if os.Getenv("DISPLAY") == "" {
		return nil, fmt.Errorf("xorg: DISPLAY is not set: %w", ErrUnavailable)
	}

	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("xorg: %v: %w", err, ErrUnavailable)
	}
	if err := xtest.Init(xu.Conn()); err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("xorg: XTEST extension: %v: %w", err, ErrUnavailable)
	}
	keybind.Initialize(xu)

	x := &Xorg{xu: xu, conn: xu.Conn()}
	if err := x.loadMapping(); err != nil {
		x.conn.Close()
		return nil, err
	}
	return x, nil
}

func (x *Xorg) loadMapping() error {
	setup := xproto.Setup(x.conn)
	count := byte(setup.MaxKeycode - setup.MinKeycode + 1)
	reply, err := xproto.GetKeyboardMapping(x.conn, setup.MinKeycode, count).Reply()
	if err != nil {
		return fmt.Errorf("xorg: get keyboard mapping: %w", err)
	}

	x.minKeycode = setup.MinKeycode
	x.perKeycode = int(reply.KeysymsPerKeycode)
	x.keysyms = reply.Keysyms

	// Collect the highest keycodes with no symbols at all.
	var spares []int
	for i := len(x.keysyms)/x.perKeycode - 1; i >= 0 && len(spares) < maxSpares; i-- {
		empty := true
		for _, ks := range x.keysyms[i*x.perKeycode : (i+1)*x.perKeycode] {
			if ks != 0 {
				empty = false
				break
			}
		}
		if empty {
			spares = append(spares, int(x.minKeycode)+i)
		}
	}
	x.spares = newSparePool(spares)
	return nil
}

func (x *Xorg) keycodeForKeysym(keysym xproto.Keysym) (xproto.Keycode, bool) {
	for i, ks := range x.keysyms {
		if ks == keysym {
			return x.minKeycode + xproto.Keycode(i/x.perKeycode), true
		}
	}
	return 0, false
}

// bindSpare maps keysym onto a spare keycode that is not held.
func (x *Xorg) bindSpare(keysym xproto.Keysym) (xproto.Keycode, error) {
	c, ok := x.spares.take()
	if !ok {
		return 0, fmt.Errorf("xorg: no free keycode to bind keysym 0x%X", uint32(keysym))
	}
	code := xproto.Keycode(c)
	if err := x.remap(code, keysym); err != nil {
		return 0, err
	}
	return code, nil
}

// remap sets every symbol of code to keysym, or clears it for 0.
func (x *Xorg) remap(code xproto.Keycode, keysym xproto.Keysym) error {
	syms := make([]xproto.Keysym, x.perKeycode)
	for i := range syms {
		syms[i] = keysym
	}
	err := xproto.ChangeKeyboardMappingChecked(x.conn, 1, code, byte(x.perKeycode), syms).Check()
	if err != nil {
		return fmt.Errorf("xorg: change keyboard mapping: %w", err)
	}
	offset := int(code-x.minKeycode) * x.perKeycode
	copy(x.keysyms[offset:offset+x.perKeycode], syms)
	return nil
}

func (x *Xorg) keycode(keyID int, symbol string) (xproto.Keycode, error) {
	if symbol != "" {
		if codes := keybind.StrToKeycodes(x.xu, symbol); len(codes) > 0 {
			return codes[0], nil
		}
		if r, ok := SingleRune(symbol); ok {
			keyID = KeysymForRune(r)
		}
	}
	if keyID == 0 {
		return 0, &SymbolError{KeyID: keyID, Symbol: symbol}
	}

	keysym := xproto.Keysym(keyID)
	if code, ok := x.keycodeForKeysym(keysym); ok {
		return code, nil
	}
	if _, ok := RuneForKeysym(keyID); !ok {
		return 0, &SymbolError{KeyID: keyID, Symbol: symbol}
	}
	return x.bindSpare(keysym)
}

func (x *Xorg) fakeInput(eventType, detail byte, dx, dy int16) error {
	return xtest.FakeInputChecked(x.conn, eventType, detail, 0, 0, dx, dy, 0).Check()
}

func (x *Xorg) key(keyID int, symbol string, eventType byte) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	code, err := x.keycode(keyID, symbol)
	if err != nil {
		return err
	}
	if err := x.fakeInput(eventType, byte(code), 0, 0); err != nil {
		return err
	}
	x.spares.press(int(code), eventType == xproto.KeyPress)
	return nil
}

// KeyDown presses the key for symbol, or for keyID if symbol is unknown.
func (x *Xorg) KeyDown(keyID int, symbol string) error {
	return x.key(keyID, symbol, xproto.KeyPress)
}

// KeyUp releases the key for symbol, or for keyID if symbol is unknown.
func (x *Xorg) KeyUp(keyID int, symbol string) error {
	return x.key(keyID, symbol, xproto.KeyRelease)
}

func (x *Xorg) button(button int, eventType byte) error {
	if button < 1 || button > 255 {
		return &ButtonError{Button: button}
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.fakeInput(eventType, byte(button), 0, 0)
}

// MouseButtonDown presses a pointer button.
func (x *Xorg) MouseButtonDown(button int) error {
	return x.button(button, xproto.ButtonPress)
}

// MouseButtonUp releases a pointer button.
func (x *Xorg) MouseButtonUp(button int) error {
	return x.button(button, xproto.ButtonRelease)
}

// MouseMove moves the pointer relative to its current position.
func (x *Xorg) MouseMove(dx, dy int) error {
	lo, hi := DefaultDeltaRange()
	x.mu.Lock()
	defer x.mu.Unlock()
	// A detail of 1 makes the motion relative.
	return x.fakeInput(xproto.MotionNotify, 1, int16(clamp(dx, lo, hi)), int16(clamp(dy, lo, hi)))
}

// MouseWheel clicks a wheel button once.
func (x *Xorg) MouseWheel(button int) error {
	if button < ButtonWheelUp || button > ButtonWheelRight {
		return &ButtonError{Button: button}
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.fakeInput(xproto.ButtonPress, byte(button), 0, 0); err != nil {
		return err
	}
	return x.fakeInput(xproto.ButtonRelease, byte(button), 0, 0)
}

// Close restores the spare keycodes and closes the display connection.
func (x *Xorg) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, code := range x.spares.rebound() {
		if err := x.remap(xproto.Keycode(code), 0); err != nil {
			log.Errorf("xorg: failed to restore keycode %d: %v", code, err)
		}
	}
	x.conn.Close()
	return nil
}

func platformCandidates() []Candidate {
	return []Candidate{{Name: "xorg", Open: OpenXorg}}
}
