// Package keyboard translates client key events into driver key presses.
//
// A Translator holds the dead-key state of one session. A dead key press is
// deferred until the next key press, which is either combined with it into
// one character or sent after it.
package keyboard

import (
	"github.com/getlantern/golog"

	"vtouchpad/internal/input"
)

var log = golog.LoggerFor("vtouchpad.keyboard")

// Descriptor describes a key as sent by the client.
type Descriptor struct {
	// Name is the character the key produces, or empty.
	Name string
	// KeyID is the X11 keysym of the key.
	KeyID int
	// Symbol is the X11 keysym name, such as "Return" or "dead_tilde".
	Symbol string
}

type pending struct {
	name      string
	combining rune
}

// Translator is the keyboard state of one session. It is not safe for
// concurrent use.
type Translator struct {
	driver  input.Driver
	pending *pending
}

// New returns a translator sending events to driver.
func New(driver input.Driver) *Translator {
	return &Translator{driver: driver}
}

// Pending returns the deferred dead key, if any.
func (t *Translator) Pending() (name string, combining rune, ok bool) {
	if t.pending == nil {
		return "", 0, false
	}
	return t.pending.name, t.pending.combining, true
}

// Down presses a key, resolving any pending dead key first.
func (t *Translator) Down(d Descriptor) error {
	if p := t.pending; p != nil {
		t.pending = nil

		if base, ok := single(d.Name); ok {
			if composed, ok := Compose(base, p.combining); ok {
				return t.driver.KeyDown(input.KeysymForRune(composed), string(composed))
			}
		}
		if err := t.pressCharacter(p.name); err != nil {
			return err
		}
	}

	if IsDead(d.Symbol) {
		if combining, ok := Combining(d.Name, d.Symbol); ok {
			t.pending = &pending{name: spacing(d.Name, d.Symbol), combining: combining}
			return nil
		}
		log.Debugf("No combining character for dead key %q (%q)", d.Symbol, d.Name)
	}

	keyID, symbol := resolve(d)
	return t.driver.KeyDown(keyID, symbol)
}

// Up releases a key. Releases never compose.
func (t *Translator) Up(d Descriptor) error {
	keyID, symbol := resolve(d)
	return t.driver.KeyUp(keyID, symbol)
}

func (t *Translator) pressCharacter(name string) error {
	if r, ok := single(name); ok {
		return t.driver.KeyDown(input.KeysymForRune(r), name)
	}
	return t.driver.KeyDown(0, name)
}

// resolve picks the key id and symbol passed to the driver. Dead keys with
// a printable name are sent as that character, so that platforms without
// dead key symbols can still release them.
func resolve(d Descriptor) (int, string) {
	if IsDead(d.Symbol) {
		if r, ok := single(d.Name); ok {
			return input.KeysymForRune(r), d.Name
		}
	}
	if d.Symbol == "" {
		return d.KeyID, d.Name
	}
	return d.KeyID, d.Symbol
}
