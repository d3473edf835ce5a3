package dispatch

import (
	"sync/atomic"

	"vtouchpad/internal/input"
	"vtouchpad/internal/keyboard"
	"vtouchpad/internal/mouse"
)

var nextSessionID uint64

// Session holds the translator state of one client connection. Commands of
// a session must be dispatched sequentially.
type Session struct {
	ID         uint64
	RemoteAddr string

	Keyboard *keyboard.Translator
	Mouse    *mouse.Translator
}

// NewSession returns a session with fresh translators bound to driver.
func NewSession(driver input.Driver, scrollThreshold float64, remoteAddr string) *Session {
	return &Session{
		ID:         atomic.AddUint64(&nextSessionID, 1),
		RemoteAddr: remoteAddr,
		Keyboard:   keyboard.New(driver),
		Mouse:      mouse.New(driver, scrollThreshold),
	}
}
