// Package dispatch routes decoded client commands to the translators of a
// session.
//
// Command names have the form "<domain>.<method>", for example "key.down"
// or "mouse.scroll". The data object of a command must name exactly the
// parameters of its handler; optional parameters take their default when
// absent.
package dispatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/getlantern/golog"

	"vtouchpad/internal/input"
	"vtouchpad/internal/keyboard"
	"vtouchpad/internal/protocol"
)

var log = golog.LoggerFor("vtouchpad.dispatch")

type kind int

const (
	kindInt kind = iota
	kindFloat
	kindString
	// kindNullableString accepts null as the empty string.
	kindNullableString
)

type param struct {
	name     string
	kind     kind
	optional bool
	def      interface{}
}

type args map[string]interface{}

func (a args) intArg(name string) int { return a[name].(int) }

func (a args) floatArg(name string) float64 { return a[name].(float64) }

func (a args) stringArg(name string) string { return a[name].(string) }

type handler struct {
	params []param
	call   func(s *Session, a args) error
}

// Dispatcher maps command names to handlers. It holds no session state and
// may be shared by all connections.
type Dispatcher struct {
	domains map[string]map[string]handler
}

// New returns a dispatcher with the key and mouse commands registered.
func New() *Dispatcher {
	d := &Dispatcher{domains: make(map[string]map[string]handler)}

	keyParams := []param{
		{name: "name", kind: kindNullableString},
		{name: "keysym", kind: kindInt},
		{name: "symbol", kind: kindString},
	}
	descriptor := func(a args) keyboard.Descriptor {
		return keyboard.Descriptor{Name: a.stringArg("name"), KeyID: a.intArg("keysym"), Symbol: a.stringArg("symbol")}
	}
	d.register("key.down", keyParams, func(s *Session, a args) error {
		return s.Keyboard.Down(descriptor(a))
	})
	d.register("key.up", keyParams, func(s *Session, a args) error {
		return s.Keyboard.Up(descriptor(a))
	})

	buttonParams := []param{{name: "button", kind: kindInt, optional: true, def: input.ButtonLeft}}
	d.register("mouse.down", buttonParams, func(s *Session, a args) error {
		return s.Mouse.Down(a.intArg("button"))
	})
	d.register("mouse.up", buttonParams, func(s *Session, a args) error {
		return s.Mouse.Up(a.intArg("button"))
	})

	deltaParams := []param{
		{name: "dx", kind: kindFloat, optional: true, def: 0.0},
		{name: "dy", kind: kindFloat, optional: true, def: 0.0},
	}
	d.register("mouse.move", deltaParams, func(s *Session, a args) error {
		return s.Mouse.Move(a.floatArg("dx"), a.floatArg("dy"))
	})
	d.register("mouse.scroll", deltaParams, func(s *Session, a args) error {
		return s.Mouse.Scroll(a.floatArg("dx"), a.floatArg("dy"))
	})

	return d
}

func (d *Dispatcher) register(name string, params []param, call func(*Session, args) error) {
	domain, method := split(name)
	if d.domains[domain] == nil {
		d.domains[domain] = make(map[string]handler)
	}
	d.domains[domain][method] = handler{params: params, call: call}
}

// Commands returns the registered command names in sorted order.
func (d *Dispatcher) Commands() []string {
	var names []string
	for domain, methods := range d.domains {
		for method := range methods {
			names = append(names, domain+"."+method)
		}
	}
	sort.Strings(names)
	return names
}

// Dispatch executes cmd on s. The returned error, if any, is an *Error:
// ReasonInvalidCommand when nothing was executed, ReasonInternalError when
// the handler failed or panicked.
func (d *Dispatcher) Dispatch(cmd protocol.Command, s *Session) (err error) {
	h, ok := d.lookup(cmd.Name)
	if !ok {
		return &Error{
			Reason: protocol.ReasonInvalidCommand,
			Err:    &UnknownCommandError{Name: cmd.Name},
			Stack:  protocol.Capture(0),
		}
	}

	a, err := h.decode(cmd)
	if err != nil {
		return &Error{Reason: protocol.ReasonInvalidCommand, Err: err, Stack: protocol.Capture(0)}
	}

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Session %d: panic while dispatching %s: %v", s.ID, cmd.Name, r)
			err = &Error{
				Reason: protocol.ReasonInternalError,
				Err:    &PanicError{Value: r},
				Stack:  protocol.Capture(0),
			}
		}
	}()

	log.Tracef("Session %d: %s %v", s.ID, cmd.Name, map[string]interface{}(a))
	if err := h.call(s, a); err != nil {
		log.Errorf("Session %d: failed to dispatch %s: %v", s.ID, cmd.Name, err)
		return &Error{
			Reason: protocol.ReasonInternalError,
			Err:    fmt.Errorf("%s: %w", cmd.Name, err),
			Stack:  protocol.Capture(0),
		}
	}
	return nil
}

func (d *Dispatcher) lookup(name string) (handler, bool) {
	domain, method := split(name)
	h, ok := d.domains[domain][method]
	return h, ok
}

func split(name string) (domain, method string) {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return name, ""
}

func (h handler) decode(cmd protocol.Command) (args, error) {
	known := make(map[string]bool, len(h.params))
	a := make(args, len(h.params))

	for _, p := range h.params {
		known[p.name] = true

		raw, ok := cmd.Data[p.name]
		if !ok {
			if !p.optional {
				return nil, &ArgumentError{Command: cmd.Name, Argument: p.name, Problem: "is missing"}
			}
			a[p.name] = p.def
			continue
		}

		v, err := p.decode(raw)
		if err != nil {
			return nil, &ArgumentError{Command: cmd.Name, Argument: p.name, Problem: err.Error()}
		}
		a[p.name] = v
	}

	var extra []string
	for name := range cmd.Data {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return nil, &ArgumentError{Command: cmd.Name, Argument: extra[0], Problem: "is unexpected"}
	}
	return a, nil
}

var null = []byte("null")

// maxFloat bounds pointer and scroll deltas.
const maxFloat = math.MaxInt32

func (p param) decode(raw json.RawMessage) (interface{}, error) {
	isNull := bytes.Equal(bytes.TrimSpace(raw), null)

	switch p.kind {
	case kindNullableString:
		if isNull {
			return "", nil
		}
		fallthrough
	case kindString:
		var s string
		if isNull || json.Unmarshal(raw, &s) != nil {
			return nil, errors.New("must be a string")
		}
		return s, nil

	case kindFloat:
		var f float64
		if isNull || json.Unmarshal(raw, &f) != nil {
			return nil, errors.New("must be a number")
		}
		if math.IsNaN(f) || math.Abs(f) > maxFloat {
			return nil, errors.New("is out of range")
		}
		return f, nil

	case kindInt:
		var f float64
		if isNull || json.Unmarshal(raw, &f) != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
			return nil, errors.New("must be an integer")
		}
		return int(f), nil
	}
	return nil, errors.New("has an unsupported type")
}
