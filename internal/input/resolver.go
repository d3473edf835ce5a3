package input

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/getlantern/golog"
)

var log = golog.LoggerFor("vtouchpad.input")

// Operation is one entry of the driver contract.
type Operation struct {
	Name  string
	Arity int
}

// Contract lists the operations a driver must export, with their parameter
// counts.
var Contract = []Operation{
	{"KeyDown", 2},
	{"KeyUp", 2},
	{"MouseButtonDown", 1},
	{"MouseButtonUp", 1},
	{"MouseMove", 2},
	{"MouseWheel", 1},
}

// Candidate is a driver that may be bound at startup.
type Candidate struct {
	Name string

	// Open returns the driver value. It returns an error wrapping
	// ErrUnavailable if the driver cannot run here.
	Open func() (interface{}, error)
}

// ContractError means a driver does not implement the contract.
type ContractError struct {
	Driver    string
	Operation string
	Reason    string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("error in driver %s: operation <%s> %s", e.Driver, e.Operation, e.Reason)
}

// Resolved is the driver bound for the lifetime of the process.
type Resolved struct {
	Name string
	Driver
}

// Close releases the driver's OS resources, if it holds any.
func (r *Resolved) Close() error {
	if c, ok := r.Driver.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// Resolve opens the first available candidate and verifies it against the
// contract. Candidates are tried in order; unavailable ones are skipped.
func Resolve(candidates []Candidate) (*Resolved, error) {
	var skipped []string
	for _, c := range candidates {
		value, err := c.Open()
		if errors.Is(err, ErrUnavailable) {
			log.Debugf("Not loading driver %s: %v", c.Name, err)
			skipped = append(skipped, c.Name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("open driver %s: %w", c.Name, err)
		}

		drv, err := Verify(c.Name, value)
		if err != nil {
			if cl, ok := value.(interface{ Close() error }); ok {
				cl.Close()
			}
			return nil, err
		}
		log.Debugf("Bound driver %s", c.Name)
		return &Resolved{Name: c.Name, Driver: drv}, nil
	}
	return nil, fmt.Errorf("no platform driver available (tried: %s): %w",
		strings.Join(skipped, ", "), ErrUnavailable)
}

// Verify checks that value exports every contract operation with the
// expected parameter count and returns it as a Driver.
func Verify(name string, value interface{}) (Driver, error) {
	if value == nil {
		return nil, &ContractError{Driver: name, Operation: "*", Reason: "is missing (nil driver)"}
	}

	t := reflect.TypeOf(value)
	exported := make(map[string]reflect.Method, t.NumMethod())
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		exported[m.Name] = m
	}

	for _, op := range Contract {
		m, ok := exported[op.Name]
		if !ok {
			return nil, &ContractError{Driver: name, Operation: op.Name, Reason: "is missing"}
		}
		// The method type carries the receiver as its first parameter.
		if got := m.Type.NumIn() - 1; got != op.Arity {
			return nil, &ContractError{
				Driver:    name,
				Operation: op.Name,
				Reason:    fmt.Sprintf("takes %d arguments, want %d", got, op.Arity),
			}
		}
	}

	drv, ok := value.(Driver)
	if !ok {
		return nil, &ContractError{Driver: name, Operation: "*", Reason: "has an invalid method signature"}
	}
	return drv, nil
}

// Select reorders candidates to follow names. An empty list keeps the
// default order; unknown names are reported.
func Select(candidates []Candidate, names []string) ([]Candidate, error) {
	if len(names) == 0 {
		return candidates, nil
	}
	byName := make(map[string]Candidate, len(candidates))
	for _, c := range candidates {
		byName[c.Name] = c
	}
	selected := make([]Candidate, 0, len(names))
	for _, n := range names {
		c, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown driver %q", n)
		}
		selected = append(selected, c)
	}
	return selected, nil
}
