package dispatch

import (
	"fmt"

	"vtouchpad/internal/protocol"
)

// Error is returned by Dispatch. It carries the reason reported to the
// client and the call stack at the point of failure.
type Error struct {
	Reason protocol.Reason
	Err    error
	Stack  []protocol.Frame
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Report converts the error into the message sent to the client.
func (e *Error) Report() *protocol.ErrorReport {
	return protocol.NewErrorReport(e.Reason, e.Err, e.Stack)
}

// UnknownCommandError is returned for command names without a handler.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q", e.Name)
}

// ArgumentError is returned when the data of a command does not match the
// parameters of its handler.
type ArgumentError struct {
	Command  string
	Argument string
	Problem  string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: argument %q %s", e.Command, e.Argument, e.Problem)
}

// PanicError wraps a value recovered from a handler.
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the recovered value if it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
