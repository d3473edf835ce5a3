// Package protocol defines the messages exchanged on the controller socket.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// Reason classifies an error report.
type Reason string

const (
	// ReasonInvalidData is sent when a message is not valid JSON.
	ReasonInvalidData Reason = "invalid_data"

	// ReasonInvalidCommand is sent for unknown commands and bad arguments.
	ReasonInvalidCommand Reason = "invalid_command"

	// ReasonInternalError is sent when executing a valid command failed.
	ReasonInternalError Reason = "internal_error"
)

// Command is one client request, such as
//
//	{"command": "mouse.scroll", "data": {"dx": 0, "dy": 4.5}}
type Command struct {
	Name string                     `json:"command"`
	Data map[string]json.RawMessage `json:"data,omitempty"`
}

// DecodeError is returned by DecodeCommand. Reason tells whether the message
// could not be parsed at all or did not have the shape of a command.
type DecodeError struct {
	Reason Reason
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode command: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DecodeCommand parses a message. A missing data object is an empty one.
func DecodeCommand(msg []byte) (Command, error) {
	var raw interface{}
	if err := json.Unmarshal(msg, &raw); err != nil {
		return Command{}, &DecodeError{Reason: ReasonInvalidData, Err: err}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(msg, &fields); err != nil || fields == nil {
		return Command{}, &DecodeError{
			Reason: ReasonInvalidCommand,
			Err:    errors.New("message is not an object"),
		}
	}

	var cmd Command
	name, ok := fields["command"]
	if !ok {
		return Command{}, &DecodeError{Reason: ReasonInvalidCommand, Err: errors.New("missing command")}
	}
	if err := json.Unmarshal(name, &cmd.Name); err != nil {
		return Command{}, &DecodeError{Reason: ReasonInvalidCommand, Err: errors.New("command is not a string")}
	}

	if data, ok := fields["data"]; ok && !bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		if err := json.Unmarshal(data, &cmd.Data); err != nil {
			return Command{}, &DecodeError{Reason: ReasonInvalidCommand, Err: errors.New("data is not an object")}
		}
	}
	return cmd, nil
}

// ErrorReport is sent to the client when a message could not be handled.
// Exception, Data and Traceback are null when unknown.
type ErrorReport struct {
	Reason    Reason  `json:"reason"`
	Exception *string `json:"exception"`
	Data      *string `json:"data"`
	Traceback []Frame `json:"tb"`
}

// NewErrorReport describes err. frames is the call stack at the point of
// failure and may be nil.
func NewErrorReport(reason Reason, err error, frames []Frame) *ErrorReport {
	r := &ErrorReport{Reason: reason, Traceback: frames}
	if err != nil {
		name, data := ExceptionName(err), err.Error()
		r.Exception, r.Data = &name, &data
	}
	return r
}

// Encode returns the JSON form of the report.
func (r *ErrorReport) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// ExceptionName returns the type name of the innermost error in the chain
// of err, without package qualifier or pointer.
func ExceptionName(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}

	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}
