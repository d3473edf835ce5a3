package dispatch

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vtouchpad/internal/input"
	"vtouchpad/internal/input/inputtest"
	"vtouchpad/internal/protocol"
)

func command(t *testing.T, msg string) protocol.Command {
	t.Helper()
	cmd, err := protocol.DecodeCommand([]byte(msg))
	require.NoError(t, err)
	return cmd
}

func reasonOf(t *testing.T, err error) protocol.Reason {
	t.Helper()
	var dispatchErr *Error
	require.True(t, errors.As(err, &dispatchErr), "%v is not a dispatch error", err)
	return dispatchErr.Reason
}

func TestCommands(t *testing.T) {
	assert.Equal(t, []string{
		"key.down", "key.up",
		"mouse.down", "mouse.move", "mouse.scroll", "mouse.up",
	}, New().Commands())
}

func TestKeyCommands(t *testing.T) {
	rec := &inputtest.Recorder{}
	s := NewSession(rec, 10, "")
	d := New()

	require.NoError(t, d.Dispatch(command(t, `{"command": "key.down", "data": {"name": "a", "keysym": 97, "symbol": "a"}}`), s))
	require.NoError(t, d.Dispatch(command(t, `{"command": "key.up", "data": {"name": null, "keysym": 65293, "symbol": "Return"}}`), s))
	assert.Equal(t, []inputtest.Event{
		inputtest.KeyDown(97, "a"),
		inputtest.KeyUp(65293, "Return"),
	}, rec.Events())
}

func TestDeadKeyAcrossCommands(t *testing.T) {
	rec := &inputtest.Recorder{}
	s := NewSession(rec, 10, "")
	d := New()

	require.NoError(t, d.Dispatch(command(t, `{"command": "key.down", "data": {"name": "~", "keysym": 65107, "symbol": "dead_tilde"}}`), s))
	assert.Empty(t, rec.Events())
	require.NoError(t, d.Dispatch(command(t, `{"command": "key.down", "data": {"name": "n", "keysym": 110, "symbol": "n"}}`), s))
	assert.Equal(t, []inputtest.Event{inputtest.KeyDown(0xf1, "ñ")}, rec.Events())
}

func TestMouseDefaults(t *testing.T) {
	rec := &inputtest.Recorder{}
	s := NewSession(rec, 10, "")
	d := New()

	require.NoError(t, d.Dispatch(command(t, `{"command": "mouse.down"}`), s))
	require.NoError(t, d.Dispatch(command(t, `{"command": "mouse.up", "data": {"button": 3}}`), s))
	require.NoError(t, d.Dispatch(command(t, `{"command": "mouse.move", "data": {"dx": 4.7}}`), s))
	assert.Equal(t, []inputtest.Event{
		{Op: "MouseButtonDown", Button: input.ButtonLeft},
		{Op: "MouseButtonUp", Button: input.ButtonRight},
		{Op: "MouseMove", DX: 4, DY: 0},
	}, rec.Events())
}

func TestScrollThenButtonResetsAccumulator(t *testing.T) {
	rec := &inputtest.Recorder{}
	s := NewSession(rec, 10, "")
	d := New()

	require.NoError(t, d.Dispatch(command(t, `{"command": "mouse.scroll", "data": {"dx": 0, "dy": 8}}`), s))
	require.NoError(t, d.Dispatch(command(t, `{"command": "mouse.down", "data": {"button": 1}}`), s))
	require.NoError(t, d.Dispatch(command(t, `{"command": "mouse.scroll", "data": {"dy": 8}}`), s))
	assert.Equal(t, []inputtest.Event{{Op: "MouseButtonDown", Button: 1}}, rec.Events())

	require.NoError(t, d.Dispatch(command(t, `{"command": "mouse.scroll", "data": {"dy": 3}}`), s))
	assert.Equal(t, []inputtest.Event{
		{Op: "MouseButtonDown", Button: 1},
		inputtest.Wheel(input.ButtonWheelDown),
	}, rec.Events())
}

func TestInvalidCommands(t *testing.T) {
	tests := []string{
		`{"command": "nope.go"}`,
		`{"command": "key"}`,
		`{"command": "mouse.nope"}`,
		`{"command": ""}`,
		`{"command": "key.down", "data": {"name": "a", "keysym": 97}}`,
		`{"command": "key.down", "data": {"keysym": 97, "symbol": "a"}}`,
		`{"command": "key.down", "data": {"name": "a", "keysym": 97, "symbol": "a", "extra": 1}}`,
		`{"command": "key.down", "data": {"name": "a", "keysym": "97", "symbol": "a"}}`,
		`{"command": "key.down", "data": {"name": 1, "keysym": 97, "symbol": "a"}}`,
		`{"command": "key.down", "data": {"name": "a", "keysym": 97, "symbol": null}}`,
		`{"command": "mouse.down", "data": {"button": 1.5}}`,
		`{"command": "mouse.down", "data": {"button": null}}`,
		`{"command": "mouse.move", "data": {"dx": "1"}}`,
		`{"command": "mouse.scroll", "data": {"dz": 1}}`,
		`{"command": "mouse.scroll", "data": {"dy": 1e300}}`,
		`{"command": "mouse.move", "data": {"dx": -1e12}}`,
	}

	rec := &inputtest.Recorder{}
	s := NewSession(rec, 10, "")
	d := New()
	for _, msg := range tests {
		err := d.Dispatch(command(t, msg), s)
		require.Error(t, err, msg)
		assert.Equal(t, protocol.ReasonInvalidCommand, reasonOf(t, err), msg)
	}
	assert.Empty(t, rec.Events())
}

func TestInvalidCommandErrorTypes(t *testing.T) {
	d := New()
	s := NewSession(&inputtest.Recorder{}, 10, "")

	err := d.Dispatch(command(t, `{"command": "nope.go"}`), s)
	var unknown *UnknownCommandError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "nope.go", unknown.Name)

	err = d.Dispatch(command(t, `{"command": "mouse.move", "data": {"dx": 1, "dq": 2}}`), s)
	var argErr *ArgumentError
	require.True(t, errors.As(err, &argErr))
	assert.Equal(t, "dq", argErr.Argument)
	assert.Equal(t, "is unexpected", argErr.Problem)

	err = d.Dispatch(command(t, `{"command": "mouse.scroll", "data": {"dy": 1e300}}`), s)
	require.True(t, errors.As(err, &argErr))
	assert.Equal(t, "dy", argErr.Argument)
	assert.Equal(t, "is out of range", argErr.Problem)
}

func TestInternalErrorKeepsSession(t *testing.T) {
	rec := &inputtest.Recorder{Fail: func(e inputtest.Event) error {
		if e.Symbol == "BadKey" {
			return &input.SymbolError{KeyID: e.KeyID, Symbol: e.Symbol}
		}
		return nil
	}}
	s := NewSession(rec, 10, "")
	d := New()

	err := d.Dispatch(command(t, `{"command": "key.down", "data": {"name": null, "keysym": 1, "symbol": "BadKey"}}`), s)
	require.Error(t, err)
	assert.Equal(t, protocol.ReasonInternalError, reasonOf(t, err))

	var symErr *input.SymbolError
	assert.True(t, errors.As(err, &symErr))

	var dispatchErr *Error
	require.True(t, errors.As(err, &dispatchErr))
	report := dispatchErr.Report()
	require.NotNil(t, report.Exception)
	assert.Equal(t, "SymbolError", *report.Exception)
	require.NotNil(t, report.Data)
	assert.Contains(t, *report.Data, "BadKey")
	assert.NotEmpty(t, report.Traceback)

	require.NoError(t, d.Dispatch(command(t, `{"command": "mouse.down", "data": {"button": 1}}`), s))
	assert.Equal(t, []inputtest.Event{{Op: "MouseButtonDown", Button: 1}}, rec.Events())
}

func TestPanicIsInternalError(t *testing.T) {
	rec := &inputtest.Recorder{Fail: func(e inputtest.Event) error {
		if e.Op == "MouseMove" {
			panic("driver exploded")
		}
		return nil
	}}
	s := NewSession(rec, 10, "")
	d := New()

	err := d.Dispatch(command(t, `{"command": "mouse.move", "data": {"dx": 1, "dy": 1}}`), s)
	require.Error(t, err)
	assert.Equal(t, protocol.ReasonInternalError, reasonOf(t, err))

	var panicErr *PanicError
	require.True(t, errors.As(err, &panicErr))
	assert.Equal(t, "driver exploded", panicErr.Value)

	var dispatchErr *Error
	require.True(t, errors.As(err, &dispatchErr))
	b, err := dispatchErr.Report().Encode()
	require.NoError(t, err)

	var report map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &report))
	assert.JSONEq(t, `"PanicError"`, string(report["exception"]))

	var found bool
	for _, f := range dispatchErr.Stack {
		if strings.HasSuffix(f.Function, "TestPanicIsInternalError.func1") {
			found = true
		}
	}
	assert.True(t, found, "traceback should include the panicking function")

	require.NoError(t, d.Dispatch(command(t, `{"command": "mouse.down"}`), s))
}

func TestSessionsAreIsolated(t *testing.T) {
	rec := &inputtest.Recorder{}
	a := NewSession(rec, 10, "10.0.0.2:5000")
	b := NewSession(rec, 10, "10.0.0.3:5000")
	d := New()

	assert.NotEqual(t, a.ID, b.ID)

	require.NoError(t, d.Dispatch(command(t, `{"command": "key.down", "data": {"name": "~", "keysym": 65107, "symbol": "dead_tilde"}}`), a))
	require.NoError(t, d.Dispatch(command(t, `{"command": "mouse.scroll", "data": {"dy": 9}}`), a))
	require.NoError(t, d.Dispatch(command(t, `{"command": "key.down", "data": {"name": "n", "keysym": 110, "symbol": "n"}}`), b))
	require.NoError(t, d.Dispatch(command(t, `{"command": "mouse.scroll", "data": {"dy": 9}}`), b))

	assert.Equal(t, []inputtest.Event{inputtest.KeyDown(110, "n")}, rec.Events())
	_, _, pending := a.Keyboard.Pending()
	assert.True(t, pending)
	_, ay := a.Mouse.Accumulated()
	assert.Equal(t, 9.0, ay)
}
