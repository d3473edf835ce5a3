package input_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vtouchpad/internal/input"
	"vtouchpad/internal/input/inputtest"
)

// noWheel lacks MouseWheel.
type noWheel struct{}

func (noWheel) KeyDown(int, string) error { return nil }
func (noWheel) KeyUp(int, string) error   { return nil }
func (noWheel) MouseButtonDown(int) error { return nil }
func (noWheel) MouseButtonUp(int) error   { return nil }
func (noWheel) MouseMove(int, int) error  { return nil }

// shortMove takes one argument for MouseMove.
type shortMove struct{ noWheel }

func (shortMove) MouseMove(int) error  { return nil }
func (shortMove) MouseWheel(int) error { return nil }

// wrongTypes has the right arity but not the Driver signatures.
type wrongTypes struct{ noWheel }

func (wrongTypes) MouseWheel(string) error { return nil }

type closer struct {
	inputtest.Recorder
	closed bool
}

func (c *closer) Close() error {
	c.closed = true
	return nil
}

func candidate(name string, value interface{}) input.Candidate {
	return input.Candidate{Name: name, Open: func() (interface{}, error) { return value, nil }}
}

func unavailable(name string) input.Candidate {
	return input.Candidate{Name: name, Open: func() (interface{}, error) {
		return nil, fmt.Errorf("%s: no display: %w", name, input.ErrUnavailable)
	}}
}

func TestResolveCompleteDriver(t *testing.T) {
	rec := &inputtest.Recorder{}
	resolved, err := input.Resolve([]input.Candidate{candidate("fake", rec)})
	require.NoError(t, err)
	assert.Equal(t, "fake", resolved.Name)
	assert.Same(t, rec, resolved.Driver)
}

func TestResolveMissingOperationIsFatal(t *testing.T) {
	rec := &inputtest.Recorder{}
	_, err := input.Resolve([]input.Candidate{
		candidate("partial", noWheel{}),
		candidate("complete", rec),
	})
	require.Error(t, err)

	var contractErr *input.ContractError
	require.True(t, errors.As(err, &contractErr))
	assert.Equal(t, "partial", contractErr.Driver)
	assert.Equal(t, "MouseWheel", contractErr.Operation)
}

func TestResolveArityMismatchIsFatal(t *testing.T) {
	_, err := input.Resolve([]input.Candidate{candidate("short", shortMove{})})

	var contractErr *input.ContractError
	require.True(t, errors.As(err, &contractErr))
	assert.Equal(t, "MouseMove", contractErr.Operation)
	assert.Contains(t, contractErr.Error(), "takes 1 arguments, want 2")
}

func TestResolveSignatureMismatchIsFatal(t *testing.T) {
	_, err := input.Resolve([]input.Candidate{candidate("types", wrongTypes{})})

	var contractErr *input.ContractError
	require.True(t, errors.As(err, &contractErr))
}

func TestResolveSkipsUnavailable(t *testing.T) {
	rec := &inputtest.Recorder{}
	resolved, err := input.Resolve([]input.Candidate{
		unavailable("xorg"),
		candidate("fallback", rec),
	})
	require.NoError(t, err)
	assert.Equal(t, "fallback", resolved.Name)
}

func TestResolveOpenFailureIsFatal(t *testing.T) {
	rec := &inputtest.Recorder{}
	_, err := input.Resolve([]input.Candidate{
		{Name: "broken", Open: func() (interface{}, error) { return nil, errors.New("boom") }},
		candidate("fallback", rec),
	})
	require.Error(t, err)
	assert.False(t, errors.Is(err, input.ErrUnavailable))
	assert.Contains(t, err.Error(), "broken")
}

func TestResolveNothingAvailable(t *testing.T) {
	_, err := input.Resolve([]input.Candidate{unavailable("a"), unavailable("b")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, input.ErrUnavailable))
	assert.Contains(t, err.Error(), "a, b")
}

func TestResolvedClose(t *testing.T) {
	c := &closer{}
	resolved, err := input.Resolve([]input.Candidate{candidate("closer", c)})
	require.NoError(t, err)
	require.NoError(t, resolved.Close())
	assert.True(t, c.closed)

	plain, err := input.Resolve([]input.Candidate{candidate("plain", &inputtest.Recorder{})})
	require.NoError(t, err)
	assert.NoError(t, plain.Close())
}

func TestVerifyNil(t *testing.T) {
	_, err := input.Verify("nil", nil)
	var contractErr *input.ContractError
	assert.True(t, errors.As(err, &contractErr))
}

func TestSelect(t *testing.T) {
	candidates := []input.Candidate{unavailable("xorg"), unavailable("robotgo")}

	same, err := input.Select(candidates, nil)
	require.NoError(t, err)
	assert.Len(t, same, 2)

	only, err := input.Select(candidates, []string{"robotgo"})
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "robotgo", only[0].Name)

	_, err = input.Select(candidates, []string{"wayland"})
	assert.Error(t, err)
}

func TestKeysymForRune(t *testing.T) {
	tests := []struct {
		r      rune
		keysym int
	}{
		{'a', 0x61},
		{'~', 0x7e},
		{'ñ', 0xf1},
		{'€', 0x010020ac},
		{'ő', 0x01000151},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.keysym, input.KeysymForRune(tt.r), "rune %q", tt.r)
		r, ok := input.RuneForKeysym(tt.keysym)
		assert.True(t, ok)
		assert.Equal(t, tt.r, r)
	}

	_, ok := input.RuneForKeysym(0xff0d) // Return
	assert.False(t, ok)
}

func TestSingleRune(t *testing.T) {
	r, ok := input.SingleRune("ñ")
	assert.True(t, ok)
	assert.Equal(t, 'ñ', r)

	_, ok = input.SingleRune("")
	assert.False(t, ok)
	_, ok = input.SingleRune("Return")
	assert.False(t, ok)
}
