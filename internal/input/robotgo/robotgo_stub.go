//go:build !cgo

package robotgo

import (
	"fmt"

	"vtouchpad/internal/input"
)

// Candidate returns the fallback candidate, which needs cgo.
func Candidate() input.Candidate {
	return input.Candidate{
		Name: "robotgo",
		Open: func() (interface{}, error) {
			return nil, fmt.Errorf("robotgo: built without cgo: %w", input.ErrUnavailable)
		},
	}
}
