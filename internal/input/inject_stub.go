//go:build !linux && !freebsd && !netbsd && !openbsd && !windows && !(darwin && cgo)

package input

import (
	"fmt"
	"runtime"
)

// Stub implementation for platforms without a native driver

func platformCandidates() []Candidate {
	return []Candidate{{
		Name: runtime.GOOS,
		Open: func() (interface{}, error) {
			return nil, fmt.Errorf("input injection not supported on %s: %w", runtime.GOOS, ErrUnavailable)
		},
	}}
}
