// Package logging selects where the per-package loggers write.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/getlantern/golog"
)

// Levels accepted by Configure.
const (
	LevelError = "error"
	LevelDebug = "debug"
)

// Configure routes log output for level to the standard streams. Errors are
// always written; debug output only at LevelDebug.
func Configure(level string) error {
	return ConfigureWriters(level, os.Stderr, os.Stderr)
}

// ConfigureWriters is Configure with explicit destinations.
func ConfigureWriters(level string, errorOut, debugOut io.Writer) error {
	switch strings.ToLower(level) {
	case LevelDebug:
		golog.SetOutputs(errorOut, debugOut)
	case LevelError, "":
		golog.SetOutputs(errorOut, io.Discard)
	default:
		return fmt.Errorf("unknown log level %q", level)
	}
	return nil
}
