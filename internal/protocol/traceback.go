package protocol

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-stack/stack"
)

// Frame is one traceback entry. It is encoded as the array
// [file, line, function, source].
type Frame struct {
	File     string
	Line     int
	Function string
	Source   string
}

func (f Frame) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{f.File, f.Line, f.Function, f.Source})
}

func (f *Frame) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 4 {
		return fmt.Errorf("traceback frame has %d fields, want 4", len(raw))
	}
	for i, dst := range []interface{}{&f.File, &f.Line, &f.Function, &f.Source} {
		if err := json.Unmarshal(raw[i], dst); err != nil {
			return err
		}
	}
	return nil
}

// Frames converts a captured call stack. Source lines are read from disk
// when the file is available.
func Frames(cs stack.CallStack) []Frame {
	frames := make([]Frame, 0, len(cs))
	for _, c := range cs {
		fr := c.Frame()
		frames = append(frames, Frame{
			File:     fr.File,
			Line:     fr.Line,
			Function: fr.Function,
			Source:   sourceLine(fr.File, fr.Line),
		})
	}
	return frames
}

// Capture returns the frames of the caller's stack, skipping skip frames
// above the caller and the runtime's own frames.
func Capture(skip int) []Frame {
	cs := stack.Trace().TrimRuntime()
	if skip+1 < len(cs) {
		cs = cs[skip+1:]
	} else {
		cs = nil
	}
	return Frames(cs)
}

func sourceLine(file string, line int) string {
	if file == "" || line <= 0 {
		return ""
	}
	f, err := os.Open(file)
	if err != nil {
		return ""
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan(); n++ {
		if n == line {
			return strings.TrimSpace(sc.Text())
		}
	}
	return ""
}
