package keyboard

import (
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/unicode/runenames"
)

// deadSymbols maps X11 dead key symbols to their spacing character and
// combining code point, for clients that send no usable display name.
var deadSymbols = map[string]struct {
	spacing   rune
	combining rune
}{
	"dead_grave":       {'`', '\u0300'},
	"dead_acute":       {'\u00b4', '\u0301'},
	"dead_circumflex":  {'^', '\u0302'},
	"dead_tilde":       {'~', '\u0303'},
	"dead_macron":      {'\u00af', '\u0304'},
	"dead_breve":       {'\u02d8', '\u0306'},
	"dead_abovedot":    {'\u02d9', '\u0307'},
	"dead_diaeresis":   {'\u00a8', '\u0308'},
	"dead_abovering":   {'\u02da', '\u030a'},
	"dead_doubleacute": {'\u02dd', '\u030b'},
	"dead_caron":       {'\u02c7', '\u030c'},
	"dead_cedilla":     {'\u00b8', '\u0327'},
	"dead_ogonek":      {'\u02db', '\u0328'},
	"dead_iota":        {'\u037a', '\u0345'},
	"dead_belowdot":    {'.', '\u0323'},
	"dead_hook":        {'\u02c0', '\u0309'},
	"dead_stroke":      {'/', '\u0338'},
}

// Combining marks live in these blocks.
var combiningBlocks = [][2]rune{
	{0x0300, 0x036F},
	{0x1AB0, 0x1AFF},
	{0x1DC0, 0x1DFF},
	{0x20D0, 0x20FF},
	{0xFE20, 0xFE2F},
}

var (
	combiningOnce   sync.Once
	combiningByName map[string]rune
)

// combiningIndex maps "COMBINING <NAME>" to the mark.
func combiningIndex() map[string]rune {
	combiningOnce.Do(func() {
		combiningByName = make(map[string]rune)
		for _, block := range combiningBlocks {
			for r := block[0]; r <= block[1]; r++ {
				if name := runenames.Name(r); strings.HasPrefix(name, "COMBINING ") {
					combiningByName[name] = r
				}
			}
		}
	})
	return combiningByName
}

// IsDead reports whether symbol names a dead key.
func IsDead(symbol string) bool {
	return strings.HasPrefix(symbol, "dead_")
}

// Combining returns the combining mark for a dead key. The spacing character
// in name is looked up by Unicode name first, then the dead symbol itself.
func Combining(name, symbol string) (rune, bool) {
	if r, ok := single(name); ok {
		if c, ok := combiningIndex()["COMBINING "+runenames.Name(r)]; ok {
			return c, true
		}
	}
	if d, ok := deadSymbols[symbol]; ok {
		return d.combining, true
	}
	return 0, false
}

// spacing returns the character that stands for a dead key on its own.
func spacing(name, symbol string) string {
	if _, ok := single(name); ok {
		return name
	}
	if d, ok := deadSymbols[symbol]; ok {
		return string(d.spacing)
	}
	return name
}

// Compose returns the canonical composition of base and mark if it is a
// single character.
func Compose(base, mark rune) (rune, bool) {
	composed := norm.NFC.String(string(base) + string(mark))
	if utf8.RuneCountInString(composed) != 1 {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(composed)
	return r, true
}

func single(s string) (rune, bool) {
	if s == "" || utf8.RuneCountInString(s) != 1 {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, true
}
