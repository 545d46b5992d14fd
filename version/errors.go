package version

import (
	"fmt"
	"strings"

	"golang.org/x/text/width"
)

// ParseError reports a failure to parse a version, version pattern, or
// specifier string. It carries enough information to render a caret
// underline beneath the offending segment of the original input.
type ParseError struct {
	Input  string
	Offset int // byte offset into Input where the problem starts
	Length int // byte length of the offending segment
	Reason string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", e.Reason)
	fmt.Fprintf(&b, "%s\n", e.Input)
	b.WriteString(strings.Repeat(" ", displayWidth(e.Input[:e.Offset])))
	b.WriteString(strings.Repeat("^", maxInt(1, displayWidth(e.Input[e.Offset:e.Offset+e.Length]))))
	return b.String()
}

// displayWidth approximates the terminal column width of s, treating East
// Asian Wide and Fullwidth runes as occupying two columns, so that the
// caret underline lines up under multi-byte input.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func newParseError(input string, offset, length int, reason string) *ParseError {
	return &ParseError{Input: input, Offset: offset, Length: length, Reason: reason}
}
