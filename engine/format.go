package engine

import (
	"strings"

	"golang.org/x/text/cases"
)

// Format is an output rendering mode understood by the engine.
type Format string

const (
	// FormatText renders plain text output. It is the default.
	FormatText Format = "text"

	// FormatLaTeX renders TeX markup.
	FormatLaTeX Format = "latex"

	// FormatMathematica renders engine input syntax.
	FormatMathematica Format = "mathematica"
)

// ParseFormat normalizes s into a Format.
// Matching ignores case and surrounding space; empty or unrecognized values
// yield FormatText. A Caser is stateful, so each call builds its own.
func ParseFormat(s string) Format {
	f := Format(cases.Fold().String(strings.TrimSpace(s)))
	if !f.Valid() {
		return FormatText
	}
	return f
}

// Valid reports whether f is one of the known formats.
func (f Format) Valid() bool {
	switch f {
	case FormatText, FormatLaTeX, FormatMathematica:
		return true
	}
	return false
}

// Flag returns the value passed to the engine's -format flag.
// Unknown formats map to the text flag.
func (f Format) Flag() string {
	if !f.Valid() {
		return string(FormatText)
	}
	return string(f)
}

// String returns the format name.
func (f Format) String() string {
	return string(f)
}

// Formats returns the known formats, default first.
func Formats() []Format {
	return []Format{FormatText, FormatLaTeX, FormatMathematica}
}
