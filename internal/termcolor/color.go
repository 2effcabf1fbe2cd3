// Package termcolor decides whether output gets ANSI colors and applies them.
// Color is off for anything that is not a terminal and whenever NO_COLOR is
// set (https://no-color.org/).
package termcolor

import (
	"fmt"
	"strings"
)

// Style is an ANSI SGR sequence.
type Style string

const (
	reset Style = "\033[0m"

	Red      Style = "\033[31m"
	Green    Style = "\033[32m"
	Yellow   Style = "\033[33m"
	Blue     Style = "\033[34m"
	BoldCyan Style = "\033[1;36m"
)

// ColorMode controls when color output is used. It implements pflag.Value
// so it can back a --color flag directly.
type ColorMode int

const (
	// ColorAuto enables color only when writing to a terminal.
	ColorAuto ColorMode = iota
	// ColorAlways forces color output regardless of terminal detection.
	ColorAlways
	// ColorNever disables color output unconditionally.
	ColorNever
)

var modeNames = [...]string{ColorAuto: "auto", ColorAlways: "always", ColorNever: "never"}

func (m ColorMode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return modeNames[ColorAuto]
	}
	return modeNames[m]
}

// Set parses s into m.
func (m *ColorMode) Set(s string) error {
	mode, err := ParseColorMode(s)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// Type names the value in flag usage.
func (m *ColorMode) Type() string { return "when" }

// ParseColorMode parses "auto", "always" or "never", ignoring case and
// surrounding space.
func ParseColorMode(s string) (ColorMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range modeNames {
		if s == name {
			return ColorMode(i), nil
		}
	}
	return ColorAuto, fmt.Errorf("invalid color mode %q: must be auto, always, or never", s)
}
