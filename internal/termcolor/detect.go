package termcolor

import (
	"os"
	"strconv"

	"golang.org/x/term"
)

// DefaultWidth is used when neither COLUMNS nor the terminal report a width.
const DefaultWidth = 90

// IsTerminal reports whether the given file descriptor refers to a terminal.
func IsTerminal(fd uintptr) bool {
	return term.IsTerminal(int(fd)) //nolint:gosec // G115: fd comes from os.File.Fd(); safe on all supported platforms
}

// ShouldColorize reports whether color output should be enabled for f.
// It returns true when f is a terminal and the NO_COLOR environment variable
// is not set. See https://no-color.org/.
func ShouldColorize(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return IsTerminal(f.Fd())
}

// Width returns the column count used for help layout. COLUMNS wins over the
// terminal size so that users and tests can pin it.
func Width(f *os.File) int {
	if raw := os.Getenv("COLUMNS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	if f != nil && IsTerminal(f.Fd()) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 { //nolint:gosec // G115: see IsTerminal
			return w
		}
	}
	return DefaultWidth
}
