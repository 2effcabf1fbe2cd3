package termcolor

import (
	"io"
	"os"
)

// Writer is an io.Writer that knows whether to color what is written to it.
// A nil *Writer paints nothing.
type Writer struct {
	io.Writer
	enabled bool
}

// NewWriter resolves mode against f. In ColorAuto mode color is on only when
// ShouldColorize(f) holds.
func NewWriter(f *os.File, mode ColorMode) *Writer {
	enabled := mode == ColorAlways
	if mode == ColorAuto {
		enabled = ShouldColorize(f)
	}
	return &Writer{Writer: f, enabled: enabled}
}

// Plain returns a Writer over w that never emits color. Used for buffers,
// network replies and tests.
func Plain(w io.Writer) *Writer {
	return &Writer{Writer: w}
}

// Enabled reports whether color output is active.
func (w *Writer) Enabled() bool {
	return w != nil && w.enabled
}

// Paint wraps s in style, or returns it unchanged when color is off.
func (w *Writer) Paint(style Style, s string) string {
	if !w.Enabled() || s == "" {
		return s
	}
	return string(style) + s + string(reset)
}

// Shorthands for the styles help output uses.
func (w *Writer) Red(s string) string      { return w.Paint(Red, s) }
func (w *Writer) Green(s string) string    { return w.Paint(Green, s) }
func (w *Writer) Yellow(s string) string   { return w.Paint(Yellow, s) }
func (w *Writer) Blue(s string) string     { return w.Paint(Blue, s) }
func (w *Writer) BoldCyan(s string) string { return w.Paint(BoldCyan, s) }
