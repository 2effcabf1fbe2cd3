// Package progress provides terminal progress indicators.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rybkr/argroute/internal/termcolor"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const frameInterval = 80 * time.Millisecond

// Spinner displays an animated braille spinner while a long-running
// operation is in progress. It only draws when its writer is a terminal, so
// piped output, server replies and tests stay clean.
type Spinner struct {
	w      io.Writer
	msg    string
	active bool
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// New creates a Spinner that draws msg on w.
func New(w io.Writer, msg string) *Spinner {
	f, ok := w.(*os.File)
	return &Spinner{
		w:      w,
		msg:    msg,
		active: ok && termcolor.IsTerminal(f.Fd()),
		done:   make(chan struct{}),
	}
}

// Active reports whether the spinner draws anything.
func (s *Spinner) Active() bool { return s.active }

// Start begins the animation in a background goroutine.
func (s *Spinner) Start() {
	if !s.active {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(frameInterval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-s.done:
				// Clear the spinner line.
				_, _ = fmt.Fprint(s.w, "\r\033[K")
				return
			case <-ticker.C:
				_, _ = fmt.Fprintf(s.w, "\r%s %s", frames[i%len(frames)], s.msg)
			}
		}
	}()
}

// Stop halts the animation and clears the line. It may be called more than
// once, and without Start.
func (s *Spinner) Stop() {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
}
