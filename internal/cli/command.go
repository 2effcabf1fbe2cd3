package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/rybkr/argroute/internal/termcolor"
)

var (
	// ErrNotImplemented is returned by a command that was registered without
	// any behavior. The dispatcher treats it as a programming error.
	ErrNotImplemented = errors.New("command not implemented")
	// ErrFinalized is returned when a name or flag override is supplied for
	// an already constructed *Command.
	ErrFinalized = errors.New("command is already constructed")
	// ErrInvalidName is returned for empty names and names of more than two words.
	ErrInvalidName = errors.New("invalid command name")
	// ErrDuplicate is returned by a strict App when a name is registered twice.
	ErrDuplicate = errors.New("duplicate command")
)

// RunFunc executes a command for one invocation.
type RunFunc func(inv *Invocation) (Result, error)

// FlagBuilder declares a command's flags on a fresh flag set.
type FlagBuilder func(fs *pflag.FlagSet)

// Handler is a command implemented as a type. A new Handler is created for
// every invocation, so implementations may keep per-call state in fields.
type Handler interface {
	Run(inv *Invocation) (Result, error)
}

// Describer is implemented by handlers that document themselves.
type Describer interface {
	Description() string
}

// FlagDefiner is implemented by handlers that declare flags. Flags are
// usually bound to the handler's own fields.
type FlagDefiner interface {
	DefineFlags(fs *pflag.FlagSet)
}

// Command is a registered command. Once added to an App it is shared by all
// invocations and must not be modified.
type Command struct {
	Name        string
	Description string      // dedented; the first line is the summary
	Usage       string      // overrides the generated usage line
	URL         string      // documentation link shown in help
	Flags       FlagBuilder // optional
	Run         RunFunc

	factory func() Handler
}

// Summary returns the first line of the description.
func (c *Command) Summary() string { return summaryOf(c.Description) }

// Group returns the first word of a two-word command, or "".
func (c *Command) Group() string {
	if i := len(c.Name) - len(lastWord(c.Name)); i > 0 {
		return c.Name[:i-1]
	}
	return ""
}

// handler returns the behavior for one invocation.
func (c *Command) handler() Handler {
	if c.factory != nil {
		return c.factory()
	}
	return funcHandler(c.Run)
}

type funcHandler RunFunc

func (f funcHandler) Run(inv *Invocation) (Result, error) {
	if f == nil {
		return Result{}, ErrNotImplemented
	}
	return f(inv)
}

// Registration is accepted by App.AddCommand. It is one of Func, Type or
// an already constructed *Command.
type Registration interface {
	command(o options) (*Command, error)
}

type options struct {
	name  string
	flags FlagBuilder
}

// Option customizes a registration.
type Option func(*options)

// WithName overrides the derived command name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithFlags sets the flag builder used for the command.
func WithFlags(fb FlagBuilder) Option {
	return func(o *options) { o.flags = fb }
}

func (c *Command) command(o options) (*Command, error) {
	if o.name != "" {
		return nil, fmt.Errorf("cannot redefine name of %q: %w", c.Name, ErrFinalized)
	}
	if o.flags != nil {
		return nil, fmt.Errorf("cannot redefine flags of %q: %w", c.Name, ErrFinalized)
	}
	name, err := normalizeName(c.Name)
	if err != nil {
		return nil, err
	}
	cmd := *c
	cmd.Name = name
	cmd.Description = dedent(c.Description)
	return &cmd, nil
}

type funcReg struct {
	id  string
	fn  RunFunc
	doc string
}

// Func registers a plain function. Unless WithName is given the command name
// is derived from id, e.g. "math_sum" or "mathSum" become "math sum".
func Func(id string, fn RunFunc, doc string) Registration {
	return funcReg{id: id, fn: fn, doc: doc}
}

func (r funcReg) command(o options) (*Command, error) {
	name, err := pickName(o.name, r.id)
	if err != nil {
		return nil, err
	}
	return &Command{
		Name:        name,
		Description: dedent(r.doc),
		Flags:       o.flags,
		Run:         r.fn,
	}, nil
}

type typeReg struct {
	id      string
	factory func() Handler
}

// Type registers a handler type. factory is called once at registration to
// read the description and then once per invocation. Unless WithName is
// given the name is derived from id, e.g. "MathSumCommand" becomes "math sum".
func Type(id string, factory func() Handler) Registration {
	return typeReg{id: id, factory: factory}
}

func (r typeReg) command(o options) (*Command, error) {
	name, err := pickName(o.name, r.id)
	if err != nil {
		return nil, err
	}
	cmd := &Command{Name: name, Flags: o.flags}
	if r.factory == nil {
		return cmd, nil
	}
	if d, ok := r.factory().(Describer); ok {
		cmd.Description = dedent(d.Description())
	}
	cmd.factory = r.factory
	return cmd, nil
}

func pickName(explicit, id string) (string, error) {
	if explicit != "" {
		return normalizeName(explicit)
	}
	return normalizeName(DeriveName(id))
}

// Result is what a handler reports back: either a success flag, which the
// App maps to its OK or Fail code, or an exit code passed through verbatim.
// The zero Result is exit code 0.
type Result struct {
	isBool bool
	ok     bool
	code   int
}

// Bool reports success or failure.
func Bool(ok bool) Result { return Result{isBool: true, ok: ok} }

// Code reports an explicit exit code.
func Code(code int) Result { return Result{code: code} }

// OK is shorthand for Bool(true).
func OK() Result { return Bool(true) }

// Fail is shorthand for Bool(false).
func Fail() Result { return Bool(false) }

func (r Result) exitCode(codes Codes) int {
	switch {
	case !r.isBool:
		return r.code
	case r.ok:
		return codes.OK
	default:
		return codes.Fail
	}
}

// Invocation is the request-scoped view of a command: the shared, read-only
// Command plus everything that belongs to this one call.
type Invocation struct {
	Context context.Context
	Command *Command
	Args    []string       // tokens after the command name, unparsed
	Flags   *pflag.FlagSet // parsed from Args
	Stdout  io.Writer
	Stderr  io.Writer
	Color   *termcolor.Writer
	Logger  *slog.Logger
}

// Positional returns the arguments left after flag parsing.
func (inv *Invocation) Positional() []string { return inv.Flags.Args() }

// Printf writes to the invocation's stdout.
func (inv *Invocation) Printf(format string, a ...any) {
	fpf(inv.Stdout, format, a...)
}

// Println writes a line to the invocation's stdout.
func (inv *Invocation) Println(a ...any) {
	_, _ = fmt.Fprintln(inv.Stdout, a...)
}
