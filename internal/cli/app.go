package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/rybkr/argroute/internal/termcolor"
)

// Codes are the exit codes the App returns for its own outcomes.
type Codes struct {
	Help    int // help was shown
	Unknown int // no command matched
	OK      int // handler reported success
	Fail    int // handler reported failure or errored
}

// DefaultCodes returns the standard exit codes.
func DefaultCodes() Codes {
	return Codes{Help: 0, Unknown: 1, OK: 0, Fail: 2}
}

// Record describes one completed dispatch.
type Record struct {
	Args     []string
	Command  string // "" when unmatched
	Words    int
	Group    string
	Guesses  []string
	ExitCode int
}

// Recorder receives a Record after every dispatch.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// App is a CLI application: a registry of commands and the dispatcher that
// routes an argument vector to one of them.
//
// Commands are registered during startup. After that the registry is only
// read, so one App (or its clones) may serve concurrent invocations.
// Use NewApp: a zero App can register and look up commands but has no
// output streams to Run with.
type App struct {
	Name        string
	Version     string
	Description string
	Usage       string // overrides the generated usage line
	URL         string
	Epilog      string
	Stdout      io.Writer
	Stderr      io.Writer
	Color       *termcolor.Writer
	Width       int
	Codes       Codes
	Strict      bool           // reject duplicate registrations
	Globals     *pflag.FlagSet // shown in help as the global flag group
	Logger      *slog.Logger
	Recorder    Recorder

	commands map[string]*Command
	order    []string // insertion order preserved for help
}

// NewApp creates a new App with the given name and version.
func NewApp(name, version string) *App {
	return &App{
		Name:     name,
		Version:  version,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Color:    termcolor.Plain(os.Stderr),
		Width:    termcolor.DefaultWidth,
		Codes:    DefaultCodes(),
		Logger:   slog.Default(),
		commands: make(map[string]*Command),
	}
}

// AddCommand normalizes reg into a Command and registers it. Registering a
// name twice replaces the earlier command unless the App is Strict.
func (a *App) AddCommand(reg Registration, opts ...Option) error {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	cmd, err := reg.command(o)
	if err != nil {
		return fmt.Errorf("cli: add command: %w", err)
	}

	if a.commands == nil {
		a.commands = make(map[string]*Command)
	}
	if _, exists := a.commands[cmd.Name]; exists {
		if a.Strict {
			return fmt.Errorf("cli: add command %q: %w", cmd.Name, ErrDuplicate)
		}
		a.logger().Warn("command registered twice, replacing", "command", cmd.Name)
	} else {
		a.order = append(a.order, cmd.Name)
	}
	a.commands[cmd.Name] = cmd
	return nil
}

// Lookup returns the named command, or nil if not found.
func (a *App) Lookup(name string) *Command {
	return a.commands[strings.ToLower(name)]
}

// CommandNames returns all registered command names in registration order.
func (a *App) CommandNames() []string {
	names := make([]string, len(a.order))
	copy(names, a.order)
	return names
}

// Commands returns all registered commands in registration order.
func (a *App) Commands() []*Command {
	out := make([]*Command, 0, len(a.order))
	for _, n := range a.order {
		out = append(out, a.commands[n])
	}
	return out
}

// CommandSet returns the registered names as a CommandSet.
func (a *App) CommandSet() *CommandSet {
	return NewCommandSet(a.order)
}

// Clone returns a shallow copy of a that shares its commands. Output and
// settings of the copy can be changed without affecting a.
func (a *App) Clone() *App {
	c := *a
	return &c
}

// Resolve matches args against the registered commands.
func (a *App) Resolve(args []string) Resolution {
	return Resolve(args, a.CommandSet())
}

// Command returns the command args refer to, or nil, along with the
// resolution it was found by.
func (a *App) Command(args []string) (*Command, Resolution) {
	res := a.Resolve(args)
	if !res.Matched() {
		return nil, res
	}
	return a.commands[res.Name], res
}

// Run dispatches args to the appropriate command. It returns an exit code.
//
// Dispatch rules:
//  1. No args, or just "help", "--help" or "commands" → app help, Codes.Help
//  2. "help <args>" → resolve "<args> --help"
//  3. Known command → parse its flags and call it
//  4. Unknown command → help listing guesses, Codes.Unknown
//
// A command without behavior panics with ErrNotImplemented.
func (a *App) Run(ctx context.Context, args []string) int {
	if len(args) == 0 || (len(args) == 1 && isHelpWord(args[0], true)) {
		a.FormatHelp(nil)
		return a.Codes.Help
	}

	if isHelpWord(args[0], false) {
		rewritten := make([]string, 0, len(args))
		rewritten = append(rewritten, args[1:]...)
		args = append(rewritten, "--help")
	}

	cmd, res := a.Command(args)
	if cmd == nil {
		a.logger().Debug("no command matched", "args", args, "group", res.Group, "guesses", res.Guesses)
		a.FormatHelp(&res)
		return a.record(ctx, res, a.Codes.Unknown)
	}

	a.logger().Debug("dispatching", "command", cmd.Name, "words", res.Words)
	return a.record(ctx, res, a.dispatch(ctx, cmd, res.Rest()))
}

func (a *App) dispatch(ctx context.Context, cmd *Command, rest []string) int {
	h := cmd.handler()
	fs := a.flagSet(cmd, h)

	if err := fs.Parse(rest); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			a.FormatCommandHelp(cmd, fs)
			return a.Codes.Help
		}
		fpf(a.Stderr, "%s %v\n\n", a.Color.Red("error:"), err)
		a.FormatCommandHelp(cmd, fs)
		return a.Codes.Fail
	}

	inv := &Invocation{
		Context: ctx,
		Command: cmd,
		Args:    rest,
		Flags:   fs,
		Stdout:  a.Stdout,
		Stderr:  a.Stderr,
		Color:   a.Color,
		Logger:  a.logger().With("command", cmd.Name),
	}
	result, err := h.Run(inv)
	switch {
	case errors.Is(err, ErrNotImplemented):
		panic(fmt.Errorf("cli: command %q: %w", cmd.Name, err))
	case err != nil:
		inv.Logger.Error("command failed", "err", err)
		fpf(a.Stderr, "%s %v\n", a.Color.Red("error:"), err)
		return a.Codes.Fail
	}
	return result.exitCode(a.Codes)
}

// flagSet builds the per-invocation flag set for cmd.
func (a *App) flagSet(cmd *Command, h Handler) *pflag.FlagSet {
	fs := pflag.NewFlagSet(cmd.Name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if cmd.Flags != nil {
		cmd.Flags(fs)
	}
	if fd, ok := h.(FlagDefiner); ok {
		fd.DefineFlags(fs)
	}
	return fs
}

func (a *App) record(ctx context.Context, res Resolution, code int) int {
	if a.Recorder == nil {
		return code
	}
	rec := Record{
		Args:     res.Args,
		Command:  res.Name,
		Words:    res.Words,
		Group:    res.Group,
		Guesses:  res.Guesses,
		ExitCode: code,
	}
	if err := a.Recorder.Record(ctx, rec); err != nil {
		a.logger().Warn("failed to record invocation", "err", err)
	}
	return code
}

func (a *App) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

// isHelpWord reports whether s asks for help. "commands" only counts when
// it is the sole argument.
func isHelpWord(s string, alone bool) bool {
	switch s {
	case "help", "--help":
		return true
	case "commands":
		return alone
	}
	return false
}
