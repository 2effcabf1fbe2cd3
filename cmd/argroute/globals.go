package main

import (
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/rybkr/argroute/internal/config"
	"github.com/rybkr/argroute/internal/termcolor"
)

type globalFlags struct {
	color      termcolor.ColorMode
	noColor    bool
	configPath string
	version    bool

	fs *pflag.FlagSet
}

func newGlobalFlags() *globalFlags {
	gf := &globalFlags{}
	fs := pflag.NewFlagSet("global", pflag.ContinueOnError)
	fs.SortFlags = false
	fs.SetOutput(io.Discard) // run reports parse errors itself
	fs.Var(&gf.color, "color", "when to use colors: auto, always or never")
	fs.BoolVar(&gf.noColor, "no-color", false, "disable colored output")
	fs.StringVar(&gf.configPath, "config", config.Path(), "config file")
	fs.BoolVar(&gf.version, "version", false, "print version information and exit")
	gf.fs = fs
	return gf
}

func (gf *globalFlags) flagSet() *pflag.FlagSet { return gf.fs }

// parseGlobalFlags parses the global long flags that lead args. It stops at
// the first token that is not one, usually the command name, and returns
// that token and everything after it unmodified.
func parseGlobalFlags(args []string) (*globalFlags, []string, error) {
	gf := newGlobalFlags()
	i := 0
	for i < len(args) {
		body, ok := strings.CutPrefix(args[i], "--")
		if !ok || body == "" {
			break
		}
		name, _, hasValue := strings.Cut(body, "=")
		flag := gf.fs.Lookup(name)
		if flag == nil {
			break
		}
		i++
		if !hasValue && flag.NoOptDefVal == "" && i < len(args) {
			i++ // the value
		}
	}

	if err := gf.fs.Parse(args[:i]); err != nil {
		return nil, nil, err
	}
	if i == len(args) {
		return gf, nil, nil
	}
	return gf, args[i:], nil
}

// resolveColor returns the color mode: --no-color, then --color, then the
// config file.
func (gf *globalFlags) resolveColor(cfg config.Config) termcolor.ColorMode {
	switch {
	case gf.noColor:
		return termcolor.ColorNever
	case gf.fs.Changed("color"):
		return gf.color
	default:
		return cfg.ColorMode()
	}
}
