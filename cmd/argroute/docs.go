package main

import (
	"os"

	"github.com/spf13/pflag"

	"github.com/rybkr/argroute/internal/cli"
	"github.com/rybkr/argroute/internal/docs"
)

type docsCommand struct {
	app    *cli.App
	local  bool // --output is only offered to local runs
	html   bool
	output string
}

func (c *docsCommand) Description() string {
	return `Print a command reference.

	The reference is Markdown unless --html is given.`
}

func (c *docsCommand) DefineFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&c.html, "html", false, "render as HTML")
	if c.local {
		fs.StringVarP(&c.output, "output", "o", "", "write to this file instead of stdout")
	}
}

func (c *docsCommand) Run(inv *cli.Invocation) (cli.Result, error) {
	out := docs.Markdown(c.app)
	if c.html {
		var err error
		if out, err = docs.HTML(out); err != nil {
			return cli.Result{}, err
		}
	}

	if c.output == "" {
		_, err := inv.Stdout.Write(out)
		return cli.OK(), err
	}
	if err := os.WriteFile(c.output, out, 0o644); err != nil {
		return cli.Result{}, err
	}
	inv.Logger.Info("Docs written", "path", c.output)
	return cli.OK(), nil
}
