package main

import (
	"github.com/spf13/pflag"

	"github.com/rybkr/argroute/internal/cli"
)

type pingCommand struct {
	count int
}

func (c *pingCommand) Description() string {
	return `Reply with pong.

	Useful to check that dispatch works, locally or through "argroute serve".`
}

func (c *pingCommand) DefineFlags(fs *pflag.FlagSet) {
	fs.IntVarP(&c.count, "count", "c", 1, "number of replies")
}

func (c *pingCommand) Run(inv *cli.Invocation) (cli.Result, error) {
	for range c.count {
		inv.Println("pong")
	}
	return cli.OK(), nil
}
