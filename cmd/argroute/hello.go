package main

import (
	"strings"

	"github.com/spf13/pflag"

	"github.com/rybkr/argroute/internal/cli"
)

const helloDoc = `Greet someone.

	The name is taken from the first argument, then from --name.`

func helloFlags(fs *pflag.FlagSet) {
	fs.StringP("name", "n", "world", "who to greet")
	fs.Bool("shout", false, "greet in capitals")
}

func runHello(inv *cli.Invocation) (cli.Result, error) {
	name, err := inv.Flags.GetString("name")
	if err != nil {
		return cli.Result{}, err
	}
	if args := inv.Positional(); len(args) > 0 {
		name = strings.Join(args, " ")
	}
	greeting := "Hello, " + name + "!"
	if shout, _ := inv.Flags.GetBool("shout"); shout {
		greeting = strings.ToUpper(greeting)
	}
	inv.Println(greeting)
	return cli.OK(), nil
}
