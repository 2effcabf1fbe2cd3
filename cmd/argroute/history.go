package main

import (
	"errors"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/rybkr/argroute/internal/cli"
	"github.com/rybkr/argroute/internal/history"
)

var errHistoryDisabled = errors.New("history is disabled; set history.enabled in the config or ARGROUTE_HISTORY")

type historyListCommand struct {
	store *history.Store
	limit int
}

func (c *historyListCommand) Description() string {
	return `Show recent invocations, newest first.

	Unmatched invocations are listed with the commands that were guessed.`
}

func (c *historyListCommand) DefineFlags(fs *pflag.FlagSet) {
	fs.IntVarP(&c.limit, "limit", "n", 20, "number of entries to show")
}

func (c *historyListCommand) Run(inv *cli.Invocation) (cli.Result, error) {
	if c.store == nil {
		return cli.Result{}, errHistoryDisabled
	}
	entries, err := c.store.Recent(inv.Context, c.limit)
	if err != nil {
		return cli.Result{}, err
	}
	if len(entries) == 0 {
		inv.Println("no invocations recorded")
		return cli.OK(), nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		command := e.Command
		if command == "" {
			command = "-"
			if len(e.Guesses) > 0 {
				command = "? " + strings.Join(e.Guesses, ", ")
			}
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.Time.Local().Format("2006-01-02 15:04:05"),
			strconv.Itoa(e.ExitCode),
			command,
			strings.Join(e.Args, " "),
		})
	}
	return cli.OK(), printTable(inv, []string{"ID", "TIME", "EXIT", "COMMAND", "ARGS"}, rows)
}

type historyStatsCommand struct {
	store *history.Store
}

func (c *historyStatsCommand) Description() string {
	return "Count invocations per command"
}

func (c *historyStatsCommand) Run(inv *cli.Invocation) (cli.Result, error) {
	if c.store == nil {
		return cli.Result{}, errHistoryDisabled
	}
	counts, err := c.store.Stats(inv.Context)
	if err != nil {
		return cli.Result{}, err
	}

	rows := make([][]string, 0, len(counts))
	for _, cc := range counts {
		name := cc.Command
		if name == "" {
			name = "(unmatched)"
		}
		rows = append(rows, []string{name, strconv.Itoa(cc.Count)})
	}
	return cli.OK(), printTable(inv, []string{"COMMAND", "COUNT"}, rows)
}
