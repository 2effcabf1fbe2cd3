package main

import (
	"strings"

	"github.com/pterm/pterm"

	"github.com/rybkr/argroute/internal/cli"
)

// printTable writes rows under a header to the invocation's stdout.
func printTable(inv *cli.Invocation, header []string, rows [][]string) error {
	data := append(pterm.TableData{header}, rows...)
	table := pterm.DefaultTable.WithHasHeader().WithSeparator("  ").WithData(data)
	if !inv.Color.Enabled() {
		plain := pterm.NewStyle()
		table = table.WithStyle(plain).WithHeaderStyle(plain).WithSeparatorStyle(plain)
	}
	out, err := table.Srender()
	if err != nil {
		return err
	}
	inv.Println(strings.TrimRight(out, "\n"))
	return nil
}
