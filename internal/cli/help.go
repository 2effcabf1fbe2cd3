package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/pflag"
)

// Section prefixes used in help output.
const (
	prefixUsage       = "USAGE: "
	prefixDescription = "DESCRIPTION: "
	prefixDocs        = "DOCS: "
	prefixEpilog      = "SEE ALSO: "
	titleGlobals      = "GLOBAL FLAGS"
	titleFlags        = "FLAGS"
	titleCommands     = "COMMANDS"
	titleGroup        = "COMMANDS IN GROUP"
	titleGuesses      = "POSSIBLE COMMANDS"
)

// fpf is a shorthand for fmt.Fprintf that discards the error, used for
// writing help text to stderr where write failures are non-actionable.
func fpf(w io.Writer, format string, a ...any) {
	_, _ = fmt.Fprintf(w, format, a...) //nolint:gosec // CLI stderr, not web output
}

// FormatHelp writes the app help to a.Stderr. When res is a failed
// resolution the listing is narrowed to its group or guesses, and a
// "command not found" notice is added unless the input named a group.
func (a *App) FormatHelp(res *Resolution) {
	w, cw := a.Stderr, a.Color

	usage := a.Usage
	if usage == "" {
		usage = a.Name + " [global flags] <command> [<args>]"
	}
	fpf(w, "%s%s\n\n", cw.Yellow(prefixUsage), usage)

	if res != nil && !res.Matched() && res.Group == "" {
		fpf(w, "%s command not found\n\n", cw.Red("ERROR:"))
	}

	if a.Description != "" {
		fpf(w, "%s\n\n", a.labelled(prefixDescription, a.Description))
	}
	if a.URL != "" {
		fpf(w, "%s%s\n\n", cw.Yellow(prefixDocs), a.URL)
	}

	if a.Globals != nil && a.Globals.HasAvailableFlags() {
		fpf(w, "%s\n%s\n", cw.Yellow(titleGlobals), a.Globals.FlagUsagesWrapped(a.Width))
	}

	a.formatCommands(w, res)

	if a.Epilog != "" {
		fpf(w, "%s\n", a.labelled(prefixEpilog, a.Epilog))
	} else {
		fpf(w, "Run '%s help <command>' for more information on a command.\n", a.Name)
	}
}

// formatCommands writes the command listing. Names alternate between green
// and blue whenever the group changes.
func (a *App) formatCommands(w io.Writer, res *Resolution) {
	cw := a.Color
	title := titleCommands
	var only map[string]bool
	if res != nil {
		switch {
		case res.Group != "":
			title = titleGroup + " " + res.Group
		case len(res.Guesses) > 0:
			title = titleGuesses
		}
		if len(res.Guesses) > 0 {
			only = make(map[string]bool, len(res.Guesses))
			for _, g := range res.Guesses {
				only[g] = true
			}
		}
	}

	var rows pterm.TableData
	prevGroup, green := "", true
	for _, cmd := range a.Commands() {
		if only != nil && !only[cmd.Name] {
			continue
		}
		if g := cmd.Group(); g != prevGroup {
			prevGroup = g
			green = !green
		}
		name := cw.Blue(cmd.Name)
		if green {
			name = cw.Green(cmd.Name)
		}
		rows = append(rows, []string{"  " + name, cmd.Summary()})
	}

	fpf(w, "%s\n", cw.Yellow(title))
	if len(rows) == 0 {
		fpf(w, "\n")
		return
	}
	table, err := pterm.DefaultTable.
		WithStyle(pterm.NewStyle()).
		WithSeparator("  ").
		WithSeparatorStyle(pterm.NewStyle()).
		WithData(rows).
		Srender()
	if err != nil {
		a.logger().Debug("table render failed", "err", err)
		for _, r := range rows {
			fpf(w, "%s  %s\n", r[0], r[1])
		}
		fpf(w, "\n")
		return
	}
	fpf(w, "%s\n\n", strings.TrimRight(table, "\n"))
}

// FormatCommandHelp writes per-command help text to a.Stderr. fs is the
// command's flag set; it may be nil.
func (a *App) FormatCommandHelp(cmd *Command, fs *pflag.FlagSet) {
	w, cw := a.Stderr, a.Color

	fpf(w, "%s - %s\n\n", cw.BoldCyan(cmd.Name), cmd.Summary())

	usage := cmd.Usage
	if usage == "" {
		usage = a.Name + " " + cmd.Name + " [flags] [<args>]"
	}
	fpf(w, "%s%s\n\n", cw.Yellow(prefixUsage), usage)

	if cmd.Description != "" {
		fpf(w, "%s\n\n", a.labelled(prefixDescription, cmd.Description))
	}
	if cmd.URL != "" {
		fpf(w, "%s%s\n\n", cw.Yellow(prefixDocs), cmd.URL)
	}
	if fs != nil && fs.HasAvailableFlags() {
		fpf(w, "%s\n%s\n", cw.Yellow(titleFlags), fs.FlagUsagesWrapped(a.Width))
	}
}

// labelled wraps text to the app width, prefixed by a yellow label on the
// first line. Paragraphs (blank-line separated) are wrapped independently.
func (a *App) labelled(label, text string) string {
	paragraphs := strings.Split(label+text, "\n\n")
	for i, p := range paragraphs {
		paragraphs[i] = a.wrap(p)
	}
	out := strings.Join(paragraphs, "\n\n")
	if rest, ok := strings.CutPrefix(out, label); ok {
		return a.Color.Yellow(label) + rest
	}
	return out
}

func (a *App) wrap(text string) string {
	if a.Width <= 0 {
		return text
	}
	s := pterm.DefaultParagraph.WithMaxWidth(a.Width).Sprint(text)
	return strings.TrimRight(s, "\n")
}
