// Package docs renders a command reference for a cli.App as Markdown or HTML.
package docs

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/rybkr/argroute/internal/cli"
)

// Markdown returns the command reference for app. Commands are listed in a
// table with their group, then described one section each.
func Markdown(app *cli.App) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# %s\n\n", app.Name)
	if app.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", app.Description)
	}
	if app.Version != "" {
		fmt.Fprintf(&b, "Version: `%s`\n\n", app.Version)
	}

	cmds := app.Commands()
	b.WriteString("## Commands\n\n")
	b.WriteString("| Command | Group | Summary |\n")
	b.WriteString("|---------|-------|---------|\n")
	for _, c := range cmds {
		group := c.Group()
		if group == "" {
			group = "-"
		}
		fmt.Fprintf(&b, "| [`%s`](#%s) | %s | %s |\n", c.Name, anchor(c.Name), group, escapeCell(c.Summary()))
	}
	b.WriteString("\n")

	for _, c := range cmds {
		fmt.Fprintf(&b, "## %s\n\n", c.Name)
		usage := c.Usage
		if usage == "" {
			usage = app.Name + " " + c.Name + " [flags] [<args>]"
		}
		fmt.Fprintf(&b, "```\n%s\n```\n\n", usage)
		if c.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", c.Description)
		}
		if c.URL != "" {
			fmt.Fprintf(&b, "See <%s>.\n\n", c.URL)
		}
	}
	return append(bytes.TrimRight(b.Bytes(), "\n"), '\n')
}

// HTML renders Markdown source to an HTML fragment.
func HTML(md []byte) ([]byte, error) {
	conv := goldmark.New(
		goldmark.WithExtensions(extension.Table),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(html.WithXHTML()),
	)
	var out bytes.Buffer
	if err := conv.Convert(md, &out); err != nil {
		return nil, fmt.Errorf("rendering docs: %w", err)
	}
	return out.Bytes(), nil
}

// anchor returns the heading id goldmark's auto-heading-id would give name.
func anchor(name string) string {
	return strings.ReplaceAll(name, " ", "-")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
