package cli

import (
	"fmt"
	"regexp"
	"strings"
)

// caseBoundary matches a lowercase letter or digit followed by an uppercase
// letter: the split point between words of a MixedCase identifier. Runs of
// capitals stay together, so "URLParse" is one word.
var caseBoundary = regexp.MustCompile(`([a-z\d])([A-Z])`)

// DeriveName turns a Go identifier into a command name. Words are split on
// underscores and on case transitions, lowercased, and a trailing "handler"
// and then a trailing "command" word are dropped:
//
//	MathSumCommandHandler -> "math sum"
//	math_sum_command      -> "math sum"
//	ParseURL              -> "parse url"
func DeriveName(id string) string {
	var words []string
	for _, part := range strings.Split(id, "_") {
		for _, w := range strings.Fields(caseBoundary.ReplaceAllString(part, "$1 $2")) {
			words = append(words, strings.ToLower(w))
		}
	}
	if n := len(words); n > 0 && words[n-1] == "handler" {
		words = words[:n-1]
	}
	if n := len(words); n > 0 && words[n-1] == "command" {
		words = words[:n-1]
	}
	return strings.Join(words, " ")
}

// normalizeName lowercases name, collapses whitespace and checks that it has
// one or two words.
func normalizeName(name string) (string, error) {
	words := strings.Fields(strings.ToLower(name))
	switch len(words) {
	case 1, 2:
		return strings.Join(words, " "), nil
	case 0:
		return "", fmt.Errorf("%w: empty command name", ErrInvalidName)
	default:
		return "", fmt.Errorf("%w: %q has more than two words", ErrInvalidName, name)
	}
}

// dedent cleans up a description written as an indented raw string: the
// first line is trimmed on the left, the longest whitespace prefix common to
// the remaining non-blank lines is removed, and surrounding blank space is
// trimmed.
func dedent(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\t", "    "), "\n")
	lines[0] = strings.TrimLeft(lines[0], " ")
	prefix := -1
	for _, l := range lines[1:] {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " "))
		if prefix < 0 || n < prefix {
			prefix = n
		}
	}
	for i := 1; prefix > 0 && i < len(lines); i++ {
		if len(lines[i]) >= prefix {
			lines[i] = lines[i][prefix:]
		} else {
			lines[i] = strings.TrimLeft(lines[i], " ")
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// summaryOf returns the first line of a description.
func summaryOf(desc string) string {
	first, _, _ := strings.Cut(desc, "\n")
	return strings.TrimSpace(first)
}
