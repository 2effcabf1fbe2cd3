// Package cli provides a lightweight CLI framework with one- and two-word
// commands, typo-tolerant command resolution, colored help and "possible
// commands" suggestions.
package cli

import "strings"

// Guesses returns the commands worth suggesting for args. The strategies
// below are tried in order and the first non-empty result is returned:
//
//   - the first token is a group: every command in that group
//   - a token equals the last word of a command
//   - the first one or two tokens are within three characters of a command
//   - a token is within one character of any word of a command
func Guesses(args []string, set *CommandSet) []string {
	if len(args) == 0 {
		return nil
	}
	return guesses(leading(args), set)
}

func guesses(words []string, set *CommandSet) []string {
	if set.IsGroup(words[0]) {
		prefix := words[0] + " "
		return collect(set, func(name string) bool {
			return strings.HasPrefix(name, prefix)
		})
	}

	// Typed only the second word of a two-word command.
	if g := collect(set, func(name string) bool {
		last := lastWord(name)
		for _, w := range words {
			if w == last {
				return true
			}
		}
		return false
	}); len(g) > 0 {
		return g
	}

	// Typed the whole name with too many mistakes.
	if g := collect(set, func(name string) bool {
		for size := 1; size <= len(words); size++ {
			if Similar(strings.Join(words[:size], " "), name, 3) {
				return true
			}
		}
		return false
	}); len(g) > 0 {
		return g
	}

	// Typed one word of the name, with a typo.
	return collect(set, func(name string) bool {
		for _, w := range words {
			for _, part := range strings.Fields(name) {
				if Similar(w, part, 1) {
					return true
				}
			}
		}
		return false
	})
}

// collect returns the names in set, in order, for which keep is true.
func collect(set *CommandSet, keep func(name string) bool) []string {
	var out []string
	for _, name := range set.names {
		if keep(name) {
			out = append(out, name)
		}
	}
	return out
}

func lastWord(name string) string {
	if i := strings.LastIndexByte(name, ' '); i >= 0 {
		return name[i+1:]
	}
	return name
}
