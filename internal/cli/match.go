package cli

import (
	"sort"
	"strings"
)

// CommandSet is the ordered set of registered command names. Names are
// lowercased on insertion and iterate in insertion order. A CommandSet is
// never modified after construction, so it is safe to share between
// concurrent resolutions.
type CommandSet struct {
	names  []string
	index  map[string]struct{}
	groups map[string]struct{}
}

// NewCommandSet builds a set from names, lowercasing each one and dropping
// duplicates while keeping the first occurrence's position.
func NewCommandSet(names []string) *CommandSet {
	s := &CommandSet{
		index:  make(map[string]struct{}, len(names)),
		groups: make(map[string]struct{}),
	}
	for _, n := range names {
		n = strings.ToLower(n)
		if _, dup := s.index[n]; dup {
			continue
		}
		s.index[n] = struct{}{}
		s.names = append(s.names, n)
		if i := strings.LastIndexByte(n, ' '); i > 0 {
			s.groups[n[:i]] = struct{}{}
		}
	}
	return s
}

// Contains reports whether name is registered.
func (s *CommandSet) Contains(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Names returns the command names in insertion order.
func (s *CommandSet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of commands in the set.
func (s *CommandSet) Len() int { return len(s.names) }

// Groups returns the sorted first words of all two-word command names.
func (s *CommandSet) Groups() []string {
	out := make([]string, 0, len(s.groups))
	for g := range s.groups {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// IsGroup reports whether word is the first word of some two-word command.
func (s *CommandSet) IsGroup(word string) bool {
	_, ok := s.groups[word]
	return ok
}

// Resolution is the outcome of matching an argument vector against a
// CommandSet. It is computed once per call and never cached.
type Resolution struct {
	Args    []string // raw tokens as given
	Name    string   // matched command, "" when unmatched
	Words   int      // leading tokens consumed by Name
	Group   string   // first token when it names a group
	Guesses []string // candidates, only set when unmatched
}

// Matched reports whether a command was found.
func (r Resolution) Matched() bool { return r.Name != "" }

// Rest returns the tokens that follow the command name. They are passed to
// the handler unmodified.
func (r Resolution) Rest() []string {
	if r.Words >= len(r.Args) {
		return nil
	}
	return r.Args[r.Words:]
}

// Resolve finds the command that args refer to. Only the first two tokens
// take part in matching; they are compared lowercased. The rules are tried
// in order and the first hit wins:
//
//  1. "a b" is a command
//  2. "a" is a command
//  3. "b a" is a command
//  4. "a" is a word of exactly one command
//  5. "a" or "a b" is within one character of a command
//
// When nothing matches, the returned Resolution carries guesses.
func Resolve(args []string, set *CommandSet) Resolution {
	res := Resolution{Args: args, Group: GroupOf(args, set)}
	if len(args) == 0 {
		return res
	}
	words := leading(args)

	if name, n := match(words, set); name != "" {
		res.Name = name
		res.Words = n
		return res
	}
	res.Guesses = guesses(words, set)
	return res
}

// GroupOf returns the first token of args when it is a registered group.
func GroupOf(args []string, set *CommandSet) string {
	if len(args) == 0 {
		return ""
	}
	g := strings.ToLower(args[0])
	if set.IsGroup(g) {
		return g
	}
	return ""
}

// leading returns at most the first two tokens, lowercased.
func leading(args []string) []string {
	n := min(len(args), 2)
	out := make([]string, n)
	for i := range n {
		out[i] = strings.ToLower(args[i])
	}
	return out
}

func match(words []string, set *CommandSet) (string, int) {
	if len(words) == 2 {
		if name := words[0] + " " + words[1]; set.Contains(name) {
			return name, 2
		}
	}
	if set.Contains(words[0]) {
		return words[0], 1
	}
	if len(words) == 2 {
		if name := words[1] + " " + words[0]; set.Contains(name) {
			return name, 2
		}
	}

	// A single word that belongs to exactly one command. Shared words are
	// ambiguous and fall through to the typo check.
	if owners := commandsByPart(set)[words[0]]; len(owners) == 1 {
		return owners[0], 1
	}

	for size := 1; size <= len(words); size++ {
		given := strings.Join(words[:size], " ")
		for _, name := range set.names {
			if Similar(given, name, 1) {
				return name, size
			}
		}
	}
	return "", 0
}

// commandsByPart maps every word of every command to the distinct commands
// containing it, in set order.
func commandsByPart(set *CommandSet) map[string][]string {
	parts := make(map[string][]string)
	for _, name := range set.names {
		for _, part := range strings.Fields(name) {
			owners := parts[part]
			if len(owners) > 0 && owners[len(owners)-1] == name {
				continue
			}
			parts[part] = append(owners, name)
		}
	}
	return parts
}
