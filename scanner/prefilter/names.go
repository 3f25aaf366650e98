// Package prefilter finds which known names occur in a line of text.
package prefilter

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// Below this many names a plain substring loop beats building the automaton.
const autoAhoMinNames = 8

type NameMatcher interface {
	// FirstMatch reports the earliest name, in list order, contained in line.
	FirstMatch(line string) (string, bool)
	Names() []string
}

type naiveNameMatcher struct {
	names []string
}

func (m naiveNameMatcher) FirstMatch(line string) (string, bool) {
	for _, name := range m.names {
		if strings.Contains(line, name) {
			return name, true
		}
	}
	return "", false
}

func (m naiveNameMatcher) Names() []string { return m.names }

type ahoNameMatcher struct {
	names   []string
	matcher *ahocorasick.Matcher
}

func (m ahoNameMatcher) FirstMatch(line string) (string, bool) {
	hits := m.matcher.MatchThreadSafe([]byte(line))
	best := -1
	for _, idx := range hits {
		if idx < 0 || idx >= len(m.names) {
			continue
		}
		if best == -1 || idx < best {
			best = idx
		}
	}
	if best == -1 {
		return "", false
	}
	return m.names[best], true
}

func (m ahoNameMatcher) Names() []string { return m.names }

// BuildNameMatcher dedupes names, keeping first occurrence order, and drops
// empty entries.
func BuildNameMatcher(names []string) NameMatcher {
	normalized := normalizeNames(names)
	if len(normalized) < autoAhoMinNames {
		return naiveNameMatcher{names: normalized}
	}
	return ahoNameMatcher{names: normalized, matcher: ahocorasick.NewStringMatcher(normalized)}
}

func normalizeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
