package utils

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// PatternMatcher filters paths (relative to the scan root) by include and
// exclude globs. Globs support ** and are tried against the full relative
// path and the base name.
type PatternMatcher struct {
	includeGlobs []string
	excludeGlobs []string
}

func NewPatternMatcher(includePatterns, excludePatterns []string) *PatternMatcher {
	return &PatternMatcher{
		includeGlobs: normalizeGlobs(includePatterns),
		excludeGlobs: normalizeGlobs(excludePatterns),
	}
}

func (m *PatternMatcher) ShouldInclude(relPath string) bool {
	if m == nil {
		return true
	}
	relPath = filepath.ToSlash(relPath)
	if len(m.includeGlobs) > 0 && !matchAnyGlob(relPath, m.includeGlobs) {
		return false
	}
	if len(m.excludeGlobs) > 0 && matchAnyGlob(relPath, m.excludeGlobs) {
		return false
	}
	return true
}

func matchAnyGlob(relPath string, globs []string) bool {
	base := filepath.Base(relPath)
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, relPath); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, base); ok {
			return true
		}
	}
	return false
}

func normalizeGlobs(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimPrefix(strings.TrimSpace(filepath.ToSlash(p)), "./")
		if p == "" || !doublestar.ValidatePattern(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}
