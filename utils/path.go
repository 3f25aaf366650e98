package utils

import (
	"path/filepath"
	"strings"
)

// IsPathWithin reports whether path is one of roots or lies beneath one of
// them. Symlinks are resolved when possible so that a linked output directory
// is still recognised inside the scanned tree.
func IsPathWithin(path string, roots []string) bool {
	absPath, ok := resolve(path)
	if !ok {
		return false
	}
	for _, root := range roots {
		absRoot, ok := resolve(root)
		if !ok {
			continue
		}
		rel, err := filepath.Rel(absRoot, absPath)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func resolve(path string) (string, bool) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved = path
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return "", false
	}
	return abs, true
}
