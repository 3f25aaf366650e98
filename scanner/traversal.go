package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"sasaudit/config"
	"sasaudit/logger"
	"sasaudit/scanerr"
	"sasaudit/utils"

	"github.com/google/uuid"
)

type walker interface {
	Walk(ctx context.Context, startPath string, fn fs.WalkDirFunc) error
}

// lexicalWalker is a depth-first walk over an explicit stack. Children are
// pushed in reverse so entries pop in the sorted order os.ReadDir returns.
type lexicalWalker struct{}

func (w lexicalWalker) Walk(ctx context.Context, startPath string, fn fs.WalkDirFunc) error {
	info, err := os.Stat(startPath)
	if err != nil {
		return fn(startPath, nil, err)
	}
	root := fs.FileInfoToDirEntry(info)
	type item struct {
		path  string
		entry fs.DirEntry
	}
	stack := []item{{path: startPath, entry: root}}
	for len(stack) > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := fn(current.path, current.entry, nil); err != nil {
			if err == fs.SkipDir {
				continue
			}
			return err
		}
		if !current.entry.IsDir() {
			continue
		}

		entries, err := os.ReadDir(current.path)
		if err != nil {
			if ferr := fn(current.path, current.entry, err); ferr != nil && ferr != fs.SkipDir {
				return ferr
			}
			continue
		}
		for i := len(entries) - 1; i >= 0; i-- {
			child := entries[i]
			stack = append(stack, item{
				path:  filepath.Join(current.path, child.Name()),
				entry: child,
			})
		}
	}
	return nil
}

// reportSet holds the absolute paths of the current run's own reports.
type reportSet map[string]struct{}

func newReportSet(paths []string) reportSet {
	set := make(reportSet, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			set[abs] = struct{}{}
		}
	}
	return set
}

func (s reportSet) contains(path string) bool {
	if len(s) == 0 {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	_, ok := s[abs]
	return ok
}

// discoverFiles walks cfg.InputDir and returns one record per regular file in
// traversal order, leaving out the files in reports. Any directory that
// cannot be read aborts the walk.
func discoverFiles(ctx context.Context, w walker, cfg *config.Config, matcher *utils.PatternMatcher, reports reportSet) ([]FileRecord, error) {
	// Only an output directory strictly below the input root is pruned.
	skipOutput := utils.IsPathWithin(cfg.OutputDir, []string{cfg.InputDir}) &&
		!utils.IsPathWithin(cfg.InputDir, []string{cfg.OutputDir})
	var records []FileRecord
	err := w.Walk(ctx, cfg.InputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("traverse %s: %v: %w", path, err, scanerr.ErrIO)
		}
		if d.IsDir() {
			if skipOutput && path != cfg.InputDir && utils.IsPathWithin(path, []string{cfg.OutputDir}) {
				logger.Debugf("Skipping output directory %s", path)
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			logger.Debugf("Skipping non-regular file %s", path)
			return nil
		}
		if reports.contains(path) {
			logger.Debugf("Skipping report file %s", path)
			return nil
		}
		rel, relErr := filepath.Rel(cfg.InputDir, path)
		if relErr != nil {
			rel = path
		}
		if !matcher.ShouldInclude(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %v: %w", path, err, scanerr.ErrIO)
		}
		records = append(records, FileRecord{
			ID:         uuid.NewString(),
			Name:       d.Name(),
			Directory:  filepath.Dir(path),
			CreatedAt:  creationTime(path, info),
			ModifiedAt: info.ModTime(),
			SizeBytes:  info.Size(),
		})
		return nil
	})
	return records, err
}
