// Package scanerr holds the error taxonomy shared by configuration, the scan
// runner and the command line.
package scanerr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a missing input or output directory. Fatal.
	ErrNotFound = errors.New("not found")

	// ErrIO marks a file that could not be opened or read during a scan.
	ErrIO = errors.New("io error")

	// ErrEncoding marks content that is not decodable text.
	ErrEncoding = errors.New("encoding error")

	// ErrPattern marks a built-in pattern that failed to compile. Fatal at startup.
	ErrPattern = errors.New("pattern error")

	// ErrInvalidConfig marks bad flags or config file values.
	ErrInvalidConfig = errors.New("invalid configuration")
)

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitConfigError  = 2
	ExitNotFound     = 3
	ExitPatternError = 4
)

// ScanError describes one scanner failing on one file. It never aborts a run.
type ScanError struct {
	Path    string
	FileID  string
	Scanner string
	Kind    error
	Err     error
}

func (e *ScanError) Error() string {
	if e.Scanner == "" {
		return fmt.Sprintf("%s: %v: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v: %v", e.Path, e.Scanner, e.Kind, e.Err)
}

func (e *ScanError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Kind returns the taxonomy sentinel matching err, or nil.
func Kind(err error) error {
	for _, kind := range []error{ErrNotFound, ErrPattern, ErrInvalidConfig, ErrEncoding, ErrIO} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// ExitCodeForError maps err to the process exit code.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return ExitNotFound
	case errors.Is(err, ErrPattern):
		return ExitPatternError
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	}
	return ExitGeneralError
}
