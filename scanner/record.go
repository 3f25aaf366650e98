package scanner

import (
	"path/filepath"
	"time"

	"sasaudit/output"
)

// FileRecord is the identity and filesystem metadata of one discovered file.
// Records are built once during traversal and never modified afterwards.
type FileRecord struct {
	ID         string
	Name       string
	Directory  string
	CreatedAt  time.Time
	ModifiedAt time.Time
	SizeBytes  int64
}

func (r FileRecord) Path() string {
	return filepath.Join(r.Directory, r.Name)
}

func (r FileRecord) Summary() output.Summary {
	return output.Summary{
		ID:         r.ID,
		Name:       r.Name,
		Directory:  r.Directory,
		CreatedAt:  r.CreatedAt,
		ModifiedAt: r.ModifiedAt,
		SizeBytes:  r.SizeBytes,
	}
}

// Finding is one scanner result for one file. Scanners fill Line and Payload;
// the runner stamps FileID and Scanner.
type Finding struct {
	FileID  string
	Scanner string
	// Line is 1-based for positional scanners and 0 for whole-file results.
	Line    int
	Payload string
}

func (f Finding) Detail(path string) output.Detail {
	return output.Detail{
		FileID:  f.FileID,
		Scanner: f.Scanner,
		Payload: f.Payload,
		Line:    f.Line,
		Path:    path,
	}
}
