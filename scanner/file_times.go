package scanner

import (
	"os"
	"time"

	"github.com/djherbis/times"
)

// creationTime returns the birth time where the platform records one, then the
// inode change time, and finally the modification time.
func creationTime(path string, info os.FileInfo) time.Time {
	ts, err := times.Stat(path)
	if err != nil {
		return info.ModTime()
	}
	if ts.HasBirthTime() {
		return ts.BirthTime()
	}
	if ts.HasChangeTime() {
		return ts.ChangeTime()
	}
	return ts.ModTime()
}
