package scanner

import (
	"fmt"
	"io"
	"os"
	"strings"

	"sasaudit/scanerr"

	"golang.org/x/exp/mmap"
)

const (
	defaultMmapMinSize     int64 = 128 * 1024
	defaultStreamChunkSize       = 256 * 1024
)

var openMmapReader = mmap.Open

// readOptions selects how file content is pulled into memory.
type readOptions struct {
	maxSize     int64
	mode        string
	mmapMinSize int64
	chunkSize   int
}

func (o readOptions) withDefaults() readOptions {
	if o.mmapMinSize <= 0 {
		o.mmapMinSize = defaultMmapMinSize
	}
	if o.chunkSize <= 0 {
		o.chunkSize = defaultStreamChunkSize
	}
	o.mode = strings.ToLower(strings.TrimSpace(o.mode))
	if o.mode == "" {
		o.mode = "auto"
	}
	return o
}

// readContent loads the whole file. A file over maxSize is refused rather
// than truncated so no scanner sees a partial view.
func readContent(path string, opts readOptions) ([]byte, error) {
	opts = opts.withDefaults()
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if opts.maxSize > 0 && info.Size() > opts.maxSize {
		return nil, fmt.Errorf("file too large (%d > %d bytes): %w", info.Size(), opts.maxSize, scanerr.ErrIO)
	}

	switch opts.mode {
	case "mmap":
		return readContentMmap(path, info.Size())
	case "auto":
		if info.Size() >= opts.mmapMinSize {
			content, err := readContentMmap(path, info.Size())
			if err == nil {
				return content, nil
			}
		}
		return readContentStream(path, info.Size(), opts.chunkSize)
	default:
		return readContentStream(path, info.Size(), opts.chunkSize)
	}
}

func readContentMmap(path string, size int64) ([]byte, error) {
	r, err := openMmapReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if size > int64(r.Len()) {
		size = int64(r.Len())
	}
	if size <= 0 {
		return []byte{}, nil
	}
	buf := make([]byte, size)
	if _, err := r.ReadAt(buf, 0); err != nil && err != io.EOF {
		return nil, err
	}
	return buf, nil
}

func readContentStream(path string, sizeHint int64, chunkSize int) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	content := make([]byte, 0, max(sizeHint, 0))
	buffer := make([]byte, chunkSize)
	for {
		n, err := file.Read(buffer)
		if n > 0 {
			content = append(content, buffer[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				return content, nil
			}
			return nil, err
		}
	}
}
