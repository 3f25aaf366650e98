package scanner

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"sasaudit/config"
	"sasaudit/scanerr"

	"golang.org/x/time/rate"
)

// ScanContext is the read-only view of one file shared by every scanner.
// Content is loaded on first use and cached, so a file is read at most once.
type ScanContext struct {
	Record FileRecord
	Cfg    *config.Config

	ctx     context.Context
	limiter *rate.Limiter

	bytesLoaded bool
	content     []byte
	contentErr  error

	textLoaded bool
	text       string
	textErr    error

	lines []string
}

func newScanContext(ctx context.Context, rec FileRecord, cfg *config.Config, limiter *rate.Limiter) *ScanContext {
	return &ScanContext{Record: rec, Cfg: cfg, ctx: ctx, limiter: limiter}
}

// Bytes returns the raw file content. Errors wrap scanerr.ErrIO.
func (sc *ScanContext) Bytes() ([]byte, error) {
	if sc.bytesLoaded {
		return sc.content, sc.contentErr
	}
	sc.bytesLoaded = true
	if sc.limiter != nil {
		if err := sc.limiter.Wait(sc.ctx); err != nil {
			sc.contentErr = fmt.Errorf("read %s: %v: %w", sc.Record.Path(), err, scanerr.ErrIO)
			return nil, sc.contentErr
		}
	}
	content, err := readContent(sc.Record.Path(), readOptions{
		maxSize:     sc.Cfg.MaxFileSize,
		mode:        sc.Cfg.ContentReadMode,
		mmapMinSize: sc.Cfg.MmapMinSize,
		chunkSize:   sc.Cfg.StreamChunkSize,
	})
	if err != nil {
		if scanerr.Kind(err) == nil {
			err = fmt.Errorf("read %s: %v: %w", sc.Record.Path(), err, scanerr.ErrIO)
		}
		sc.contentErr = err
		return nil, err
	}
	sc.content = content
	return sc.content, nil
}

// Text returns the decoded content. Errors wrap scanerr.ErrIO or
// scanerr.ErrEncoding.
func (sc *ScanContext) Text() (string, error) {
	if sc.textLoaded {
		return sc.text, sc.textErr
	}
	sc.textLoaded = true
	content, err := sc.Bytes()
	if err != nil {
		sc.textErr = err
		return "", err
	}
	sc.text, sc.textErr = decodeText(content, sc.Cfg.FallbackEncoding)
	return sc.text, sc.textErr
}

// Lines returns the text split into lines. Index i holds line i+1.
func (sc *ScanContext) Lines() ([]string, error) {
	if sc.lines != nil {
		return sc.lines, nil
	}
	text, err := sc.Text()
	if err != nil {
		return nil, err
	}
	sc.lines = splitLines(text)
	return sc.lines, nil
}

// splitLines splits on \n and drops one trailing \r per line. A trailing
// newline does not produce an extra empty line.
func splitLines(text string) []string {
	if text == "" {
		return []string{}
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := bytes.Count(content, []byte{'\n'})
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}
