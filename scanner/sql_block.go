package scanner

import (
	"strings"

	"sasaudit/config"
	"sasaudit/logger"
)

type sqlStateKind int

const (
	outsideBlock sqlStateKind = iota
	insideBlock
)

func (k sqlStateKind) String() string {
	if k == insideBlock {
		return "inside_block"
	}
	return "outside"
}

// sqlState is the extractor state between lines. buf holds the lines of the
// open block, starting with the opening line, with trailing \r removed so a
// joined block never contains \r\n.
type sqlState struct {
	kind  sqlStateKind
	start int
	buf   []string
}

// step consumes line n (1-based). It returns the finished block when the
// line closes one.
func (s sqlState) step(n int, line string) (sqlState, *Finding) {
	upper := strings.ToUpper(line)
	if s.kind == outsideBlock {
		if !strings.Contains(upper, "PROC SQL") {
			return s, nil
		}
		s = sqlState{kind: insideBlock, start: n}
	}
	s.buf = append(s.buf, strings.TrimRight(line, "\r"))
	if !strings.Contains(upper, "QUIT;") {
		return s, nil
	}
	f := positionalFinding(s.start, strings.Join(s.buf, "\n"))
	return sqlState{kind: outsideBlock}, &f
}

// extractSQLBlocks returns one finding per closed PROC SQL ... QUIT; block
// and the state after the last line. A block still open at end of input is
// not reported.
func extractSQLBlocks(lines []string) ([]Finding, sqlState) {
	var (
		findings []Finding
		state    sqlState
		f        *Finding
	)
	for i, line := range lines {
		state, f = state.step(i+1, line)
		if f != nil {
			findings = append(findings, *f)
		}
	}
	return findings, state
}

type sqlBlockScanner struct{}

func (sqlBlockScanner) Name() string { return "get_sql" }

func (sqlBlockScanner) Enabled(*config.Config) bool { return true }

func (sqlBlockScanner) Scan(sc *ScanContext) ([]Finding, error) {
	lines, err := sc.Lines()
	if err != nil {
		return nil, err
	}
	findings, state := extractSQLBlocks(lines)
	if state.kind == insideBlock && logger.IsDebug() {
		logger.WithFields(logger.Fields{
			"file":  sc.Record.Path(),
			"start": state.start,
			"lines": len(state.buf),
		}).Debug("Unterminated PROC SQL block")
	}
	return findings, nil
}
