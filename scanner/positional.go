package scanner

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"sasaudit/config"
	"sasaudit/scanner/prefilter"
)

func positionalFinding(line int, text string) Finding {
	return Finding{Line: line, Payload: fmt.Sprintf("(%d, %s)", line, text)}
}

// scanLines emits one finding per line for which match returns ok.
func scanLines(sc *ScanContext, match func(line string) (string, bool)) ([]Finding, error) {
	lines, err := sc.Lines()
	if err != nil {
		return nil, err
	}
	var findings []Finding
	for i, line := range lines {
		if text, ok := match(line); ok {
			findings = append(findings, positionalFinding(i+1, text))
		}
	}
	return findings, nil
}

type libnameScanner struct{}

func (libnameScanner) Name() string { return "get_libname" }

func (libnameScanner) Enabled(*config.Config) bool { return true }

func (libnameScanner) Scan(sc *ScanContext) ([]Finding, error) {
	return scanLines(sc, func(line string) (string, bool) {
		return line, strings.HasPrefix(strings.ToUpper(line), "LIBNAME")
	})
}

type passwordScanner struct {
	redact string
}

func (passwordScanner) Name() string { return "get_password" }

func (passwordScanner) Enabled(*config.Config) bool { return true }

func (s passwordScanner) Scan(sc *ScanContext) ([]Finding, error) {
	return scanLines(sc, func(line string) (string, bool) {
		normalized := normalizePasswordLine(line)
		if !strings.Contains(normalized, "PASSWORD=") || strings.Contains(normalized, "&PASSWORD") {
			return "", false
		}
		return redactPassword(normalized, s.redact), true
	})
}

// normalizePasswordLine removes all whitespace and upper-cases the line.
func normalizePasswordLine(line string) string {
	var b strings.Builder
	b.Grow(len(line))
	for _, r := range line {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

type dateScanner struct {
	re *regexp.Regexp
}

func (dateScanner) Name() string { return "find_date" }

func (dateScanner) Enabled(*config.Config) bool { return true }

func (s dateScanner) Scan(sc *ScanContext) ([]Finding, error) {
	return scanLines(sc, func(line string) (string, bool) {
		return line, s.re.MatchString(line)
	})
}

// fileNameScanner reports lines that mention a known file name. The payload
// text is the line itself; at most one finding per line.
type fileNameScanner struct {
	matcher prefilter.NameMatcher
}

func (fileNameScanner) Name() string { return "find_file_name" }

func (s fileNameScanner) Enabled(*config.Config) bool {
	return s.matcher != nil && len(s.matcher.Names()) > 0
}

func (s fileNameScanner) Scan(sc *ScanContext) ([]Finding, error) {
	return scanLines(sc, func(line string) (string, bool) {
		_, ok := s.matcher.FirstMatch(line)
		return line, ok
	})
}
