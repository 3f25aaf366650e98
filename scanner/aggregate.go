package scanner

import (
	"regexp"
	"strconv"
	"strings"

	"sasaudit/config"
)

func countFinding(n int) []Finding {
	return []Finding{{Payload: strconv.Itoa(n)}}
}

type lineCountScanner struct{}

func (lineCountScanner) Name() string { return "line_count" }

func (lineCountScanner) Enabled(*config.Config) bool { return true }

// Scan counts lines on the raw bytes so binary and non-UTF-8 files still
// get a count.
func (lineCountScanner) Scan(sc *ScanContext) ([]Finding, error) {
	content, err := sc.Bytes()
	if err != nil {
		return nil, err
	}
	return countFinding(countLines(content)), nil
}

type sqlCountScanner struct {
	re *regexp.Regexp
}

func (sqlCountScanner) Name() string { return "sql_count" }

func (sqlCountScanner) Enabled(*config.Config) bool { return true }

func (s sqlCountScanner) Scan(sc *ScanContext) ([]Finding, error) {
	text, err := sc.Text()
	if err != nil {
		return nil, err
	}
	return countFinding(len(s.re.FindAllStringIndex(strings.ToUpper(text), -1))), nil
}

// substringCountScanner counts non-overlapping occurrences of needle in the
// upper-cased content.
type substringCountScanner struct {
	name   string
	needle string
}

func (s substringCountScanner) Name() string { return s.name }

func (substringCountScanner) Enabled(*config.Config) bool { return true }

func (s substringCountScanner) Scan(sc *ScanContext) ([]Finding, error) {
	text, err := sc.Text()
	if err != nil {
		return nil, err
	}
	return countFinding(strings.Count(strings.ToUpper(text), s.needle)), nil
}
