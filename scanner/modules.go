package scanner

import (
	"fmt"
	"regexp"

	"sasaudit/config"
	"sasaudit/scanerr"
	"sasaudit/scanner/prefilter"
)

// Scanner inspects one file and reports findings. Implementations are
// registered at build time in buildScanners and run in that order.
type Scanner interface {
	Name() string
	Enabled(cfg *config.Config) bool
	Scan(sc *ScanContext) ([]Finding, error)
}

const (
	sqlBlockPattern = `(?s)PROC\s+SQL.*?QUIT;`
	datePattern     = `\b\d{4}-\d{2}-\d{2}\b`
)

type patterns struct {
	sqlBlock *regexp.Regexp
	date     *regexp.Regexp
}

var patternSources = []struct {
	name   string
	source string
	dst    func(p *patterns) **regexp.Regexp
}{
	{"sql_block", sqlBlockPattern, func(p *patterns) **regexp.Regexp { return &p.sqlBlock }},
	{"date", datePattern, func(p *patterns) **regexp.Regexp { return &p.date }},
}

func compilePatterns() (*patterns, error) {
	p := &patterns{}
	for _, src := range patternSources {
		re, err := regexp.Compile(src.source)
		if err != nil {
			return nil, fmt.Errorf("compile %s pattern: %v: %w", src.name, err, scanerr.ErrPattern)
		}
		*src.dst(p) = re
	}
	return p, nil
}

// NewDefaultScanners compiles the built-in patterns and returns every scanner
// in registration order. knownNames feeds find_file_name.
func NewDefaultScanners(cfg *config.Config, knownNames []string) ([]Scanner, error) {
	p, err := compilePatterns()
	if err != nil {
		return nil, err
	}
	return buildScanners(cfg, p, prefilter.BuildNameMatcher(knownNames)), nil
}

func buildScanners(cfg *config.Config, p *patterns, names prefilter.NameMatcher) []Scanner {
	return []Scanner{
		lineCountScanner{},
		sqlCountScanner{re: p.sqlBlock},
		sqlBlockScanner{},
		libnameScanner{},
		passwordScanner{redact: cfg.RedactPasswords},
		substringCountScanner{name: "export_count", needle: "EXPORT"},
		substringCountScanner{name: "null_count", needle: "_NULL_"},
		dateScanner{re: p.date},
		fileNameScanner{matcher: names},
		contentHashScanner{algorithms: cfg.HashAlgorithms},
	}
}

// ScannerNames lists the names of the scanners that are enabled for cfg.
func ScannerNames(scanners []Scanner, cfg *config.Config) []string {
	names := make([]string, 0, len(scanners))
	for _, s := range scanners {
		if s.Enabled(cfg) {
			names = append(names, s.Name())
		}
	}
	return names
}
