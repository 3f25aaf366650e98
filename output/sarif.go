package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/owenrumney/go-sarif/v2/sarif"
)

const sarifInformationURI = "https://github.com/sasaudit/sasaudit"

// sarifRules describes the scanners that report line positions. Aggregate
// scanners have no location and are not exported.
var sarifRules = map[string]struct {
	description string
	level       string
}{
	"get_sql":        {"PROC SQL block", "note"},
	"get_libname":    {"LIBNAME statement", "note"},
	"get_password":   {"Hard-coded password", "error"},
	"find_date":      {"Hard-coded ISO date", "note"},
	"find_file_name": {"Reference to a known file name", "note"},
}

type sarifReport struct {
	root  string
	run   *sarif.Run
	rules map[string]bool
}

func newSarifReport(root string) *sarifReport {
	return &sarifReport{
		root:  root,
		run:   sarif.NewRunWithInformationURI("sasaudit", sarifInformationURI),
		rules: make(map[string]bool),
	}
}

func (r *sarifReport) add(d Detail) {
	if r == nil || d.Line <= 0 {
		return
	}
	meta, ok := sarifRules[d.Scanner]
	if !ok {
		return
	}
	if !r.rules[d.Scanner] {
		r.run.AddRule(d.Scanner).
			WithDescription(meta.description).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: meta.level})
		r.rules[d.Scanner] = true
	}

	location := sarif.NewLocation().WithPhysicalLocation(
		sarif.NewPhysicalLocation().
			WithArtifactLocation(sarif.NewArtifactLocation().WithUri(r.artifactURI(d.Path))).
			WithRegion(sarif.NewRegion().WithStartLine(d.Line)),
	)
	result := sarif.NewRuleResult(d.Scanner).
		WithMessage(sarif.NewTextMessage(d.Payload)).
		WithLevel(meta.level).
		WithLocations([]*sarif.Location{location})
	r.run.AddResult(result)
}

func (r *sarifReport) artifactURI(path string) string {
	if rel, err := filepath.Rel(r.root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}

func (r *sarifReport) writeFile(path string) error {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return fmt.Errorf("create SARIF report: %w", err)
	}
	report.AddRun(r.run)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("write SARIF report: %w", err)
	}
	defer f.Close()
	return report.PrettyWrite(f)
}
