package scanner

import (
	"sasaudit/config"
	"sasaudit/hasher"
)

// contentHashScanner reports one digest per configured algorithm.
type contentHashScanner struct {
	algorithms []string
}

func (contentHashScanner) Name() string { return "content_hash" }

func (s contentHashScanner) Enabled(*config.Config) bool { return len(s.algorithms) > 0 }

func (s contentHashScanner) Scan(sc *ScanContext) ([]Finding, error) {
	content, err := sc.Bytes()
	if err != nil {
		return nil, err
	}
	digests, err := hasher.ComputeDigests(content, s.algorithms)
	if err != nil {
		return nil, err
	}
	findings := make([]Finding, 0, len(digests))
	for _, d := range digests {
		findings = append(findings, Finding{Payload: d.String()})
	}
	return findings, nil
}
