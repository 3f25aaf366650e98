package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sasaudit/config"
	"sasaudit/logger"
	"sasaudit/scanerr"

	"golang.org/x/time/rate"
)

const encodingMarkerPrefix = "ERROR(encoding): "

// Runner applies the registered scanners to one file at a time.
type Runner struct {
	cfg      *config.Config
	scanners []Scanner
	limiter  *rate.Limiter
}

func NewRunner(cfg *config.Config, scanners []Scanner) *Runner {
	var limiter *rate.Limiter
	if cfg.MaxIOPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxIOPerSecond), cfg.MaxIOPerSecond)
	}
	return &Runner{cfg: cfg, scanners: scanners, limiter: limiter}
}

// Run scans rec with every enabled scanner in order. Per-scanner failures
// are returned as ScanErrors and never stop the remaining scanners. A
// scanner that hits undecodable content contributes a marker finding.
func (r *Runner) Run(ctx context.Context, rec FileRecord) ([]Finding, []*scanerr.ScanError) {
	sc := newScanContext(ctx, rec, r.cfg, r.limiter)
	var (
		findings []Finding
		errs     []*scanerr.ScanError
	)
	for _, s := range r.scanners {
		if !s.Enabled(r.cfg) {
			continue
		}
		out, err := s.Scan(sc)
		if err != nil {
			scanErr := newScanError(rec, s.Name(), err)
			errs = append(errs, scanErr)
			logger.WithFields(logger.Fields{
				"file":    rec.Path(),
				"scanner": s.Name(),
			}).Warnf("Scan failed: %v", err)
			if errors.Is(err, scanerr.ErrEncoding) {
				findings = append(findings, Finding{
					FileID:  rec.ID,
					Scanner: s.Name(),
					Payload: encodingMarkerPrefix + errorDetail(err),
				})
			}
			continue
		}
		for _, f := range out {
			f.FileID = rec.ID
			f.Scanner = s.Name()
			findings = append(findings, f)
		}
	}
	return findings, errs
}

func newScanError(rec FileRecord, name string, err error) *scanerr.ScanError {
	kind := scanerr.Kind(err)
	if kind == nil {
		kind = scanerr.ErrIO
	}
	return &scanerr.ScanError{
		Path:    rec.Path(),
		FileID:  rec.ID,
		Scanner: name,
		Kind:    kind,
		Err:     err,
	}
}

// errorDetail drops the trailing kind text that %w wrapping appends.
func errorDetail(err error) string {
	msg := err.Error()
	if kind := scanerr.Kind(err); kind != nil {
		msg = strings.TrimSuffix(msg, fmt.Sprintf(": %v", kind))
	}
	return msg
}
