package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"sasaudit/config"
	"sasaudit/logger"
	"sasaudit/output"
	"sasaudit/scanerr"
	"sasaudit/utils"

	"github.com/schollz/progressbar/v3"
)

// ReportSink receives summary rows before any scanning starts and detail
// rows in scan order.
type ReportSink interface {
	WriteSummary(output.Summary) error
	WriteDetail(output.Detail) error
}

// reportPather is implemented by sinks that write report files. Those files
// are left out of discovery.
type reportPather interface {
	Paths() output.Paths
}

// ScanFiles discovers every file under cfg.InputDir, writes one summary row
// per file, then runs the scanners over each file in traversal order.
// Per-file scanner failures are logged and counted; traversal and sink
// failures abort the run.
func ScanFiles(ctx context.Context, cfg *config.Config, metrics *output.Metrics, sink ReportSink) error {
	if metrics.ScannerFindings == nil {
		metrics.ScannerFindings = make(map[string]int)
	}
	if metrics.StartTime.IsZero() {
		metrics.StartTime = time.Now()
	}
	defer func() { metrics.EndTime = time.Now() }()

	matcher := utils.NewPatternMatcher(cfg.IncludePatterns, cfg.ExcludePatterns)
	logger.Infof("Discovering files in %s", cfg.InputDir)
	var reports reportSet
	if rp, ok := sink.(reportPather); ok {
		reports = newReportSet(rp.Paths().Files())
	}
	records, err := discoverFiles(ctx, lexicalWalker{}, cfg, matcher, reports)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("walk %s: %w", cfg.InputDir, err)
	}
	metrics.FilesDiscovered = len(records)
	logger.Infof("Total files to scan: %d", len(records))

	for _, rec := range records {
		if err := sink.WriteSummary(rec.Summary()); err != nil {
			return err
		}
	}

	scanners, err := NewDefaultScanners(cfg, knownFileNames(cfg, records))
	if err != nil {
		return err
	}
	metrics.Scanners = ScannerNames(scanners, cfg)
	logger.Debugf("Enabled scanners: %v", metrics.Scanners)
	runner := NewRunner(cfg, scanners)

	bar := progressbar.NewOptions(len(records),
		progressbar.OptionSetDescription("Scanning files"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetVisibility(cfg.ShowProgress),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionFullWidth(),
	)
	defer func() { _ = bar.Finish() }()

	for _, rec := range records {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		findings, scanErrs := runner.Run(ctx, rec)
		path := rec.Path()
		for _, f := range findings {
			if err := sink.WriteDetail(f.Detail(path)); err != nil {
				return err
			}
			metrics.ScannerFindings[f.Scanner]++
		}
		metrics.Findings += len(findings)
		metrics.ScanErrors += len(scanErrs)
		for _, se := range scanErrs {
			if errors.Is(se, scanerr.ErrEncoding) {
				metrics.EncodingErrors++
			}
		}
		metrics.FilesScanned++
		_ = bar.Add(1)
	}
	return nil
}

func knownFileNames(cfg *config.Config, records []FileRecord) []string {
	names := append([]string(nil), cfg.FileNames...)
	if cfg.CrossReference {
		for _, rec := range records {
			names = append(names, rec.Name)
		}
	}
	return names
}
