package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sasaudit/config"
	"sasaudit/logger"
	"sasaudit/output"
	"sasaudit/scanerr"
	"sasaudit/scanner"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(scanerr.ExitCodeForError(err))
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sasaudit -i <input dir> -o <output dir>",
		Short: "Audit a tree of SAS programs and write summary and detail CSV reports",
		Long: `sasaudit walks the input directory, records metadata for every file and
runs a fixed set of content scanners over each one: line counts, PROC SQL
blocks, LIBNAME statements, hard-coded passwords, EXPORT and _NULL_ usage,
ISO dates and optional file-name cross references and digests.

Two reports are written to the output directory:
  summary_<timestamp>.csv  one row per file
  detail_<timestamp>.csv   one row per finding`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	loader := config.NewLoader(cmd.Flags())
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := loader.Load()
		if err != nil {
			return err
		}
		logger.Init(cfg.LogLevel)
		return run(cmd.Context(), cfg, stdout)
	}
	return cmd
}

func run(parent context.Context, cfg *config.Config, stdout io.Writer) error {
	if parent == nil {
		parent = context.Background()
	}
	if cfg.RedactPasswords == "" {
		logger.Debug("Password findings are stored unredacted. Use --redact-passwords mask or hash to change this.")
	}

	metrics := &output.Metrics{StartTime: time.Now()}
	writer, err := output.New(cfg, metrics, metrics.StartTime)
	if err != nil {
		return fmt.Errorf("failed to initialize output: %w", err)
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	go handleSignals(ctx, cancel)

	scanErr := scanner.ScanFiles(ctx, cfg, metrics, writer)
	closeErr := writer.Close()
	if scanErr != nil {
		if errors.Is(scanErr, context.Canceled) {
			logger.Warnf("Scan interrupted after %d of %d files; partial reports kept", metrics.FilesScanned, metrics.FilesDiscovered)
		}
		return fmt.Errorf("scanning failed: %w", scanErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to finalize reports: %w", closeErr)
	}

	paths := writer.Paths()
	logger.WithFields(logger.Fields{
		"summary": paths.Summary,
		"detail":  paths.Detail,
	}).Info("Scanning completed successfully.")
	if paths.Sarif != "" {
		logger.Infof("SARIF report written to %s", paths.Sarif)
	}
	return output.RenderSummary(stdout, metrics)
}

func handleSignals(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	handleSignalEvent(ctx, cancel, sigChan)
}

func handleSignalEvent(ctx context.Context, cancel context.CancelFunc, sigChan <-chan os.Signal) {
	select {
	case <-sigChan:
		logger.Info("Interrupt signal received. Shutting down...")
		cancel()
	case <-ctx.Done():
	}
}
