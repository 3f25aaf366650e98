package output

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"sasaudit/config"
	"sasaudit/logger"
)

const (
	SchemaVersion = "1.0.0"

	reportTimeLayout = "20060102150405"
	rowTimeLayout    = "2006-01-02 15:04:05"
)

var (
	summaryHeader = []string{"uuid", "file_nm", "file_dir", "create_dt", "modify_dt", "size_bytes"}
	detailHeader  = []string{"uuid", "func_nm", "result"}
)

// Summary is one row of the summary report.
type Summary struct {
	ID         string
	Name       string
	Directory  string
	CreatedAt  time.Time
	ModifiedAt time.Time
	SizeBytes  int64
}

func (s Summary) row() []string {
	return []string{
		s.ID,
		s.Name,
		s.Directory,
		FormatTimestamp(s.CreatedAt),
		FormatTimestamp(s.ModifiedAt),
		strconv.FormatInt(s.SizeBytes, 10),
	}
}

// Detail is one finding. Only FileID, Scanner and Payload reach the CSV
// report; Line and Path feed the SARIF and OTEL sinks.
type Detail struct {
	FileID  string
	Scanner string
	Payload string
	Line    int
	Path    string
}

type Metrics struct {
	StartTime       time.Time      `json:"start_time"`
	EndTime         time.Time      `json:"end_time"`
	FilesDiscovered int            `json:"files_discovered"`
	FilesScanned    int            `json:"files_scanned"`
	Findings        int            `json:"findings"`
	ScanErrors      int            `json:"scan_errors"`
	EncodingErrors  int            `json:"encoding_errors"`
	ScannerFindings map[string]int `json:"scanner_findings"`

	// Scanners lists the enabled scanners in registration order.
	Scanners []string `json:"scanners"`
}

func (m *Metrics) Elapsed() time.Duration {
	if m.StartTime.IsZero() || m.EndTime.IsZero() {
		return 0
	}
	return m.EndTime.Sub(m.StartTime)
}

func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(rowTimeLayout)
}

// Paths names the report files of one run.
type Paths struct {
	Summary string
	Detail  string
	Sarif   string
}

func NewPaths(dir string, now time.Time) Paths {
	ts := now.Format(reportTimeLayout)
	return Paths{
		Summary: filepath.Join(dir, "summary_"+ts+".csv"),
		Detail:  filepath.Join(dir, "detail_"+ts+".csv"),
		Sarif:   filepath.Join(dir, "findings_"+ts+".sarif"),
	}
}

// Files lists the paths of every report the run may create.
func (p Paths) Files() []string {
	return []string{p.Summary, p.Detail, p.Sarif}
}

type csvFile struct {
	file *os.File
	buf  *bufio.Writer
	csvw *csv.Writer
}

func createCSV(path string, header []string) (*csvFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriterSize(f, 256*1024)
	c := &csvFile{file: f, buf: buf, csvw: csv.NewWriter(buf)}
	if err := c.csvw.Write(header); err != nil {
		_ = f.Close()
		return nil, err
	}
	return c, nil
}

func (c *csvFile) write(row []string) error {
	return c.csvw.Write(row)
}

func (c *csvFile) flush() error {
	c.csvw.Flush()
	if err := c.csvw.Error(); err != nil {
		return err
	}
	return c.buf.Flush()
}

func (c *csvFile) close() error {
	flushErr := c.flush()
	_ = c.file.Sync()
	closeErr := c.file.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// Writer writes the summary and detail reports and forwards every row to
// the optional SARIF and OTEL sinks.
type Writer struct {
	mu      sync.Mutex
	paths   Paths
	summary *csvFile
	detail  *csvFile
	sarif   *sarifReport
	otel    *otelLogger
	metrics *Metrics
	closed  bool
}

func New(cfg *config.Config, m *Metrics, now time.Time) (*Writer, error) {
	paths := NewPaths(cfg.OutputDir, now)
	summary, err := createCSV(paths.Summary, summaryHeader)
	if err != nil {
		return nil, fmt.Errorf("create summary report: %w", err)
	}
	detail, err := createCSV(paths.Detail, detailHeader)
	if err != nil {
		_ = summary.close()
		return nil, fmt.Errorf("create detail report: %w", err)
	}

	w := &Writer{
		paths:   paths,
		summary: summary,
		detail:  detail,
		metrics: m,
	}
	if cfg.Sarif {
		w.sarif = newSarifReport(cfg.InputDir)
	} else {
		w.paths.Sarif = ""
	}
	otel, err := newOtelLogger(cfg)
	if err != nil {
		logger.Warnf("OTEL export disabled: %v", err)
	} else {
		w.otel = otel
	}
	return w, nil
}

func (w *Writer) Paths() Paths {
	return w.paths
}

func (w *Writer) WriteSummary(s Summary) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.summary.write(s.row()); err != nil {
		return fmt.Errorf("write summary row: %w", err)
	}
	w.otel.EmitSummary(s)
	return nil
}

func (w *Writer) WriteDetail(d Detail) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.detail.write([]string{d.FileID, d.Scanner, d.Payload}); err != nil {
		return fmt.Errorf("write detail row: %w", err)
	}
	w.sarif.add(d)
	w.otel.EmitDetail(d)
	return nil
}

// Flush pushes buffered rows to disk. Rows written so far survive a
// cancelled run.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.summary.flush(); err != nil {
		return err
	}
	return w.detail.flush()
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	record(w.summary.close())
	record(w.detail.close())
	if w.sarif != nil {
		record(w.sarif.writeFile(w.paths.Sarif))
	}
	if w.metrics != nil {
		w.otel.EmitMetrics(*w.metrics)
	}
	w.otel.Shutdown()
	return firstErr
}
