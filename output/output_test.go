package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sasaudit/config"
	"sasaudit/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.Init("error")
}

var runTime = time.Date(2024, 3, 1, 12, 30, 5, 0, time.UTC)

func newTestWriter(t *testing.T, mutate func(cfg *config.Config)) (*Writer, *config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.InputDir = t.TempDir()
	cfg.OutputDir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}
	w, err := New(cfg, &Metrics{}, runTime)
	require.NoError(t, err)
	return w, cfg
}

func TestNewPaths(t *testing.T) {
	p := NewPaths("/out", runTime)
	assert.Equal(t, filepath.Join("/out", "summary_20240301123005.csv"), p.Summary)
	assert.Equal(t, filepath.Join("/out", "detail_20240301123005.csv"), p.Detail)
	assert.Equal(t, filepath.Join("/out", "findings_20240301123005.sarif"), p.Sarif)
}

func TestFormatTimestamp(t *testing.T) {
	loc := time.FixedZone("X", 2*3600)
	assert.Equal(t, "2024-03-01 10:30:05", FormatTimestamp(time.Date(2024, 3, 1, 12, 30, 5, 0, loc)))
	assert.Equal(t, "", FormatTimestamp(time.Time{}))
}

func TestWriterSummaryReport(t *testing.T) {
	w, _ := newTestWriter(t, nil)
	require.NoError(t, w.WriteSummary(Summary{
		ID:         "id-1",
		Name:       "a,b.sas",
		Directory:  "/data/jobs",
		CreatedAt:  runTime,
		ModifiedAt: runTime.Add(time.Hour),
		SizeBytes:  42,
	}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(w.Paths().Summary)
	require.NoError(t, err)
	assert.Equal(t,
		"uuid,file_nm,file_dir,create_dt,modify_dt,size_bytes\n"+
			"id-1,\"a,b.sas\",/data/jobs,2024-03-01 12:30:05,2024-03-01 13:30:05,42\n",
		string(data))
}

func TestDetailRoundTrip(t *testing.T) {
	w, _ := newTestWriter(t, nil)
	rows := []Detail{
		{FileID: "id-1", Scanner: "line_count", Payload: "12"},
		{FileID: "id-1", Scanner: "get_sql", Payload: "(2, proc sql;\n  select a, b\n  from \"t\";\nquit;)", Line: 2},
		{FileID: "id-2", Scanner: "get_password", Payload: "(1, PASSWORD=\"X,Y\";)", Line: 1},
		{FileID: "id-2", Scanner: "find_date", Payload: ""},
		{FileID: "id-3", Scanner: "get_libname", Payload: "(4, libname a '/x';\r)", Line: 4},
		{FileID: "id-3", Scanner: "get_sql", Payload: "(5, proc sql; \r select 1;\nquit;)", Line: 5},
	}
	for _, r := range rows {
		require.NoError(t, w.WriteDetail(r))
	}
	require.NoError(t, w.Close())

	got, err := ReadDetail(w.Paths().Detail)
	require.NoError(t, err)
	require.Len(t, got, len(rows))
	for i := range rows {
		assert.Equal(t, rows[i].FileID, got[i].FileID)
		assert.Equal(t, rows[i].Scanner, got[i].Scanner)
		assert.Equal(t, rows[i].Payload, got[i].Payload)
	}
}

func TestReadDetailRejectsForeignHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b,c\n1,2,3\n"), 0o600))
	_, err := ReadDetail(path)
	assert.Error(t, err)
}

func TestFlushMakesRowsVisible(t *testing.T) {
	w, _ := newTestWriter(t, nil)
	require.NoError(t, w.WriteDetail(Detail{FileID: "id", Scanner: "line_count", Payload: "1"}))
	require.NoError(t, w.Flush())

	got, err := ReadDetail(w.Paths().Detail)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

type sarifDoc struct {
	Version string `json:"version"`
	Runs    []struct {
		Tool struct {
			Driver struct {
				Name  string `json:"name"`
				Rules []struct {
					ID string `json:"id"`
				} `json:"rules"`
			} `json:"driver"`
		} `json:"tool"`
		Results []struct {
			RuleID    string `json:"ruleId"`
			Level     string `json:"level"`
			Locations []struct {
				PhysicalLocation struct {
					ArtifactLocation struct {
						URI string `json:"uri"`
					} `json:"artifactLocation"`
					Region struct {
						StartLine int `json:"startLine"`
					} `json:"region"`
				} `json:"physicalLocation"`
			} `json:"locations"`
		} `json:"results"`
	} `json:"runs"`
}

func TestSarifReport(t *testing.T) {
	w, cfg := newTestWriter(t, func(cfg *config.Config) { cfg.Sarif = true })
	path := filepath.Join(cfg.InputDir, "jobs", "load.sas")
	details := []Detail{
		{FileID: "id", Scanner: "line_count", Payload: "9", Path: path},
		{FileID: "id", Scanner: "get_password", Payload: "(3, PASSWORD=X;)", Line: 3, Path: path},
		{FileID: "id", Scanner: "find_date", Payload: "(5, 2024-01-01)", Line: 5, Path: path},
		{FileID: "id", Scanner: "find_date", Payload: "(7, 2024-01-02)", Line: 7, Path: path},
		{FileID: "id", Scanner: "get_sql", Payload: "ERROR(encoding): binary content (NUL byte)", Path: path},
	}
	for _, d := range details {
		require.NoError(t, w.WriteDetail(d))
	}
	require.NoError(t, w.Close())

	data, err := os.ReadFile(w.Paths().Sarif)
	require.NoError(t, err)
	var doc sarifDoc
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "2.1.0", doc.Version)
	require.Len(t, doc.Runs, 1)
	run := doc.Runs[0]
	assert.Equal(t, "sasaudit", run.Tool.Driver.Name)
	require.Len(t, run.Tool.Driver.Rules, 2)
	require.Len(t, run.Results, 3)
	assert.Equal(t, "get_password", run.Results[0].RuleID)
	assert.Equal(t, "error", run.Results[0].Level)
	loc := run.Results[0].Locations[0].PhysicalLocation
	assert.Equal(t, "jobs/load.sas", loc.ArtifactLocation.URI)
	assert.Equal(t, 3, loc.Region.StartLine)
}

func TestSarifDisabled(t *testing.T) {
	w, _ := newTestWriter(t, nil)
	assert.Empty(t, w.Paths().Sarif)
	require.NoError(t, w.Close())
}

func TestRenderSummary(t *testing.T) {
	m := &Metrics{
		StartTime:       runTime,
		EndTime:         runTime.Add(1500 * time.Millisecond),
		FilesDiscovered: 3,
		FilesScanned:    3,
		Findings:        7,
		ScanErrors:      1,
		EncodingErrors:  1,
		ScannerFindings: map[string]int{"line_count": 3, "get_sql": 4},
		Scanners:        []string{"line_count", "get_sql", "find_date"},
	}
	var buf bytes.Buffer
	require.NoError(t, RenderSummary(&buf, m))

	out := buf.String()
	assert.Contains(t, out, "line_count")
	assert.Contains(t, out, "find_date")
	assert.Contains(t, out, "Files: 3 discovered, 3 scanned | Findings: 7 | Scan errors: 1 (1 encoding)")
	assert.True(t, strings.HasSuffix(out, "Total time elapsed: 1.5s\n"), out)
}

func TestMetricsElapsed(t *testing.T) {
	m := &Metrics{StartTime: runTime}
	assert.Zero(t, m.Elapsed())
	m.EndTime = runTime.Add(time.Second)
	assert.Equal(t, time.Second, m.Elapsed())
}
