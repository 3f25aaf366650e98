package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"sasaudit/config"
	"sasaudit/logger"
	"sasaudit/output"
	"sasaudit/scanner/prefilter"

	"github.com/google/uuid"
)

func init() {
	logger.Init("error")
}

func testConfig(in, out string) *config.Config {
	cfg := config.Default()
	cfg.InputDir = in
	cfg.OutputDir = out
	cfg.ShowProgress = false
	return cfg
}

func recordFor(t *testing.T, path string) FileRecord {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	return FileRecord{
		ID:         uuid.NewString(),
		Name:       filepath.Base(path),
		Directory:  filepath.Dir(path),
		CreatedAt:  info.ModTime(),
		ModifiedAt: info.ModTime(),
		SizeBytes:  info.Size(),
	}
}

// contextFor writes content to a temp file and returns a fresh ScanContext.
func contextFor(t *testing.T, content string) *ScanContext {
	t.Helper()
	path := writeTemp(t, "input.sas", []byte(content))
	return newScanContext(context.Background(), recordFor(t, path), testConfig(filepath.Dir(path), t.TempDir()), nil)
}

func payloads(findings []Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Payload)
	}
	return out
}

type memSink struct {
	summaries []output.Summary
	details   []output.Detail
}

func (s *memSink) WriteSummary(row output.Summary) error {
	s.summaries = append(s.summaries, row)
	return nil
}

func (s *memSink) WriteDetail(row output.Detail) error {
	s.details = append(s.details, row)
	return nil
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func prefilterMatcher(names ...string) prefilter.NameMatcher {
	return prefilter.BuildNameMatcher(names)
}
