package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sasaudit/scanerr"

	"github.com/spf13/pflag"
)

func newTestLoader(t *testing.T, args ...string) *Loader {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	l := NewLoader(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse: %v", err)
	}
	return l
}

func TestParseCommaSeparated(t *testing.T) {
	res := parseCommaSeparated("a,b , c,,")
	if len(res) != 3 || res[1] != "b" {
		t.Fatalf("unexpected result: %v", res)
	}
	if res := parseCommaSeparated(""); len(res) != 0 {
		t.Fatalf("expected empty slice")
	}
}

func TestParseHeaders(t *testing.T) {
	res := parseHeaders("a=1, b = 2 ,broken,=x")
	if len(res) != 2 || res["a"] != "1" || res["b"] != "2" {
		t.Fatalf("unexpected headers: %v", res)
	}
}

func TestLoadShortFlags(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	cfg, err := newTestLoader(t, "-i", in, "-o", out).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.InputDir != in || cfg.OutputDir != out {
		t.Fatalf("unexpected dirs: %+v", cfg)
	}
	if cfg.LogLevel != "info" || cfg.ContentReadMode != "auto" || !cfg.ShowProgress {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadMissingInputIsNotFound(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	_, err := newTestLoader(t, "--input", missing, "--output", t.TempDir()).Load()
	if !errors.Is(err, scanerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadMissingOutputIsNotFound(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	_, err := newTestLoader(t, "--input", t.TempDir(), "--output", missing).Load()
	if !errors.Is(err, scanerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadRequiresDirs(t *testing.T) {
	_, err := newTestLoader(t).Load()
	if !errors.Is(err, scanerr.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	path := filepath.Join(t.TempDir(), "sasaudit.yaml")
	content := "input_dir: " + in + "\noutput_dir: " + out + "\nlog_level: debug\nhash_algorithms: [XXHASH64, sha256]\notel_timeout: 2s\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := newTestLoader(t, "--config", path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.InputDir != in {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if len(cfg.HashAlgorithms) != 2 || cfg.HashAlgorithms[0] != "xxhash64" {
		t.Fatalf("unexpected algorithms: %v", cfg.HashAlgorithms)
	}
	if cfg.OtelTimeout != 2*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.OtelTimeout)
	}
}

func TestLoadFromJSONFile(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	path := filepath.Join(t.TempDir(), "cfg.json")
	content := `{"input_dir":"` + in + `","output_dir":"` + out + `","sarif":true}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := Default()
	if err := cfg.loadFromFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Sarif || cfg.OutputDir != out {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestPrecedenceFlagOverEnvOverFile(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	path := filepath.Join(t.TempDir(), "cfg.yml")
	if err := os.WriteFile(path, []byte("log_level: error\nfallback_encoding: latin1\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("SASAUDIT_LOG_LEVEL", "warn")
	t.Setenv("SASAUDIT_FALLBACK_ENCODING", "windows-1252")

	cfg, err := newTestLoader(t, "-i", in, "-o", out, "--config", path, "--log-level", "debug").Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("flag should win, got %s", cfg.LogLevel)
	}
	if cfg.FallbackEncoding != "windows-1252" {
		t.Fatalf("env should beat file, got %s", cfg.FallbackEncoding)
	}
}

func TestDisableProgressEnv(t *testing.T) {
	t.Setenv("SASAUDIT_DISABLE_PROGRESS", "yes")
	cfg, err := newTestLoader(t, "-i", t.TempDir(), "-o", t.TempDir()).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ShowProgress {
		t.Fatal("expected progress disabled")
	}
}

func TestFileListIsRead(t *testing.T) {
	list := filepath.Join(t.TempDir(), "names.txt")
	if err := os.WriteFile(list, []byte("# known\nclaims.sas\n\n  members.csv \n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := newTestLoader(t, "-i", t.TempDir(), "-o", t.TempDir(), "--file-list", list).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.FileNames) != 2 || cfg.FileNames[1] != "members.csv" {
		t.Fatalf("unexpected names: %v", cfg.FileNames)
	}
}

func TestValidate(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	base := func() *Config {
		cfg := Default()
		cfg.InputDir, cfg.OutputDir = in, out
		return cfg
	}

	cfg := base()
	if err := cfg.validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg = base()
	cfg.LogLevel = "bad"
	if err := cfg.validate(); err == nil {
		t.Fatal("expected invalid log level")
	}
	cfg = base()
	cfg.ContentReadMode = "bad"
	if err := cfg.validate(); err == nil {
		t.Fatal("expected invalid read mode")
	}
	cfg = base()
	cfg.FallbackEncoding = "ebcdic"
	if err := cfg.validate(); err == nil {
		t.Fatal("expected invalid fallback encoding")
	}
	cfg = base()
	cfg.RedactPasswords = "shred"
	if err := cfg.validate(); err == nil {
		t.Fatal("expected invalid redact mode")
	}
	cfg = base()
	cfg.HashAlgorithms = []string{"md5"}
	if err := cfg.validate(); err == nil {
		t.Fatal("expected unsupported hash")
	}
	cfg = base()
	cfg.OtelEndpoint = "collector:4318"
	if err := cfg.validate(); err == nil {
		t.Fatal("expected missing scheme error")
	}
	cfg = base()
	cfg.OutputDir = filepath.Join(out, "file.txt")
	if err := os.WriteFile(cfg.OutputDir, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := cfg.validate(); !errors.Is(err, scanerr.ErrNotFound) {
		t.Fatalf("expected not-a-directory error, got %v", err)
	}
}
