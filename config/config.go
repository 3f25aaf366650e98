package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sasaudit/scanerr"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const envPrefix = "SASAUDIT_"

type Config struct {
	InputDir           string            `json:"input_dir" yaml:"input_dir"`
	OutputDir          string            `json:"output_dir" yaml:"output_dir"`
	ConfigFile         string            `json:"-" yaml:"-"`
	LogLevel           string            `json:"log_level" yaml:"log_level"`
	IncludePatterns    []string          `json:"include_patterns" yaml:"include_patterns"`
	ExcludePatterns    []string          `json:"exclude_patterns" yaml:"exclude_patterns"`
	MaxFileSize        int64             `json:"max_file_size" yaml:"max_file_size"`
	MaxIOPerSecond     int               `json:"max_io_per_second" yaml:"max_io_per_second"`
	ContentReadMode    string            `json:"content_read_mode" yaml:"content_read_mode"`
	MmapMinSize        int64             `json:"mmap_min_size" yaml:"mmap_min_size"`
	StreamChunkSize    int               `json:"stream_chunk_size" yaml:"stream_chunk_size"`
	FallbackEncoding   string            `json:"fallback_encoding" yaml:"fallback_encoding"`
	FileListPath       string            `json:"file_list" yaml:"file_list"`
	CrossReference     bool              `json:"cross_reference" yaml:"cross_reference"`
	HashAlgorithms     []string          `json:"hash_algorithms" yaml:"hash_algorithms"`
	RedactPasswords    string            `json:"redact_passwords" yaml:"redact_passwords"`
	Sarif              bool              `json:"sarif" yaml:"sarif"`
	ShowProgress       bool              `json:"show_progress" yaml:"show_progress"`
	OtelEndpoint       string            `json:"otel_endpoint" yaml:"otel_endpoint"`
	OtelFromEnv        bool              `json:"otel_from_env" yaml:"otel_from_env"`
	OtelHeaders        map[string]string `json:"otel_headers" yaml:"otel_headers"`
	OtelServiceName    string            `json:"otel_service_name" yaml:"otel_service_name"`
	OtelTimeout        time.Duration     `json:"otel_timeout" yaml:"otel_timeout"`
	OtelExportPaths    bool              `json:"otel_export_paths" yaml:"otel_export_paths"`
	OtelExportPayloads bool              `json:"otel_export_payloads" yaml:"otel_export_payloads"`

	// FileNames is resolved from FileListPath at load time.
	FileNames []string `json:"-" yaml:"-"`
}

func Default() *Config {
	return &Config{
		LogLevel:        "info",
		IncludePatterns: []string{},
		ExcludePatterns: []string{},
		MaxFileSize:     10 * 1024 * 1024,
		MaxIOPerSecond:  0,
		ContentReadMode: "auto",
		MmapMinSize:     128 * 1024,
		StreamChunkSize: 256 * 1024,
		HashAlgorithms:  []string{},
		ShowProgress:    true,
		OtelHeaders:     map[string]string{},
		OtelServiceName: "sasaudit",
		OtelTimeout:     5 * time.Second,
	}
}

// Loader owns the command line flags and resolves the final Config with the
// precedence flag > environment > config file > default.
type Loader struct {
	fs *pflag.FlagSet

	input              *string
	output             *string
	configFile         *string
	logLevel           *string
	includes           *string
	excludes           *string
	maxFileSize        *int64
	maxIO              *int
	contentReadMode    *string
	mmapMinSize        *int64
	streamChunkSize    *int
	fallbackEncoding   *string
	fileList           *string
	crossReference     *bool
	hashes             *string
	redactPasswords    *string
	sarif              *bool
	noProgress         *bool
	otelEndpoint       *string
	otelFromEnv        *bool
	otelHeaders        *string
	otelServiceName    *string
	otelTimeout        *time.Duration
	otelExportPaths    *bool
	otelExportPayloads *bool
}

func NewLoader(fs *pflag.FlagSet) *Loader {
	d := Default()
	return &Loader{
		fs:                 fs,
		input:              fs.StringP("input", "i", "", "Directory to analyze (required)."),
		output:             fs.StringP("output", "o", "", "Directory where the CSV reports are written (required)."),
		configFile:         fs.String("config", "", "Path to a JSON or YAML configuration file."),
		logLevel:           fs.String("log-level", d.LogLevel, "Log level: debug, info, warn, error, fatal, or panic."),
		includes:           fs.String("include", "", "Comma-separated glob patterns of files to include (default: all)."),
		excludes:           fs.String("exclude", "", "Comma-separated glob patterns of files to exclude."),
		maxFileSize:        fs.Int64("max-file-size", d.MaxFileSize, "Maximum file size in bytes to scan."),
		maxIO:              fs.Int("max-io-per-second", d.MaxIOPerSecond, "Maximum file reads per second (0 means unlimited)."),
		contentReadMode:    fs.String("content-read-mode", d.ContentReadMode, "Content read mode: auto, stream, or mmap."),
		mmapMinSize:        fs.Int64("mmap-min-size", d.MmapMinSize, "Minimum file size in bytes for the mmap read path."),
		streamChunkSize:    fs.Int("stream-chunk-size", d.StreamChunkSize, "Streaming read chunk size in bytes."),
		fallbackEncoding:   fs.String("fallback-encoding", "", "Decode non-UTF-8 files with this charset: latin1 or windows-1252 (default: report an encoding error)."),
		fileList:           fs.String("file-list", "", "File with one known file name per line; lines referencing them are reported."),
		crossReference:     fs.Bool("cross-reference", d.CrossReference, "Report lines referencing the names of other discovered files."),
		hashes:             fs.String("hash-algorithms", "", "Comma-separated content digests to report: xxhash64, blake3, sha256, tlsh."),
		redactPasswords:    fs.String("redact-passwords", "", "Redact password values in findings: mask or hash (default: none)."),
		sarif:              fs.Bool("sarif", d.Sarif, "Also write positional findings as a SARIF report."),
		noProgress:         fs.Bool("no-progress", false, "Disable the progress bar."),
		otelEndpoint:       fs.String("otel-endpoint", "", "OTLP/HTTP logs endpoint for report export (default: none)."),
		otelFromEnv:        fs.Bool("otel-from-env", d.OtelFromEnv, "Allow OTEL endpoint fallback from OTEL environment variables."),
		otelHeaders:        fs.String("otel-headers", "", "Comma-separated OTEL headers (key=value)."),
		otelServiceName:    fs.String("otel-service-name", d.OtelServiceName, "OTEL service name."),
		otelTimeout:        fs.Duration("otel-timeout", d.OtelTimeout, "OTEL export timeout."),
		otelExportPaths:    fs.Bool("otel-export-paths", d.OtelExportPaths, "Include file names and directories in OTEL records."),
		otelExportPayloads: fs.Bool("otel-export-payloads", d.OtelExportPayloads, "Include finding payloads in OTEL records."),
	}
}

func (l *Loader) Load() (*Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfg := Default()
	if *l.configFile != "" {
		cfg.ConfigFile = *l.configFile
		if err := cfg.loadFromFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	l.fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "input":
			cfg.InputDir = *l.input
		case "output":
			cfg.OutputDir = *l.output
		case "log-level":
			cfg.LogLevel = *l.logLevel
		case "include":
			cfg.IncludePatterns = parseCommaSeparated(*l.includes)
		case "exclude":
			cfg.ExcludePatterns = parseCommaSeparated(*l.excludes)
		case "max-file-size":
			cfg.MaxFileSize = *l.maxFileSize
		case "max-io-per-second":
			cfg.MaxIOPerSecond = *l.maxIO
		case "content-read-mode":
			cfg.ContentReadMode = *l.contentReadMode
		case "mmap-min-size":
			cfg.MmapMinSize = *l.mmapMinSize
		case "stream-chunk-size":
			cfg.StreamChunkSize = *l.streamChunkSize
		case "fallback-encoding":
			cfg.FallbackEncoding = *l.fallbackEncoding
		case "file-list":
			cfg.FileListPath = *l.fileList
		case "cross-reference":
			cfg.CrossReference = *l.crossReference
		case "hash-algorithms":
			cfg.HashAlgorithms = parseCommaSeparated(*l.hashes)
		case "redact-passwords":
			cfg.RedactPasswords = *l.redactPasswords
		case "sarif":
			cfg.Sarif = *l.sarif
		case "no-progress":
			cfg.ShowProgress = !*l.noProgress
		case "otel-endpoint":
			cfg.OtelEndpoint = strings.TrimSpace(*l.otelEndpoint)
		case "otel-from-env":
			cfg.OtelFromEnv = *l.otelFromEnv
		case "otel-headers":
			cfg.OtelHeaders = parseHeaders(*l.otelHeaders)
		case "otel-service-name":
			cfg.OtelServiceName = strings.TrimSpace(*l.otelServiceName)
		case "otel-timeout":
			cfg.OtelTimeout = *l.otelTimeout
		case "otel-export-paths":
			cfg.OtelExportPaths = *l.otelExportPaths
		case "otel-export-payloads":
			cfg.OtelExportPayloads = *l.otelExportPayloads
		}
	})

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.FileListPath != "" {
		names, err := readFileList(cfg.FileListPath)
		if err != nil {
			return nil, err
		}
		cfg.FileNames = names
	}
	return cfg, nil
}

func (cfg *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read config file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return fmt.Errorf("invalid config file format: %v: %w", err, scanerr.ErrInvalidConfig)
	}
	return nil
}

func (cfg *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(envPrefix + name)
		if !ok {
			return "", false
		}
		return strings.TrimSpace(v), true
	}
	if v, ok := get("INPUT"); ok {
		cfg.InputDir = v
	}
	if v, ok := get("OUTPUT"); ok {
		cfg.OutputDir = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := get("FALLBACK_ENCODING"); ok {
		cfg.FallbackEncoding = v
	}
	if v, ok := get("HASH_ALGORITHMS"); ok {
		cfg.HashAlgorithms = parseCommaSeparated(v)
	}
	if v, ok := get("FILE_LIST"); ok {
		cfg.FileListPath = v
	}
	if v, ok := get("OTEL_ENDPOINT"); ok {
		cfg.OtelEndpoint = v
	}
	if v, ok := get("DISABLE_PROGRESS"); ok {
		disabled, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("%sDISABLE_PROGRESS: %v: %w", envPrefix, err, scanerr.ErrInvalidConfig)
		}
		cfg.ShowProgress = !disabled
	}
	if v, ok := get("MAX_IO_PER_SECOND"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sMAX_IO_PER_SECOND: %v: %w", envPrefix, err, scanerr.ErrInvalidConfig)
		}
		cfg.MaxIOPerSecond = n
	}
	return nil
}

func (cfg *Config) normalize() {
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.ContentReadMode = strings.ToLower(strings.TrimSpace(cfg.ContentReadMode))
	cfg.FallbackEncoding = strings.ToLower(strings.TrimSpace(cfg.FallbackEncoding))
	cfg.RedactPasswords = strings.ToLower(strings.TrimSpace(cfg.RedactPasswords))
	cfg.HashAlgorithms = normalizeAlgorithms(cfg.HashAlgorithms)
	if cfg.RedactPasswords == "none" {
		cfg.RedactPasswords = ""
	}
	if cfg.ContentReadMode == "" {
		cfg.ContentReadMode = "auto"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.StreamChunkSize <= 0 {
		cfg.StreamChunkSize = 256 * 1024
	}
	if cfg.MmapMinSize <= 0 {
		cfg.MmapMinSize = 128 * 1024
	}
	if cfg.OtelServiceName == "" {
		cfg.OtelServiceName = "sasaudit"
	}
}

func (cfg *Config) validate() error {
	if cfg.InputDir == "" {
		return fmt.Errorf("--input is required: %w", scanerr.ErrInvalidConfig)
	}
	if cfg.OutputDir == "" {
		return fmt.Errorf("--output is required: %w", scanerr.ErrInvalidConfig)
	}
	if cfg.LogLevel != "debug" && cfg.LogLevel != "info" && cfg.LogLevel != "warn" &&
		cfg.LogLevel != "error" && cfg.LogLevel != "fatal" && cfg.LogLevel != "panic" {
		return fmt.Errorf("invalid log level: %s: %w", cfg.LogLevel, scanerr.ErrInvalidConfig)
	}
	if cfg.ContentReadMode != "stream" && cfg.ContentReadMode != "mmap" && cfg.ContentReadMode != "auto" {
		return fmt.Errorf("invalid content-read-mode value: %s: %w", cfg.ContentReadMode, scanerr.ErrInvalidConfig)
	}
	switch cfg.FallbackEncoding {
	case "", "latin1", "iso-8859-1", "windows-1252", "cp1252":
	default:
		return fmt.Errorf("invalid fallback-encoding value: %s: %w", cfg.FallbackEncoding, scanerr.ErrInvalidConfig)
	}
	if cfg.RedactPasswords != "" && cfg.RedactPasswords != "mask" && cfg.RedactPasswords != "hash" {
		return fmt.Errorf("invalid redact-passwords value: %s: %w", cfg.RedactPasswords, scanerr.ErrInvalidConfig)
	}
	for _, algo := range cfg.HashAlgorithms {
		switch algo {
		case "xxhash64", "blake3", "sha256", "tlsh":
		default:
			return fmt.Errorf("unsupported hash algorithm: %s: %w", algo, scanerr.ErrInvalidConfig)
		}
	}
	if cfg.MaxFileSize <= 0 {
		return fmt.Errorf("max-file-size must be positive: %w", scanerr.ErrInvalidConfig)
	}
	if cfg.MaxIOPerSecond < 0 {
		return fmt.Errorf("max-io-per-second must be zero or positive: %w", scanerr.ErrInvalidConfig)
	}
	if cfg.OtelTimeout < 0 {
		return fmt.Errorf("otel-timeout must be zero or positive: %w", scanerr.ErrInvalidConfig)
	}
	if cfg.OtelEndpoint != "" {
		if !strings.HasPrefix(cfg.OtelEndpoint, "http://") && !strings.HasPrefix(cfg.OtelEndpoint, "https://") {
			return fmt.Errorf("otel-endpoint must include scheme (http or https): %w", scanerr.ErrInvalidConfig)
		}
	}
	if err := requireDir("input", cfg.InputDir); err != nil {
		return err
	}
	return requireDir("output", cfg.OutputDir)
}

func requireDir(label, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s directory does not exist: %s: %w", label, path, scanerr.ErrNotFound)
		}
		return fmt.Errorf("%s directory %s: %v: %w", label, path, err, scanerr.ErrIO)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s path is not a directory: %s: %w", label, path, scanerr.ErrNotFound)
	}
	return nil
}

func readFileList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file list %s: %w", path, scanerr.ErrNotFound)
		}
		return nil, fmt.Errorf("file list %s: %v: %w", path, err, scanerr.ErrIO)
	}
	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names, nil
}

func parseCommaSeparated(input string) []string {
	if input == "" {
		return []string{}
	}
	items := strings.Split(input, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseHeaders(input string) map[string]string {
	headers := make(map[string]string)
	for _, item := range parseCommaSeparated(input) {
		parts := strings.SplitN(item, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(parts[1])
	}
	return headers
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true, nil
	case "", "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", v)
}

func normalizeAlgorithms(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	normalized := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		normalized = append(normalized, item)
	}
	return normalized
}
