package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sasaudit/config"
	"sasaudit/logger"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	otelLog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

type otelLogger struct {
	provider *sdklog.LoggerProvider
	logger   otelLog.Logger
	timeout  time.Duration
	endpoint string
	policy   otelPolicy
}

// otelPolicy decides which report columns may leave the host.
type otelPolicy struct {
	includePaths    bool
	includePayloads bool
}

func newOtelLogger(cfg *config.Config) (*otelLogger, error) {
	endpoint := resolveOtelEndpoint(cfg)
	if endpoint == "" {
		return nil, nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("otel endpoint must include scheme (http or https)")
	}

	opts := []otlploghttp.Option{otlploghttp.WithEndpointURL(endpoint)}
	if len(cfg.OtelHeaders) > 0 {
		opts = append(opts, otlploghttp.WithHeaders(cfg.OtelHeaders))
	}
	if cfg.OtelTimeout > 0 {
		opts = append(opts, otlploghttp.WithTimeout(cfg.OtelTimeout))
	}
	exp, err := otlploghttp.New(context.Background(), opts...)
	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(cfg.OtelServiceName),
	)
	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
		sdklog.WithResource(res),
	)
	return &otelLogger{
		provider: provider,
		logger:   provider.Logger("sasaudit"),
		timeout:  cfg.OtelTimeout,
		endpoint: endpoint,
		policy: otelPolicy{
			includePaths:    cfg.OtelExportPaths,
			includePayloads: cfg.OtelExportPayloads,
		},
	}, nil
}

func resolveOtelEndpoint(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	if endpoint := strings.TrimSpace(cfg.OtelEndpoint); endpoint != "" {
		return endpoint
	}
	if !cfg.OtelFromEnv {
		return ""
	}
	if endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT")); endpoint != "" {
		return endpoint
	}
	return strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
}

func (o *otelLogger) EmitSummary(s Summary) {
	if o == nil {
		return
	}
	o.emit("summary", summaryAttributes(s, o.policy))
}

func (o *otelLogger) EmitDetail(d Detail) {
	if o == nil {
		return
	}
	o.emit("detail", detailAttributes(d, o.policy))
}

func (o *otelLogger) EmitMetrics(m Metrics) {
	if o == nil {
		return
	}
	o.emit("metrics", metricsAttributes(m))
}

func (o *otelLogger) emit(recordType string, attrs []otelLog.KeyValue) {
	if o.logger == nil {
		return
	}
	now := time.Now()
	var record otelLog.Record
	record.SetTimestamp(now)
	record.SetObservedTimestamp(now)
	record.SetEventName("sasaudit." + recordType)
	record.AddAttributes(
		otelLog.String("record_type", recordType),
		otelLog.String("schema_version", SchemaVersion),
	)
	record.AddAttributes(attrs...)
	record.SetBody(otelLog.MapValue(attrs...))
	o.logger.Emit(context.Background(), record)
}

func (o *otelLogger) Shutdown() {
	if o == nil || o.provider == nil {
		return
	}
	timeout := o.timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := o.provider.Shutdown(ctx); err != nil {
		logger.Debugf("OTEL shutdown failed: %v", err)
	}
}

func summaryAttributes(s Summary, policy otelPolicy) []otelLog.KeyValue {
	kvs := []otelLog.KeyValue{
		otelLog.String("sasaudit.file.id", s.ID),
		otelLog.Int64(string(semconv.FileSizeKey), s.SizeBytes),
	}
	if ext := strings.TrimPrefix(filepath.Ext(s.Name), "."); ext != "" {
		kvs = append(kvs, otelLog.String(string(semconv.FileExtensionKey), ext))
	}
	if policy.includePaths {
		kvs = appendStringAttr(kvs, string(semconv.FileNameKey), s.Name)
		kvs = appendStringAttr(kvs, string(semconv.FileDirectoryKey), s.Directory)
		kvs = appendStringAttr(kvs, string(semconv.FilePathKey), filepath.Join(s.Directory, s.Name))
	}
	kvs = appendStringAttr(kvs, "sasaudit.file.created_at", FormatTimestamp(s.CreatedAt))
	kvs = appendStringAttr(kvs, "sasaudit.file.modified_at", FormatTimestamp(s.ModifiedAt))
	return kvs
}

func detailAttributes(d Detail, policy otelPolicy) []otelLog.KeyValue {
	kvs := []otelLog.KeyValue{
		otelLog.String("sasaudit.file.id", d.FileID),
		otelLog.String("sasaudit.finding.scanner", d.Scanner),
	}
	if d.Line > 0 {
		kvs = append(kvs, otelLog.Int("sasaudit.finding.line", d.Line))
	}
	if policy.includePaths {
		kvs = appendStringAttr(kvs, string(semconv.FilePathKey), d.Path)
	}
	if policy.includePayloads {
		kvs = appendStringAttr(kvs, "sasaudit.finding.payload", d.Payload)
	}
	return kvs
}

func metricsAttributes(m Metrics) []otelLog.KeyValue {
	kvs := []otelLog.KeyValue{
		otelLog.Int("sasaudit.metrics.files_discovered", m.FilesDiscovered),
		otelLog.Int("sasaudit.metrics.files_scanned", m.FilesScanned),
		otelLog.Int("sasaudit.metrics.findings", m.Findings),
		otelLog.Int("sasaudit.metrics.scan_errors", m.ScanErrors),
		otelLog.Int("sasaudit.metrics.encoding_errors", m.EncodingErrors),
		otelLog.Int64("sasaudit.metrics.elapsed_ms", m.Elapsed().Milliseconds()),
	}
	kvs = appendStringAttr(kvs, "sasaudit.metrics.start_time", FormatTimestamp(m.StartTime))
	kvs = appendStringAttr(kvs, "sasaudit.metrics.end_time", FormatTimestamp(m.EndTime))
	if len(m.ScannerFindings) > 0 {
		per := make([]otelLog.KeyValue, 0, len(m.ScannerFindings))
		for name, count := range m.ScannerFindings {
			per = append(per, otelLog.Int(name, count))
		}
		kvs = append(kvs, otelLog.Map("sasaudit.metrics.scanner_findings", per...))
	}
	return kvs
}

func appendStringAttr(kvs []otelLog.KeyValue, key, value string) []otelLog.KeyValue {
	if value == "" {
		return kvs
	}
	return append(kvs, otelLog.String(key, value))
}
