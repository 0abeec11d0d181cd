// Package observability provides logging, tracing and metrics wiring shared
// by the server and the adm CLI.
package observability

import (
	"context"
	"strings"

	"dailyquiz/internal/config"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap with context-aware methods that attach trace identifiers.
type Logger struct {
	zap     *zap.Logger
	enabled bool
}

// NewLogger builds a production logger. When the OTLP endpoint is configured
// the zap core is teed into an OTLP log exporter via the otelzap bridge.
// With EnableLogging false a no-op logger is returned.
func NewLogger(cfg *config.OpenTelemetryConfig) *Logger {
	return NewLoggerWithLevel(cfg, "info")
}

// NewLoggerWithLevel builds a logger at the given level.
func NewLoggerWithLevel(cfg *config.OpenTelemetryConfig, level string) *Logger {
	if cfg == nil || !cfg.EnableLogging {
		return &Logger{zap: zap.NewNop(), enabled: false}
	}

	zapLevel := parseLevel(level)
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zapLevel)
	base, err := zapCfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		base = zap.NewNop()
	}

	if cfg.Endpoint != "" {
		if provider := newLogProvider(cfg); provider != nil {
			otelCore := otelzap.NewCore(cfg.ServiceName, otelzap.WithLoggerProvider(provider))
			base = base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
				return zapcore.NewTee(core, otelCore)
			}))
		}
	}

	return &Logger{zap: base, enabled: true}
}

func newLogProvider(cfg *config.OpenTelemetryConfig) *sdklog.LoggerProvider {
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpointURL(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(context.Background(), opts...)
	if err != nil {
		return nil
	}
	return sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Debug logs at debug level with trace context.
func (l *Logger) Debug(ctx context.Context, msg string, fields map[string]interface{}) {
	l.zap.Debug(msg, l.zapFields(ctx, fields)...)
}

// Info logs at info level with trace context.
func (l *Logger) Info(ctx context.Context, msg string, fields map[string]interface{}) {
	l.zap.Info(msg, l.zapFields(ctx, fields)...)
}

// Warn logs at warn level with trace context.
func (l *Logger) Warn(ctx context.Context, msg string, fields map[string]interface{}) {
	l.zap.Warn(msg, l.zapFields(ctx, fields)...)
}

// Error logs at error level with the error and trace context.
func (l *Logger) Error(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	zf := l.zapFields(ctx, fields)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	l.zap.Error(msg, zf...)
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

func (l *Logger) zapFields(ctx context.Context, fields map[string]interface{}) []zap.Field {
	zf := make([]zap.Field, 0, len(fields)+2)
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		zf = append(zf,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	return zf
}
