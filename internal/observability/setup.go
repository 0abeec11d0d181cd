package observability

import (
	"context"
	"os"

	"dailyquiz/internal/config"

	autosdk "go.opentelemetry.io/auto/sdk"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// SetupObservability initializes tracing, metrics, and logging for a service.
// The returned providers are nil when the corresponding signal is disabled or
// handled by the auto SDK.
func SetupObservability(cfg *config.OpenTelemetryConfig, serviceName string) (result0 *sdktrace.TracerProvider, result1 *sdkmetric.MeterProvider, result2 *Logger, err error) {
	if serviceName != "" {
		cfg.ServiceName = serviceName
	}

	if err := os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName); err != nil {
		return nil, nil, nil, err
	}

	logger := NewLogger(cfg)

	var tp *sdktrace.TracerProvider
	var mp *sdkmetric.MeterProvider

	if cfg.EnableTracing {
		if cfg.UseAutoSDK {
			otel.SetTracerProvider(autosdk.TracerProvider())
			logger.Info(context.Background(), "Tracing enabled with auto SDK", map[string]interface{}{"service_name": cfg.ServiceName})
		} else {
			tp, err = InitStandardTracing(cfg)
			if err != nil {
				return nil, nil, nil, err
			}
			otel.SetTracerProvider(tp)
			logger.Info(context.Background(), "Tracing enabled with standard SDK", map[string]interface{}{"service_name": cfg.ServiceName})
		}

		if err := InitTracing(cfg); err != nil {
			return nil, nil, nil, err
		}
		InitGlobalTracer()
	}

	if cfg.EnableMetrics {
		mp, err = InitMetrics(cfg)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	return tp, mp, logger, nil
}
