// Package observability настраивает трассировку OpenTelemetry и метрики
// Prometheus для симуляции.
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/annel0/bucket-brigade/internal/config"
	"github.com/annel0/bucket-brigade/internal/logging"
)

// ShutdownFunc завершает провайдер трасс, дописывая буфер экспортёра
type ShutdownFunc func(context.Context) error

// InitTelemetry настраивает OTLP/HTTP экспортёр и устанавливает глобальный TracerProvider.
// Без endpoint провайдер всё равно создаётся: спаны тиков сэмплируются, но никуда не уходят.
func InitTelemetry(ctx context.Context, cfg config.TelemetryConfig) (ShutdownFunc, error) {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "bucket-brigade"
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, err
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	}

	if cfg.Endpoint != "" {
		exp, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(cfg.Endpoint),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	if cfg.Endpoint != "" {
		logging.Info("📡 OpenTelemetry инициализирован (OTLP → %s, service=%s)", cfg.Endpoint, serviceName)
	} else {
		logging.Info("📡 OpenTelemetry без экспорта (service=%s)", serviceName)
	}

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}, nil
}
