package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/annel0/blocktick/internal/logging"
)

// Shutdown завершает экспорт трасс
type Shutdown func(context.Context) error

// InitTelemetry настраивает OTLP экспортер и устанавливает глобальный TracerProvider.
// Пустой endpoint означает адрес по умолчанию (localhost:4318 или OTEL_EXPORTER_OTLP_ENDPOINT).
func InitTelemetry(ctx context.Context, serviceName, endpoint string) (Shutdown, error) {
	var opts []otlptracehttp.Option
	if endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return install(ctx, serviceName, trace.WithBatcher(exp))
}

// InitNoopTelemetry ставит провайдер без экспорта: спаны создаются, но никуда не уходят
func InitNoopTelemetry(ctx context.Context, serviceName string) (Shutdown, error) {
	return install(ctx, serviceName)
}

func install(ctx context.Context, serviceName string, opts ...trace.TracerProviderOption) (Shutdown, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, err
	}

	tp := trace.NewTracerProvider(append(opts, trace.WithResource(res))...)
	otel.SetTracerProvider(tp)
	logging.Info("OpenTelemetry инициализирован (service=%s)", serviceName)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}, nil
}
