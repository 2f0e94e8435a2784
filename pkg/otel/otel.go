package otel

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

type Config struct {
	ServiceName        string        // Название сервиса (чтобы понимать с какого сервера идет трассировка и т.п.)
	CollectorEndpoint  string        // адрес:порт Otel коллектора, куда будут отсылаться трассировки
	BatchTimeout       time.Duration // через указанный период времени данные по трассировкам будут отправляться в одном пакете
	MaxExportBatchSize int           // Максимальное кол-во спанов в пакете
	MaxQueueSize       int           // Максимум спанов в очереди
}

// Shutdown сброс оставшихся спанов и остановка провайдера
type Shutdown func(ctx context.Context) error

// InitTracer Инициализация трассировщика, вызывать в самом начале программы.
// Без адреса коллектора трассировка не настраивается, остается глобальный noop провайдер.
// Пример вызова:
//
//	shutdown, err := InitTracer(cfg)
//	defer shutdown(ctx)
func InitTracer(ctx context.Context, cfg Config) (Shutdown, error) {
	if cfg.CollectorEndpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	// Создаем OTLP gRPC экспортер для трассировок
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithInsecure(),                      // Без TLS (используйте WithTLS() для включения)
		otlptracegrpc.WithEndpoint(cfg.CollectorEndpoint), // Адрес OpenTelemetry Collector
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	batchProcessor := trace.NewBatchSpanProcessor(
		exporter,
		trace.WithBatchTimeout(cfg.BatchTimeout),
		trace.WithMaxExportBatchSize(cfg.MaxExportBatchSize), // Не более MaxExportBatchSize спанов за раз
		trace.WithMaxQueueSize(cfg.MaxQueueSize),             // Максимум MaxQueueSize спанов в очереди
	)

	tp := newProvider(cfg.ServiceName, &filteringSpanProcessor{next: batchProcessor})
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

// InitSimpleTracer трассировщик с выводом спанов в w, для отладки без коллектора
func InitSimpleTracer(serviceName string, w io.Writer) (Shutdown, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create stdout exporter: %w", err)
	}

	tp := newProvider(serviceName, &filteringSpanProcessor{next: trace.NewSimpleSpanProcessor(exporter)})
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

func newProvider(serviceName string, processor trace.SpanProcessor) *trace.TracerProvider {
	return trace.NewTracerProvider(
		trace.WithSpanProcessor(processor),
		trace.WithResource(resource.NewSchemaless(
			semconv.ServiceNameKey.String(serviceName),
		)),
	)
}

// Для фильтрации спанов
type filteringSpanProcessor struct {
	next trace.SpanProcessor
}

func (fsp *filteringSpanProcessor) OnStart(parent context.Context, span trace.ReadWriteSpan) {
	fsp.next.OnStart(parent, span)
}

// OnEnd Здесь настраиваем фильтры по названию спана
// Пропускаем спаны, связанные с Docker API
func (fsp *filteringSpanProcessor) OnEnd(span trace.ReadOnlySpan) {
	if strings.Contains(span.Name(), "/containers") ||
		strings.Contains(span.Name(), "GET /") ||
		strings.Contains(span.Name(), "HEAD /") {
		return
	}
	fsp.next.OnEnd(span)
}

func (fsp *filteringSpanProcessor) Shutdown(ctx context.Context) error {
	return fsp.next.Shutdown(ctx)
}

func (fsp *filteringSpanProcessor) ForceFlush(ctx context.Context) error {
	return fsp.next.ForceFlush(ctx)
}
