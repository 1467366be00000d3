// Package otelhelper provides distributed tracing helpers for backend calls.
package otelhelper

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	IntegrationIDKey = "conduit.integration.id"
	FlowIDKey        = "conduit.flow.id"
	StepPositionKey  = "conduit.step.position"
	ConnectionIDKey  = "conduit.connection.id"
	ActionIDKey      = "conduit.action.id"
	DeploymentKey    = "conduit.deployment.version"
	OperationKey     = "conduit.operation"
	HTTPMethodKey    = "http.request.method"
	HTTPStatusKey    = "http.response.status_code"
)

// Setup installs an OTLP/HTTP tracer provider as the global provider and
// returns its shutdown function. The exporter reads the standard
// OTEL_EXPORTER_OTLP_* variables.
func Setup(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	provider, err := newTracerProvider(serviceName, sdktrace.WithBatcher(exporter))
	if err != nil {
		return nil, err
	}

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return provider.Shutdown, nil
}

// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// StartCall opens a client span named after the backend operation.
// nolint:ireturn,spancheck // the caller ends the span
func StartCall(ctx context.Context, tracer trace.Tracer, op, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "conduit."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(OperationKey, op),
			attribute.String(HTTPMethodKey, method),
		),
		trace.WithAttributes(attrs...),
	)
}

// Inject writes the trace context of ctx into outgoing request headers.
func Inject(ctx context.Context, header http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(header))
}

func newTracerProvider(serviceName string, opts ...sdktrace.TracerProviderOption) (*sdktrace.TracerProvider, error) {
	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	return sdktrace.NewTracerProvider(append(opts,
		sdktrace.WithResource(r),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)...), nil
}
