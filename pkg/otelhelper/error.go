package otelhelper

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RecordError marks the span as failed.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// RecordResponse stores the response status code. Statuses of 400 and above
// mark the span as failed with the status text.
func RecordResponse(span trace.Span, statusCode int) {
	span.SetAttributes(attribute.Int(HTTPStatusKey, statusCode))

	if statusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(statusCode))
	}
}
