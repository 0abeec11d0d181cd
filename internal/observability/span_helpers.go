package observability

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FinishSpan records the outcome of a traced function and ends the span.
// Use with defer and a named error return.
func FinishSpan(span trace.Span, errPtr *error) {
	if errPtr != nil && *errPtr != nil {
		span.RecordError(*errPtr)
		span.SetStatus(codes.Error, (*errPtr).Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
