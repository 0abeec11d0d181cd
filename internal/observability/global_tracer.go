package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var globalTracer trace.Tracer

// InitGlobalTracer resolves the tracer used by the Trace*Function helpers.
// Call after the tracer provider is installed.
func InitGlobalTracer() {
	globalTracer = otel.Tracer("dailyquiz")
}

func tracer() trace.Tracer {
	if globalTracer == nil {
		return otel.Tracer("dailyquiz")
	}
	return globalTracer
}

// TraceFunction starts a span named "<service>.<fn>" with the given attributes.
func TraceFunction(ctx context.Context, service, fn string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, fmt.Sprintf("%s.%s", service, fn), trace.WithAttributes(attrs...))
}

// TraceDailyFunction traces daily assignment service methods.
func TraceDailyFunction(ctx context.Context, fn string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "daily_question_service", fn, attrs...)
}

// TraceLearningFunction traces learning service methods.
func TraceLearningFunction(ctx context.Context, fn string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "learning_service", fn, attrs...)
}

// TraceQuestionFunction traces question service methods.
func TraceQuestionFunction(ctx context.Context, fn string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "question_service", fn, attrs...)
}

// TraceHintFunction traces generation hint service methods.
func TraceHintFunction(ctx context.Context, fn string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "generation_hint_service", fn, attrs...)
}

// TraceUserFunction traces user service methods.
func TraceUserFunction(ctx context.Context, fn string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "user_service", fn, attrs...)
}

// TraceHandlerFunction traces HTTP handler methods.
func TraceHandlerFunction(ctx context.Context, fn string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "handler", fn, attrs...)
}

// AttributeUserID tags a span with the user ID.
func AttributeUserID(userID int) attribute.KeyValue {
	return attribute.Int("user.id", userID)
}

// AttributeQuestionID tags a span with the question ID.
func AttributeQuestionID(questionID int) attribute.KeyValue {
	return attribute.Int("question.id", questionID)
}

// AttributeAssignmentDate tags a span with the assignment date.
func AttributeAssignmentDate(date string) attribute.KeyValue {
	return attribute.String("assignment.date", date)
}

// AttributeLanguage tags a span with the question language.
func AttributeLanguage(language string) attribute.KeyValue {
	return attribute.String("question.language", language)
}

// AttributeLevel tags a span with the question level.
func AttributeLevel(level string) attribute.KeyValue {
	return attribute.String("question.level", level)
}

// AttributeQuestionType tags a span with the question type.
func AttributeQuestionType(qType string) attribute.KeyValue {
	return attribute.String("question.type", qType)
}

// AttributeLimit tags a span with a batch or pool limit.
func AttributeLimit(limit int) attribute.KeyValue {
	return attribute.Int("limit", limit)
}
