package observability

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	globalTracer     trace.Tracer
	globalTracerOnce sync.Once
)

// InitGlobalTracer initializes the global tracer for the application.
// Safe to call from concurrent first users; the tracer forwards to whatever
// provider is registered globally.
func InitGlobalTracer() {
	globalTracerOnce.Do(func() {
		globalTracer = otel.Tracer("academy-app")
	})
}

// GetGlobalTracer returns the global tracer instance for the application,
// initializing it on first use.
func GetGlobalTracer() trace.Tracer {
	InitGlobalTracer()
	return globalTracer
}

// TraceFunction starts a new span with a descriptive name for the given service and function.
func TraceFunction(ctx context.Context, serviceName, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := GetGlobalTracer()
	spanName := fmt.Sprintf("%s.%s", serviceName, functionName)
	return tracer.Start(ctx, spanName, trace.WithAttributes(attributes...))
}

// TraceUserFunction starts a new span for a user service function.
func TraceUserFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "user", functionName, attributes...)
}

// TraceQuizFunction starts a new span for a quiz session or attempt function.
func TraceQuizFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "quiz", functionName, attributes...)
}

// TraceProgressFunction starts a new span for a progress service function.
func TraceProgressFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "progress", functionName, attributes...)
}

// TraceHandlerFunction starts a new span for a handler function.
func TraceHandlerFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "handler", functionName, attributes...)
}

// TraceDatabaseFunction starts a new span for a database function.
func TraceDatabaseFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "database", functionName, attributes...)
}

// AttributeUserID returns a tracing attribute for a user ID.
func AttributeUserID(id string) attribute.KeyValue {
	return attribute.String("user.id", id)
}

// AttributeCourseID returns a tracing attribute for a course ID.
func AttributeCourseID(id string) attribute.KeyValue {
	return attribute.String("course.id", id)
}

// AttributeQuizID returns a tracing attribute for a quiz ID.
func AttributeQuizID(id string) attribute.KeyValue {
	return attribute.String("quiz.id", id)
}

// AttributeWeek returns a tracing attribute for a week number.
func AttributeWeek(week int) attribute.KeyValue {
	return attribute.Int("course.week", week)
}

// AttributeVideoTitle returns a tracing attribute for a video title.
func AttributeVideoTitle(title string) attribute.KeyValue {
	return attribute.String("video.title", title)
}

// AttributeQuestionIndex returns a tracing attribute for a question index within a quiz.
func AttributeQuestionIndex(i int) attribute.KeyValue {
	return attribute.Int("question.index", i)
}

// AttributeScore returns a tracing attribute for an attempt score.
func AttributeScore(score int) attribute.KeyValue {
	return attribute.Int("attempt.score", score)
}
