package common

import "context"

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// ContextWithCorrelationID returns ctx carrying the request's correlation ID.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationID returns the correlation ID in ctx, or "" outside a request.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// ForContext returns l tagged with the correlation ID in ctx, or l itself
// when there is none.
func (l *Logger) ForContext(ctx context.Context) *Logger {
	if id := CorrelationID(ctx); id != "" {
		return l.WithCorrelationId(id)
	}
	return l
}
