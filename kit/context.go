// Package kit carries request-scoped values shared by the HTTP middleware
// and the handlers behind it.
package kit

import "context"

type contextKey string

const TraceIDKey contextKey = "kit_trace_id"

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey, id)
}
func GetTraceID(ctx context.Context) string {
	v, _ := ctx.Value(TraceIDKey).(string)
	return v
}
