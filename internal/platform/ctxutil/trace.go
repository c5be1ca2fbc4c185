package ctxutil

import "context"

type traceDataKey struct{}
type reviewerKey struct{}

type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	val := ctx.Value(traceDataKey{})
	if td, ok := val.(*TraceData); ok {
		return td
	}
	return nil
}

// WithReviewer stores the authenticated reviewer subject.
func WithReviewer(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, reviewerKey{}, subject)
}

func Reviewer(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(reviewerKey{}).(string); ok {
		return s
	}
	return ""
}
