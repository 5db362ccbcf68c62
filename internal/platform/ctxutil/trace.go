package ctxutil

import "context"

type traceDataKey struct{}
type accessTokenKey struct{}

// TraceData identifies a request and the catalog entities its route names.
type TraceData struct {
	TraceID    string
	RequestID  string
	StudyID    string
	AnalysisID string
	UploadID   string
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

// WithAccessToken stores the caller's bearer token so downstream storage
// calls can forward it.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

func AccessToken(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(accessTokenKey{}).(string); ok {
		return v
	}
	return ""
}
