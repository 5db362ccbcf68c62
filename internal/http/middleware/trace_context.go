package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/songcatalog-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// AttachTraceContext ties every request to a trace id and records which
// study, analysis and upload the matched route addresses, both on the
// request context and on the active span.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if reqID == "" {
			reqID = uuid.New().String()
		}
		span := trace.SpanFromContext(c.Request.Context())
		traceID := strings.TrimSpace(c.GetHeader(headerTraceID))
		if traceID == "" && span.SpanContext().HasTraceID() {
			traceID = span.SpanContext().TraceID().String()
		}
		if traceID == "" {
			traceID = uuid.New().String()
		}

		td := routeTraceData(c)
		td.TraceID = traceID
		td.RequestID = reqID
		span.SetAttributes(spanAttributes(td)...)

		c.Request = c.Request.WithContext(ctxutil.WithTraceData(c.Request.Context(), td))
		c.Set("trace_id", traceID)
		c.Set("request_id", reqID)
		c.Writer.Header().Set(headerTraceID, traceID)
		c.Writer.Header().Set(headerRequestID, reqID)
		c.Next()
	}
}

// routeTraceData reads the catalog ids out of the matched route. Only the
// analysis routes use :id for an analysis id.
func routeTraceData(c *gin.Context) *ctxutil.TraceData {
	td := &ctxutil.TraceData{
		StudyID:  c.Param("studyId"),
		UploadID: c.Param("uploadId"),
	}
	if strings.Contains(c.FullPath(), "/analysis/") {
		td.AnalysisID = c.Param("id")
	}
	return td
}

func spanAttributes(td *ctxutil.TraceData) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("catalog.request_id", td.RequestID)}
	if td.StudyID != "" {
		attrs = append(attrs, attribute.String("catalog.study_id", td.StudyID))
	}
	if td.AnalysisID != "" {
		attrs = append(attrs, attribute.String("catalog.analysis_id", td.AnalysisID))
	}
	if td.UploadID != "" {
		attrs = append(attrs, attribute.String("catalog.upload_id", td.UploadID))
	}
	return attrs
}
