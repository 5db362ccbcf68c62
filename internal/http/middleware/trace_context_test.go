package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/yungbote/songcatalog-backend/internal/platform/ctxutil"
)

func TestTraceContextCarriesRouteIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })

	var seen *ctxutil.TraceData
	r := gin.New()
	r.Use(otelgin.Middleware("test", otelgin.WithTracerProvider(tp)))
	r.Use(AttachTraceContext())
	r.GET("/studies/:studyId/analysis/:id", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})
	r.GET("/studies/:studyId/donors/:id", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/studies/ST1/analysis/AN1", nil))
	if seen == nil || seen.StudyID != "ST1" || seen.AnalysisID != "AN1" {
		t.Fatalf("trace data: got=%+v", seen)
	}
	ended := spans.Ended()
	if len(ended) != 1 {
		t.Fatalf("spans: want=1 got=%d", len(ended))
	}
	if got := rec.Header().Get(headerTraceID); got != ended[0].SpanContext().TraceID().String() {
		t.Fatalf("trace header: want=%s got=%s", ended[0].SpanContext().TraceID(), got)
	}
	attrs := map[string]string{}
	for _, kv := range ended[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs["catalog.study_id"] != "ST1" || attrs["catalog.analysis_id"] != "AN1" {
		t.Fatalf("span attributes: got=%v", attrs)
	}

	// donor routes also use :id, which is not an analysis id
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/studies/ST1/donors/DO1", nil))
	if seen == nil || seen.StudyID != "ST1" || seen.AnalysisID != "" {
		t.Fatalf("donor route trace data: got=%+v", seen)
	}
}
