package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/realtyledger/internal/auditcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
	return recorder
}

func spanAttributes(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, attr := range span.Attributes() {
		out[attr.Key] = attr.Value
	}
	return out
}

func TestGinMiddlewareAddsLedgerAttributes(t *testing.T) {
	recorder := recordSpans(t)
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		ctx := auditcontext.WithRequestID(c.Request.Context(), "req-1")
		ctx = auditcontext.WithLedger(ctx, auditcontext.Ledger{Resource: "sales", SaleID: c.Param("id")})
		c.Request = c.Request.WithContext(ctx)
	})
	r.Use(GinMiddleware())
	r.DELETE("/admin/sales/:id", func(c *gin.Context) {
		ctx := auditcontext.WithActor(c.Request.Context(), "admin", "root")
		ctx = auditcontext.WithLedger(ctx, auditcontext.Ledger{AgentID: "42"})
		c.Request = c.Request.WithContext(ctx)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/admin/sales/77", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP DELETE /admin/sales/:id", spans[0].Name())
	attrs := spanAttributes(spans[0])
	assert.Equal(t, "req-1", attrs["request_id"].AsString())
	assert.Equal(t, "sales", attrs["ledger.resource"].AsString())
	assert.Equal(t, "77", attrs["ledger.sale_id"].AsString())
	assert.Equal(t, "42", attrs["ledger.agent_id"].AsString())
	assert.Equal(t, "admin", attrs["ledger.actor_type"].AsString())
	assert.Equal(t, int64(http.StatusNoContent), attrs["http.status_code"].AsInt64())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}

func TestGinMiddlewareMarksServerErrors(t *testing.T) {
	recorder := recordSpans(t)
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/admin/reconciliation", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/reconciliation", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	_, hasAgent := spanAttributes(spans[0])["ledger.agent_id"]
	assert.False(t, hasAgent)
}
