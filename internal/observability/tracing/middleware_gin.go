package tracing

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/realtyledger/internal/auditcontext"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "realtyledger/http"

// GinMiddleware opens a server span per request. It must run after the
// request logger so the request id and route ledger target are in context.
// The span is named after the route template and carries the ledger agent
// and sale the handler resolved.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer(tracerName)
	return func(c *gin.Context) {
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}

		method := strings.ToUpper(c.Request.Method)
		ctx, span := tracer.Start(ctx, "HTTP "+method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", method),
				attribute.String("http.route", route),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		span.SetAttributes(SafeAttributes(requestAttributes(c.Request.Context())...)...)

		if status >= http.StatusInternalServerError {
			if lastErr := c.Errors.Last(); lastErr != nil {
				if safeErr := SafeError(lastErr.Err); safeErr != nil {
					span.RecordError(safeErr)
				}
			}
			span.SetStatus(codes.Error, "request error")
		}
	}
}

// requestAttributes reads the request id, actor and ledger target collected
// while the request ran.
func requestAttributes(ctx context.Context) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if requestID := auditcontext.RequestIDFromContext(ctx); requestID != "" {
		attrs = append(attrs, attribute.String("request_id", requestID))
	}
	if actorType, actorID := auditcontext.ActorFromContext(ctx); actorType != "" {
		attrs = append(attrs,
			attribute.String("ledger.actor_type", actorType),
			attribute.String("ledger.actor_id", actorID),
		)
	}
	ledger := auditcontext.LedgerFromContext(ctx)
	if ledger.Resource != "" {
		attrs = append(attrs, attribute.String("ledger.resource", ledger.Resource))
	}
	if ledger.AgentID != "" {
		attrs = append(attrs, attribute.String("ledger.agent_id", ledger.AgentID))
	}
	if ledger.SaleID != "" {
		attrs = append(attrs, attribute.String("ledger.sale_id", ledger.SaleID))
	}
	return attrs
}
