package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/smallbiznis/realtyledger/internal/auditcontext"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MiddlewareConfig controls request logging behavior.
type MiddlewareConfig struct {
	Debug           bool
	QuietRoutes     []string
	SlowRequest     time.Duration
	ErrorClassifier func(err error) (string, string)
}

// GinMiddleware tags the request context with its id, client and the ledger
// target named by the route, then logs one line per request. Handlers may
// refine the target with auditcontext.WithLedger before returning.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	quiet := make(map[string]struct{}, len(cfg.QuietRoutes))
	for _, route := range cfg.QuietRoutes {
		quiet[strings.ToLower(strings.TrimSpace(route))] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}

		ctx := c.Request.Context()
		ctx = auditcontext.WithRequestID(ctx, ensureRequestID(c))
		ctx = auditcontext.WithIPAddress(ctx, c.ClientIP())
		ctx = auditcontext.WithUserAgent(ctx, c.Request.UserAgent())
		ctx = auditcontext.WithLedger(ctx, LedgerFromRoute(c.FullPath(), c.Param("id"), c.Query("agent_id")))
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		elapsed := time.Since(start)
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int64("duration_ms", elapsed.Milliseconds()),
			zap.Int64("bytes_in", max(c.Request.ContentLength, 0)),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		}
		if resource := auditcontext.LedgerFromContext(c.Request.Context()).Resource; resource != "" {
			fields = append(fields, zap.String("resource", resource))
		}

		level := zapcore.InfoLevel
		if cfg.SlowRequest > 0 && elapsed >= cfg.SlowRequest {
			level = zapcore.WarnLevel
			fields = append(fields, zap.Bool("slow", true))
		}
		if isLoginRoute(route) && status == http.StatusUnauthorized {
			level = zapcore.WarnLevel
		}
		if lastErr := c.Errors.Last(); lastErr != nil {
			var errorType, errorCode string
			if cfg.ErrorClassifier != nil {
				errorType, errorCode = cfg.ErrorClassifier(lastErr.Err)
			}
			fields = append(fields,
				zap.String("error_type", errorType),
				zap.String("error_code", errorCode),
			)
			if cfg.Debug {
				fields = append(fields, zap.Stack("stack"))
			}
		}
		if status >= http.StatusInternalServerError {
			level = zapcore.ErrorLevel
		}
		if _, ok := quiet[strings.ToLower(route)]; ok && level < zapcore.ErrorLevel {
			level = zapcore.DebugLevel
		}

		if ce := FromContext(c.Request.Context()).Check(level, "http_request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

// LedgerFromRoute derives the ledger collection and ids addressed by a route
// template. The :id parameter names an agent under /agents and a sale under
// /sales. An agent_id query filter names the agent on collection routes.
func LedgerFromRoute(route, id, agentFilter string) auditcontext.Ledger {
	segments := strings.Split(strings.Trim(route, "/"), "/")
	if len(segments) > 0 && (segments[0] == "api" || segments[0] == "admin") {
		segments = segments[1:]
	}
	if len(segments) == 0 || segments[0] == "" {
		return auditcontext.Ledger{}
	}

	ledger := auditcontext.Ledger{Resource: segments[0], AgentID: agentFilter}
	if len(segments) > 1 && segments[1] == ":id" {
		switch segments[0] {
		case "agents":
			ledger.AgentID = id
		case "sales":
			ledger.SaleID = id
		}
	}
	return ledger
}

func ensureRequestID(c *gin.Context) string {
	requestID := strings.TrimSpace(c.GetHeader("X-Request-Id"))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set("request_id", requestID)
	c.Header("X-Request-Id", requestID)
	return requestID
}

func isLoginRoute(route string) bool {
	return route == "/auth/login" || route == "/auth/admin/login"
}
