package server

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/realtyledger/internal/audit/domain"
	"github.com/smallbiznis/realtyledger/internal/auditcontext"
	authdomain "github.com/smallbiznis/realtyledger/internal/auth/domain"
	"github.com/smallbiznis/realtyledger/internal/observability/logger"
	"go.uber.org/zap"
)

const contextPrincipalKey = "principal"

// AuthRequired resolves the caller's token into a principal and attaches it
// to both the gin context and the request context used for auditing.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		principal, err := s.authsvc.Authenticate(c.Request.Context(), rawToken)
		if err != nil {
			if errors.Is(err, authdomain.ErrInvalidToken) || errors.Is(err, authdomain.ErrTokenExpired) {
				s.sessions.Clear(c)
			}
			AbortWithError(c, err)
			return
		}

		ctx := c.Request.Context()
		actorType := string(auditdomain.ActorTypeAdmin)
		if principal.IsAgent() {
			actorType = string(auditdomain.ActorTypeAgent)
			// Agents work on their own ledger unless the route names another agent.
			if auditcontext.LedgerFromContext(ctx).AgentID == "" {
				ctx = auditcontext.WithLedger(ctx, auditcontext.Ledger{AgentID: principal.AgentID.String()})
			}
		}
		c.Set(contextPrincipalKey, *principal)
		c.Request = c.Request.WithContext(auditcontext.WithActor(ctx, actorType, principal.Subject))
		c.Next()
	}
}

// RequireRole rejects principals whose role is not listed. It must run after
// AuthRequired.
func (s *Server) RequireRole(roles ...authdomain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		for _, role := range roles {
			if principal.Role == role {
				c.Next()
				return
			}
		}
		AbortWithError(c, ErrForbidden)
	}
}

// authorize enforces the RBAC policy for object and action.
func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if s.authzSvc == nil {
			AbortWithError(c, ErrForbidden)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), principal, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// LoginRateLimit throttles login attempts per client address.
func (s *Server) LoginRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.loginLimiter == nil || !s.loginLimiter.Enabled() {
			c.Next()
			return
		}

		result := s.loginLimiter.Allow(c.Request.Context(), c.ClientIP())
		if result == nil || result.Allowed {
			c.Next()
			return
		}

		if seconds := int(result.RetryAfter.Seconds()); seconds > 0 {
			c.Header("Retry-After", strconv.Itoa(seconds))
		}
		logger.FromContext(c.Request.Context()).Warn("login rate limited",
			zap.String("client_ip", c.ClientIP()),
			zap.String("route", c.FullPath()),
		)
		s.obsMetrics.RecordLogin(c.Request.Context(), loginRoleForRoute(c.FullPath()), "rate_limited")
		AbortWithError(c, ErrTooManyRequests)
	}
}

// tagLedger records the agent and sale a handler resolved so request logs and
// spans name them.
func tagLedger(c *gin.Context, agentID, saleID string) {
	c.Request = c.Request.WithContext(auditcontext.WithLedger(c.Request.Context(), auditcontext.Ledger{
		AgentID: agentID,
		SaleID:  saleID,
	}))
}

func principalFromContext(c *gin.Context) (authdomain.Principal, bool) {
	value, ok := c.Get(contextPrincipalKey)
	if !ok {
		return authdomain.Principal{}, false
	}
	principal, ok := value.(authdomain.Principal)
	return principal, ok
}

func loginRoleForRoute(route string) string {
	if route == "/auth/admin/login" {
		return string(authdomain.RoleAdmin)
	}
	return string(authdomain.RoleAgent)
}
