package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/realtyledger/internal/agent"
	agentdomain "github.com/smallbiznis/realtyledger/internal/agent/domain"
	"github.com/smallbiznis/realtyledger/internal/audit"
	auditdomain "github.com/smallbiznis/realtyledger/internal/audit/domain"
	"github.com/smallbiznis/realtyledger/internal/auth"
	authdomain "github.com/smallbiznis/realtyledger/internal/auth/domain"
	"github.com/smallbiznis/realtyledger/internal/auth/session"
	"github.com/smallbiznis/realtyledger/internal/authorization"
	"github.com/smallbiznis/realtyledger/internal/config"
	"github.com/smallbiznis/realtyledger/internal/observability"
	obsmiddleware "github.com/smallbiznis/realtyledger/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/realtyledger/internal/observability/metrics"
	obstracing "github.com/smallbiznis/realtyledger/internal/observability/tracing"
	"github.com/smallbiznis/realtyledger/internal/ratelimit"
	"github.com/smallbiznis/realtyledger/internal/reconcile"
	"github.com/smallbiznis/realtyledger/internal/report"
	reportdomain "github.com/smallbiznis/realtyledger/internal/report/domain"
	"github.com/smallbiznis/realtyledger/internal/sale"
	saledomain "github.com/smallbiznis/realtyledger/internal/sale/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultHTTPAddr = ":8080"

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	auth.Module,
	agent.Module,
	sale.Module,
	report.Module,
	reconcile.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		QuietRoutes:     obsCfg.QuietRoutes,
		SlowRequest:     obsCfg.SlowRequest,
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = defaultHTTPAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	authsvc      authdomain.Service
	sessions     *session.Manager
	authzSvc     authorization.Service
	auditSvc     auditdomain.Service
	agentSvc     agentdomain.Service
	saleSvc      saledomain.Service
	reportSvc    reportdomain.Service
	reconciler   *reconcile.Service
	loginLimiter *ratelimit.LoginLimiter
	obsMetrics   *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Authsvc      authdomain.Service
	Sessions     *session.Manager
	AuthzSvc     authorization.Service
	AuditSvc     auditdomain.Service
	AgentSvc     agentdomain.Service
	SaleSvc      saledomain.Service
	ReportSvc    reportdomain.Service
	Reconciler   *reconcile.Service
	LoginLimiter *ratelimit.LoginLimiter `optional:"true"`
	ObsMetrics   *obsmetrics.Metrics     `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		authsvc:      p.Authsvc,
		sessions:     p.Sessions,
		authzSvc:     p.AuthzSvc,
		auditSvc:     p.AuditSvc,
		agentSvc:     p.AgentSvc,
		saleSvc:      p.SaleSvc,
		reportSvc:    p.ReportSvc,
		reconciler:   p.Reconciler,
		loginLimiter: p.LoginLimiter,
		obsMetrics:   p.ObsMetrics,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.LoginRateLimit(), s.Login)
	auth.POST("/admin/login", s.LoginRateLimit(), s.AdminLogin)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.AuthRequired(), s.Me)
	auth.GET("/check-admin", s.AuthRequired(), s.RequireRole(authdomain.RoleAdmin), s.Me)
}

// registerAPIRoutes serves the agent-facing surface. Admin tokens are
// accepted where the handler allows it.
func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.AuthRequired())

	api.GET("/agents/me", s.RequireRole(authdomain.RoleAgent), s.authorize(authorization.ObjectAgents, authorization.ActionRead), s.GetMyAgent)
	api.GET("/sales/mine", s.RequireRole(authdomain.RoleAgent), s.authorize(authorization.ObjectSales, authorization.ActionRead), s.ListMySales)
	api.POST("/sales", s.authorize(authorization.ObjectSales, authorization.ActionWrite), s.RecordSale)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")

	// --- global middlewares ---
	admin.Use(s.AuthRequired())
	admin.Use(s.RequireRole(authdomain.RoleAdmin))

	// -------- Agents --------
	admin.GET("/agents", s.authorize(authorization.ObjectAgents, authorization.ActionRead), s.ListAgents)
	admin.POST("/agents", s.authorize(authorization.ObjectAgents, authorization.ActionWrite), s.CreateAgent)
	admin.GET("/agents/:id", s.authorize(authorization.ObjectAgents, authorization.ActionRead), s.GetAgentByID)
	admin.PATCH("/agents/:id", s.authorize(authorization.ObjectAgents, authorization.ActionWrite), s.UpdateAgent)
	admin.DELETE("/agents/:id", s.authorize(authorization.ObjectAgents, authorization.ActionWrite), s.DeleteAgent)
	admin.GET("/agents/:id/statement", s.authorize(authorization.ObjectReports, authorization.ActionRead), s.GetAgentStatement)
	admin.GET("/agents/:id/statement.pdf", s.authorize(authorization.ObjectReports, authorization.ActionRead), s.RenderAgentStatement)
	admin.GET("/agents/:id/reconciliation", s.authorize(authorization.ObjectReports, authorization.ActionRead), s.GetAgentReconciliation)
	admin.GET("/reconciliation", s.authorize(authorization.ObjectReports, authorization.ActionRead), s.RunReconciliation)

	// -------- Sales --------
	admin.GET("/sales", s.authorize(authorization.ObjectSales, authorization.ActionRead), s.ListSales)
	admin.POST("/sales", s.authorize(authorization.ObjectSales, authorization.ActionWrite), s.RecordSale)
	admin.GET("/sales/summary", s.authorize(authorization.ObjectReports, authorization.ActionRead), s.GetSalesSummary)
	admin.GET("/sales/:id", s.authorize(authorization.ObjectSales, authorization.ActionRead), s.GetSaleByID)
	admin.PUT("/sales/:id", s.authorize(authorization.ObjectSales, authorization.ActionWrite), s.EditSale)
	admin.DELETE("/sales/:id", s.authorize(authorization.ObjectSales, authorization.ActionWrite), s.DeleteSale)

	// -------- Audit --------
	admin.GET("/audit_logs", s.authorize(authorization.ObjectAudit, authorization.ActionRead), s.ListAuditLogs)
}
