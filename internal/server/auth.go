package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/realtyledger/internal/audit/domain"
	"github.com/smallbiznis/realtyledger/internal/auditcontext"
	authdomain "github.com/smallbiznis/realtyledger/internal/auth/domain"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Data      authdomain.Principal `json:"data"`
	Token     string               `json:"token"`
	ExpiresAt string               `json:"expires_at"`
}

// Login signs an agent in with email and password.
func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	result, err := s.authsvc.LoginAgent(c.Request.Context(), authdomain.LoginRequest{
		Identifier: email,
		Password:   req.Password,
	})
	if err != nil {
		s.auditLogin(c.Request.Context(), auditdomain.ActionLoginFailed, auditdomain.TargetAgent, "", map[string]any{
			"email": email,
		})
		AbortWithError(c, err)
		return
	}

	s.completeLogin(c, result, auditdomain.ActorTypeAgent, auditdomain.TargetAgent)
}

// AdminLogin signs the configured administrator in.
func (s *Server) AdminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	username := strings.TrimSpace(req.Username)
	result, err := s.authsvc.LoginAdmin(c.Request.Context(), authdomain.LoginRequest{
		Identifier: username,
		Password:   req.Password,
	})
	if err != nil {
		s.auditLogin(c.Request.Context(), auditdomain.ActionLoginFailed, auditdomain.TargetAdmin, "", map[string]any{
			"username": username,
		})
		AbortWithError(c, err)
		return
	}

	s.completeLogin(c, result, auditdomain.ActorTypeAdmin, auditdomain.TargetAdmin)
}

func (s *Server) completeLogin(c *gin.Context, result *authdomain.LoginResult, actorType auditdomain.ActorType, targetType string) {
	s.sessions.Set(c, result.RawToken, result.ExpiresAt)

	ctx := auditcontext.WithActor(c.Request.Context(), string(actorType), result.Principal.Subject)
	s.auditLogin(ctx, auditdomain.ActionLogin, targetType, result.Principal.Subject, map[string]any{
		"role": string(result.Principal.Role),
	})

	c.JSON(http.StatusOK, loginResponse{
		Data:      result.Principal,
		Token:     result.RawToken,
		ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) auditLogin(ctx context.Context, action string, targetType string, targetID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	_ = s.auditSvc.AuditLog(ctx, nil, auditdomain.Entry{
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   metadata,
	})
}

// Logout clears the token cookie. Tokens are stateless, so a copy held
// elsewhere stays valid until it expires.
func (s *Server) Logout(c *gin.Context) {
	s.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) Me(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": principal})
}
