package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	agentdomain "github.com/smallbiznis/realtyledger/internal/agent/domain"
	"github.com/smallbiznis/realtyledger/internal/auth/domain"
	"github.com/smallbiznis/realtyledger/internal/auth/token"
	"github.com/smallbiznis/realtyledger/internal/config"
	"github.com/smallbiznis/realtyledger/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Config  config.Config
	Agents  agentdomain.Service
	Issuer  *token.Issuer
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	log           *zap.Logger
	agents        agentdomain.Service
	issuer        *token.Issuer
	metrics       *metrics.Metrics
	adminUsername string
	adminPassword string
}

func New(p Params) domain.Service {
	return &Service{
		log:           p.Log.Named("auth.service"),
		agents:        p.Agents,
		issuer:        p.Issuer,
		metrics:       p.Metrics,
		adminUsername: strings.TrimSpace(p.Config.AdminUsername),
		adminPassword: p.Config.AdminPassword,
	}
}

func (s *Service) LoginAgent(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	agent, err := s.agents.Authenticate(ctx, req.Identifier, req.Password)
	if err != nil {
		if errors.Is(err, agentdomain.ErrInvalidCredentials) {
			s.metrics.RecordLogin(ctx, string(domain.RoleAgent), "rejected")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	rawToken, expiresAt, err := s.issuer.Issue(agent.ID.String(), domain.RoleAgent)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLogin(ctx, string(domain.RoleAgent), "accepted")
	s.log.Info("agent logged in", zap.String("agent_id", agent.ID.String()))
	return &domain.LoginResult{
		Principal: domain.Principal{
			Role:      domain.RoleAgent,
			Subject:   agent.ID.String(),
			AgentID:   agent.ID,
			Name:      agent.Name,
			Email:     agent.Email,
			ExpiresAt: expiresAt,
		},
		RawToken:  rawToken,
		ExpiresAt: expiresAt,
	}, nil
}

// LoginAdmin checks the single configured admin account. Admin login is
// disabled when either credential is unset.
func (s *Service) LoginAdmin(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	if s.adminUsername == "" || s.adminPassword == "" {
		return nil, domain.ErrAdminLoginDisabled
	}

	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(req.Identifier)), []byte(s.adminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.adminPassword)) == 1
	if !userOK || !passOK {
		s.metrics.RecordLogin(ctx, string(domain.RoleAdmin), "rejected")
		return nil, domain.ErrInvalidCredentials
	}

	rawToken, expiresAt, err := s.issuer.Issue(s.adminUsername, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLogin(ctx, string(domain.RoleAdmin), "accepted")
	s.log.Info("admin logged in")
	return &domain.LoginResult{
		Principal: domain.Principal{
			Role:      domain.RoleAdmin,
			Subject:   s.adminUsername,
			Name:      s.adminUsername,
			ExpiresAt: expiresAt,
		},
		RawToken:  rawToken,
		ExpiresAt: expiresAt,
	}, nil
}

// Authenticate resolves a token into a principal. Agent tokens are rejected
// once the agent has been deleted.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.Principal, error) {
	claims, err := s.issuer.Parse(rawToken)
	if err != nil {
		return nil, err
	}

	principal := &domain.Principal{
		Role:    claims.Role,
		Subject: claims.Subject,
	}
	if claims.ExpiresAt != nil {
		principal.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}

	if claims.Role == domain.RoleAdmin {
		if s.adminUsername == "" || claims.Subject != s.adminUsername {
			return nil, domain.ErrInvalidToken
		}
		principal.Name = s.adminUsername
		return principal, nil
	}

	agentID, err := snowflake.ParseString(claims.Subject)
	if err != nil || agentID <= 0 {
		return nil, domain.ErrInvalidToken
	}
	agent, err := s.agents.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, agentdomain.ErrNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}

	principal.AgentID = agentID
	principal.Name = agent.Name
	principal.Email = agent.Email
	return principal, nil
}
