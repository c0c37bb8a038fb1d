package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/realtyledger/internal/audit/domain"
	authdomain "github.com/smallbiznis/realtyledger/internal/auth/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectAgents  = "agents"
	ObjectSales   = "sales"
	ObjectReports = "reports"
	ObjectAudit   = "audit"
)

const (
	ActionRead  = "read"
	ActionWrite = "write"
)

const (
	roleAdmin = "role:admin"
	roleAgent = "role:agent"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

// NewEnforcer loads policies from the casbin_rule table and seeds the
// built-in role grants.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, principal authdomain.Principal, object string, action string) error {
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := resolveActor(principal)
	if err != nil {
		return err
	}
	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, principal, object, action)
		return ErrForbidden
	}
	return nil
}

func resolveActor(principal authdomain.Principal) (string, string, error) {
	switch principal.Role {
	case authdomain.RoleAdmin:
		subject := strings.TrimSpace(principal.Subject)
		if subject == "" {
			return "", "", ErrInvalidActor
		}
		return "admin:" + subject, roleAdmin, nil
	case authdomain.RoleAgent:
		if principal.AgentID == 0 {
			return "", "", ErrInvalidActor
		}
		return fmt.Sprintf("agent:%s", principal.AgentID.String()), roleAgent, nil
	default:
		return "", "", ErrInvalidActor
	}
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		_, _ = s.enforcer.RemoveGroupingPolicy(params...)
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, principal authdomain.Principal, object string, action string) {
	s.log.Warn("access denied",
		zap.String("role", string(principal.Role)),
		zap.String("subject", principal.Subject),
		zap.String("object", object),
		zap.String("action", action),
	)
	if s.auditSvc == nil {
		return
	}
	_ = s.auditSvc.AuditLog(ctx, nil, auditdomain.Entry{
		Action:     auditdomain.ActionAccessDenied,
		TargetType: auditdomain.TargetRoute,
		TargetID:   object,
		Metadata: map[string]any{
			"object": object,
			"action": action,
			"role":   string(principal.Role),
		},
	})
}

// Agents may read and record sales and read their own profile. Ownership of
// the rows is checked by the handlers.
func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{roleAgent, ObjectSales, ActionRead},
		{roleAgent, ObjectSales, ActionWrite},
		{roleAgent, ObjectAgents, ActionRead},

		{roleAdmin, ObjectAgents, ActionRead},
		{roleAdmin, ObjectAgents, ActionWrite},
		{roleAdmin, ObjectSales, ActionRead},
		{roleAdmin, ObjectSales, ActionWrite},
		{roleAdmin, ObjectReports, ActionRead},
		{roleAdmin, ObjectAudit, ActionRead},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
