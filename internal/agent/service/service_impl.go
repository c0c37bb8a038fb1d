package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/realtyledger/internal/agent/domain"
	auditdomain "github.com/smallbiznis/realtyledger/internal/audit/domain"
	"github.com/smallbiznis/realtyledger/internal/auth/password"
	"github.com/smallbiznis/realtyledger/internal/clock"
	"github.com/smallbiznis/realtyledger/internal/commission"
	"github.com/smallbiznis/realtyledger/internal/config"
	"github.com/smallbiznis/realtyledger/internal/observability/metrics"
	"github.com/smallbiznis/realtyledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const minPasswordLength = 6

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Hasher  password.Hasher
	Audit   auditdomain.Service
	Policy  *config.LedgerPolicyHolder
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	hasher  password.Hasher
	audit   auditdomain.Service
	policy  *config.LedgerPolicyHolder
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("agent.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		hasher:  p.Hasher,
		audit:   p.Audit,
		policy:  p.Policy,
		metrics: p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateAgentRequest) (domain.Agent, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Agent{}, domain.ErrInvalidName
	}

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.Agent{}, err
	}

	if len(req.Password) < minPasswordLength {
		return domain.Agent{}, domain.ErrInvalidPassword
	}

	level := req.Level
	if level == "" {
		level = domain.LevelL1
	}
	if !level.Valid() {
		return domain.Agent{}, domain.ErrInvalidLevel
	}

	if req.TotalSales < 0 {
		return domain.Agent{}, domain.ErrInvalidTotalSales
	}

	policy := s.policy.Get()
	defaultAgentPct := decimal.NewFromFloat(policy.DefaultAgentPercentage)
	agentPct := defaultAgentPct
	if req.AgentCommissionPercentage != nil {
		agentPct = *req.AgentCommissionPercentage
	}
	orgPct := commission.Complement(defaultAgentPct)
	if req.OrganizationCommissionPercentage != nil {
		orgPct = *req.OrganizationCommissionPercentage
	}
	if err := commission.ValidateSplit(agentPct, orgPct); err != nil {
		return domain.Agent{}, domain.ErrInvalidCommissionSplit
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return domain.Agent{}, err
	}

	now := s.clock.Now()
	agent := domain.Agent{
		ID:                               s.genID.Generate(),
		Name:                             name,
		Email:                            email,
		PasswordHash:                     hash,
		Level:                            domain.EvaluateLevel(level, req.TotalSales, policy.PromotionThreshold),
		TotalSales:                       req.TotalSales,
		AgentCommissionPercentage:        agentPct,
		OrganizationCommissionPercentage: orgPct,
		CreatedAt:                        now,
		UpdatedAt:                        now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByEmail(ctx, tx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrEmailExists
		}

		if err := s.repo.Insert(ctx, tx, &agent); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrEmailExists
			}
			return err
		}

		return s.audit.AuditLog(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionAgentCreated,
			TargetType: auditdomain.TargetAgent,
			TargetID:   agent.ID.String(),
			Metadata: map[string]any{
				"level":                              string(agent.Level),
				"total_sales":                        agent.TotalSales,
				"agent_commission_percentage":        agent.AgentCommissionPercentage.String(),
				"organization_commission_percentage": agent.OrganizationCommissionPercentage.String(),
			},
		})
	})
	if err != nil {
		if !errors.Is(err, domain.ErrEmailExists) {
			s.log.Error("failed to create agent", zap.Error(err))
		}
		return domain.Agent{}, err
	}

	if level != agent.Level {
		s.metrics.RecordPromotion(ctx, string(agent.Level))
	}

	s.log.Info("agent created",
		zap.String("agent_id", agent.ID.String()),
		zap.String("level", string(agent.Level)),
	)
	return agent, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateAgentRequest) (domain.Agent, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Agent{}, err
	}

	fields := domain.UpdateFields{}
	changes := map[string]any{}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Agent{}, domain.ErrInvalidName
		}
		fields.Name = &name
		changes["name"] = name
	}

	if req.Email != nil {
		email, err := normalizeEmail(*req.Email)
		if err != nil {
			return domain.Agent{}, err
		}
		fields.Email = &email
		changes["email"] = email
	}

	if req.Password != nil {
		if len(*req.Password) < minPasswordLength {
			return domain.Agent{}, domain.ErrInvalidPassword
		}
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return domain.Agent{}, err
		}
		fields.PasswordHash = &hash
		changes["password"] = "changed"
	}

	if req.Level != nil && !req.Level.Valid() {
		return domain.Agent{}, domain.ErrInvalidLevel
	}

	// Both percentages travel together; a lone value would break the 100 sum.
	agentPct, orgPct := req.AgentCommissionPercentage, req.OrganizationCommissionPercentage
	switch {
	case agentPct == nil && orgPct == nil:
	case agentPct == nil || orgPct == nil:
		return domain.Agent{}, domain.ErrInvalidCommissionSplit
	default:
		if err := commission.ValidateSplit(*agentPct, *orgPct); err != nil {
			return domain.Agent{}, domain.ErrInvalidCommissionSplit
		}
		fields.AgentCommissionPercentage = agentPct
		fields.OrganizationCommissionPercentage = orgPct
		changes["agent_commission_percentage"] = agentPct.String()
		changes["organization_commission_percentage"] = orgPct.String()
	}

	var updated *domain.Agent
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}

		if fields.Email != nil && *fields.Email != current.Email {
			existing, err := s.repo.FindByEmail(ctx, tx, *fields.Email)
			if err != nil {
				return err
			}
			if existing != nil && existing.ID != id {
				return domain.ErrEmailExists
			}
		}

		if req.Level != nil && *req.Level != current.Level {
			// Admins may promote by hand but never demote.
			if current.Level == domain.LevelL2 {
				return domain.ErrInvalidLevel
			}
			fields.Level = req.Level
			changes["level"] = string(*req.Level)
		}

		fields.UpdatedAt = s.clock.Now()
		if _, err := s.repo.UpdateFields(ctx, tx, id, fields); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrEmailExists
			}
			return err
		}

		if err := s.audit.AuditLog(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionAgentUpdated,
			TargetType: auditdomain.TargetAgent,
			TargetID:   id.String(),
			Metadata:   map[string]any{"changes": changes},
		}); err != nil {
			return err
		}

		updated, err = s.repo.FindByID(ctx, tx, id)
		return err
	})
	if err != nil {
		if !isClientError(err) {
			s.log.Error("failed to update agent", zap.String("agent_id", id.String()), zap.Error(err))
		}
		return domain.Agent{}, err
	}
	if updated == nil {
		return domain.Agent{}, domain.ErrNotFound
	}

	return *updated, nil
}

// Delete removes the agent. Sales that reference it are kept and read back with
// their snapshotted agent name.
func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}

		if _, err := s.repo.Delete(ctx, tx, id); err != nil {
			return err
		}

		return s.audit.AuditLog(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionAgentDeleted,
			TargetType: auditdomain.TargetAgent,
			TargetID:   id.String(),
			Metadata: map[string]any{
				"name":        current.Name,
				"total_sales": current.TotalSales,
				"level":       string(current.Level),
			},
		})
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Error("failed to delete agent", zap.String("agent_id", id.String()), zap.Error(err))
		}
		return err
	}

	s.log.Info("agent deleted", zap.String("agent_id", id.String()))
	return nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Agent, error) {
	id, err := parseID(rawID)
	if err != nil {
		return domain.Agent{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Agent{}, err
	}
	if item == nil {
		return domain.Agent{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListAgentRequest) ([]domain.Agent, error) {
	filter := domain.ListAgentFilter{Search: strings.TrimSpace(req.Search)}
	if level := domain.Level(strings.ToUpper(strings.TrimSpace(req.Level))); level != "" {
		if !level.Valid() {
			return nil, domain.ErrInvalidLevel
		}
		filter.Level = level
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	agents := make([]domain.Agent, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		agents = append(agents, *item)
	}
	return agents, nil
}

func (s *Service) Authenticate(ctx context.Context, email, plaintext string) (domain.Agent, error) {
	normalized, err := normalizeEmail(email)
	if err != nil || plaintext == "" {
		return domain.Agent{}, domain.ErrInvalidCredentials
	}

	item, err := s.repo.FindByEmail(ctx, s.db, normalized)
	if err != nil {
		return domain.Agent{}, err
	}
	if item == nil || !s.hasher.Verify(plaintext, item.PasswordHash) {
		return domain.Agent{}, domain.ErrInvalidCredentials
	}
	return *item, nil
}

func normalizeEmail(value string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(value))
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t\n") {
		return "", domain.ErrInvalidEmail
	}
	return email, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func isClientError(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrEmailExists) ||
		errors.Is(err, domain.ErrInvalidLevel)
}
