// Package reconcile compares each agent's stored total sales with the sum of
// the sale rows that should feed it. It reports drift and never rewrites
// totals.
package reconcile

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	agentdomain "github.com/smallbiznis/realtyledger/internal/agent/domain"
	"github.com/smallbiznis/realtyledger/internal/clock"
	"github.com/smallbiznis/realtyledger/internal/config"
	saledomain "github.com/smallbiznis/realtyledger/internal/sale/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidID = errors.New("invalid_id")
	ErrNotFound  = errors.New("not_found")
)

// Result is the reconciliation outcome for one agent.
type Result struct {
	AgentID         snowflake.ID      `json:"agent_id"`
	AgentName       string            `json:"agent_name"`
	Level           agentdomain.Level `json:"level"`
	StoredTotal     int64             `json:"stored_total"`
	LedgerTotal     int64             `json:"ledger_total"`
	Drift           int64             `json:"drift"`
	LevelConsistent bool              `json:"level_consistent"`
	CountCancelled  bool              `json:"count_cancelled"`
	CheckedAt       time.Time         `json:"checked_at"`
}

func (r Result) Consistent() bool {
	return r.Drift == 0 && r.LevelConsistent
}

type Report struct {
	Checked   int       `json:"checked"`
	Drifted   []Result  `json:"drifted"`
	CheckedAt time.Time `json:"checked_at"`
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	AgentRepo agentdomain.Repository
	SaleRepo  saledomain.Repository
	Policy    *config.LedgerPolicyHolder
	Gauge     *DriftGauge `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	agentRepo agentdomain.Repository
	saleRepo  saledomain.Repository
	policy    *config.LedgerPolicyHolder
	gauge     *DriftGauge
}

func NewService(p Params) *Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("reconcile.service"),
		clock:     p.Clock,
		agentRepo: p.AgentRepo,
		saleRepo:  p.SaleRepo,
		policy:    p.Policy,
		gauge:     p.Gauge,
	}
}

// Check compares one agent's stored total with the amounts its sales were
// counted with.
func (s *Service) Check(ctx context.Context, rawID string) (Result, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil || id <= 0 {
		return Result{}, ErrInvalidID
	}

	agent, err := s.agentRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return Result{}, err
	}
	if agent == nil {
		return Result{}, ErrNotFound
	}

	policy := s.policy.Get()
	totals, err := s.saleRepo.SumContributions(ctx, s.db, &id)
	if err != nil {
		return Result{}, err
	}

	result := evaluate(*agent, totals[id], policy, s.clock.Now())
	s.gauge.Set(result)
	return result, nil
}

// CheckAll reconciles every agent. Sales whose agent no longer exists are
// skipped.
func (s *Service) CheckAll(ctx context.Context) (Report, error) {
	agents, err := s.agentRepo.List(ctx, s.db, agentdomain.ListAgentFilter{})
	if err != nil {
		return Report{}, err
	}

	policy := s.policy.Get()
	totals, err := s.saleRepo.SumContributions(ctx, s.db, nil)
	if err != nil {
		return Report{}, err
	}

	now := s.clock.Now()
	report := Report{Drifted: []Result{}, CheckedAt: now}
	for _, agent := range agents {
		if agent == nil {
			continue
		}
		result := evaluate(*agent, totals[agent.ID], policy, now)
		report.Checked++
		if result.Consistent() {
			continue
		}
		report.Drifted = append(report.Drifted, result)
		s.log.Warn("agent total drift",
			zap.String("agent_id", agent.ID.String()),
			zap.Int64("stored_total", result.StoredTotal),
			zap.Int64("ledger_total", result.LedgerTotal),
			zap.Int64("drift", result.Drift),
			zap.Bool("level_consistent", result.LevelConsistent),
		)
	}

	s.gauge.Replace(report)
	return report, nil
}

func evaluate(agent agentdomain.Agent, ledgerTotal int64, policy config.LedgerPolicy, at time.Time) Result {
	return Result{
		AgentID:         agent.ID,
		AgentName:       agent.Name,
		Level:           agent.Level,
		StoredTotal:     agent.TotalSales,
		LedgerTotal:     ledgerTotal,
		Drift:           agent.TotalSales - ledgerTotal,
		LevelConsistent: !agentdomain.ShouldPromote(agent.Level, agent.TotalSales, policy.PromotionThreshold),
		CountCancelled:  policy.CountCancelledSales,
		CheckedAt:       at,
	}
}
