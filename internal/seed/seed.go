package seed

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	agentdomain "github.com/smallbiznis/realtyledger/internal/agent/domain"
	auditdomain "github.com/smallbiznis/realtyledger/internal/audit/domain"
	"github.com/smallbiznis/realtyledger/internal/auditcontext"
	"github.com/smallbiznis/realtyledger/internal/config"
	saledomain "github.com/smallbiznis/realtyledger/internal/sale/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	seedActorID         = "seed"
	defaultDemoPassword = "changeme"
)

// Module seeds demo data on startup when SEED_DEMO_DATA is set outside
// production.
var Module = fx.Module("seed",
	fx.Invoke(runOnStart),
)

type demoAgent struct {
	name     string
	email    string
	agentPct int64
	sales    []demoSale
}

type demoSale struct {
	customer string
	product  string
	amount   int64
	status   saledomain.Status
	daysAgo  int
}

var demoAgents = []demoAgent{
	{
		name:     "Ayu Lestari",
		email:    "ayu@demo.realtyledger.local",
		agentPct: 70,
		sales: []demoSale{
			{customer: "Budi Santoso", product: "Villa Seminyak 3BR", amount: 320_000, status: saledomain.StatusCompleted, daysAgo: 40},
			{customer: "Citra Dewi", product: "Townhouse Canggu", amount: 210_000, status: saledomain.StatusCompleted, daysAgo: 12},
		},
	},
	{
		name:     "Bima Pratama",
		email:    "bima@demo.realtyledger.local",
		agentPct: 60,
		sales: []demoSale{
			{customer: "Dian Putri", product: "Apartment Kuta 2BR", amount: 95_000, status: saledomain.StatusPending, daysAgo: 3},
			{customer: "Eko Wijaya", product: "Land plot Ubud", amount: 60_000, status: saledomain.StatusCancelled, daysAgo: 20},
		},
	},
}

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	DB        *gorm.DB
	Log       *zap.Logger
	Agents    agentdomain.Service
	Sales     saledomain.Service
}

func runOnStart(p Params) {
	if !p.Config.SeedDemoData || p.Config.IsProduction() {
		return
	}
	log := p.Log.Named("seed")
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			seeded, err := EnsureDemoAgents(ctx, p.DB, p.Agents, p.Sales)
			if err != nil {
				log.Error("demo seed failed", zap.Error(err))
				return err
			}
			if seeded {
				log.Info("demo agents seeded", zap.Int("agents", len(demoAgents)))
			}
			return nil
		},
	})
}

// EnsureDemoAgents fills an empty ledger with a few agents and sales. Writes
// go through the ledger services so totals and levels stay consistent. It
// reports false when agents already exist.
func EnsureDemoAgents(ctx context.Context, db *gorm.DB, agents agentdomain.Service, sales saledomain.Service) (bool, error) {
	if db == nil {
		return false, errors.New("seed database handle is required")
	}

	var count int64
	if err := db.WithContext(ctx).Model(&agentdomain.Agent{}).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	ctx = auditcontext.WithActor(ctx, string(auditdomain.ActorTypeSystem), seedActorID)
	now := time.Now().UTC()
	for _, demo := range demoAgents {
		agentPct := decimal.NewFromInt(demo.agentPct)
		orgPct := decimal.NewFromInt(100 - demo.agentPct)
		agent, err := agents.Create(ctx, agentdomain.CreateAgentRequest{
			Name:                             demo.name,
			Email:                            demo.email,
			Password:                         defaultDemoPassword,
			AgentCommissionPercentage:        &agentPct,
			OrganizationCommissionPercentage: &orgPct,
		})
		if err != nil {
			return false, err
		}

		for _, sale := range demo.sales {
			saleDate := now.AddDate(0, 0, -sale.daysAgo)
			if _, err := sales.Record(ctx, saledomain.RecordSaleRequest{
				AgentID:      agent.ID.String(),
				CustomerName: sale.customer,
				ProductName:  sale.product,
				Amount:       sale.amount,
				SaleDate:     &saleDate,
				Status:       string(sale.status),
			}); err != nil {
				return false, err
			}
		}
	}
	return true, nil
}
